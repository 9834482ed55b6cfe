package bedrock

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector() *Detector {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(logger)
}

// findingsOfType filters a result set by finding type.
func findingsOfType(findings []Finding, typ string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Type == typ {
			out = append(out, f)
		}
	}
	return out
}

// staticPrompt builds a prompt long enough to clear the token heuristics.
// approxTokens is converted at 4 characters per token.
func staticPrompt(approxTokens int) string {
	filler := strings.Repeat("Review the provided records and respond precisely. ", approxTokens*charsPerToken/52+1)
	return "You are a meticulous data analyst. " + filler
}

func TestCanAnalyze(t *testing.T) {
	d := newTestDetector()

	assert.True(t, d.CanAnalyze("app/main.py"))
	assert.True(t, d.CanAnalyze("src/agent.ts"))
	assert.True(t, d.CanAnalyze("src/Agent.TSX"))
	assert.True(t, d.CanAnalyze("web/index.js"))
	assert.False(t, d.CanAnalyze("cmd/main.go"))
	assert.False(t, d.CanAnalyze("README.md"))
	assert.False(t, d.CanAnalyze("Makefile"))
}

func TestAnalyzeUnrelatedCode(t *testing.T) {
	d := newTestDetector()

	content := `
def add(a, b):
    return a + b

class Greeter:
    def greet(self, who):
        return "hello " + who
`
	findings := d.Analyze(t.Context(), content, "util.py")
	assert.Empty(t, findings)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	d := newTestDetector()

	content := `
import boto3

client = boto3.client("bedrock-runtime")
response = client.converse(
    modelId="us.anthropic.claude-3-7-sonnet-20250219-v1:0",
    max_tokens=2048,
)
`
	first := d.Analyze(t.Context(), content, "agent.py")
	second := d.Analyze(t.Context(), content, "agent.py")
	assert.Equal(t, first, second)

	require.NotEmpty(t, first)
	for _, f := range first {
		if f.Line > 0 {
			assert.NotEmpty(t, f.FileLink)
		}
	}
}

func TestDetectModelsCrossRegion(t *testing.T) {
	d := newTestDetector()

	content := `model = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"`
	findings := findingsOfType(d.Analyze(t.Context(), content, "config.py"), "bedrock_model_usage")
	require.Len(t, findings, 1)

	detail := findings[0].Detail
	assert.Equal(t, true, detail["is_cross_region"])
	assert.Equal(t, "geography-specific", detail["cross_region_type"])

	parsed, ok := detail["parsed"].(ModelIdentifier)
	require.True(t, ok)
	assert.Equal(t, "claude", parsed.Family)
	assert.Equal(t, "sonnet", parsed.Tier)
	assert.Equal(t, "3.7", parsed.Version)
	assert.Equal(t, "us", parsed.RegionPrefix)
}

func TestDetectModelsSkipsCommentsAndValidationMessages(t *testing.T) {
	d := newTestDetector()

	content := `
# example: amazon.nova-pro-v1:0
raise ValueError("expected one of: anthropic.claude-3-haiku-20240307-v1:0")
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "config.py"), "bedrock_model_usage")
	assert.Empty(t, findings)
}

func TestLambdaStreamingRisk(t *testing.T) {
	d := newTestDetector()

	content := `
from strands.models import BedrockModel

def lambda_handler(event, context):
    model = BedrockModel(
        model_id="us.anthropic.claude-3-7-sonnet-20250219-v1:0",
        streaming=True,
    )
    return model
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "functions/lambda/handler.py"), "bedrock_model_config")
	require.Len(t, findings, 1)

	detail := findings[0].Detail
	assert.Equal(t, true, detail["streaming"])
	assert.Equal(t, "premium", detail["model_tier"])

	assessment, ok := detail["streaming_assessment"].(StreamingAssessment)
	require.True(t, ok)
	assert.Equal(t, "Streaming enabled in Lambda context", assessment.Status)
	assert.Equal(t, "10-20% reduction in Lambda execution costs", assessment.PotentialSavings)
}

func TestStreamingOutsideLambdaIsNotARisk(t *testing.T) {
	d := newTestDetector()

	content := `
model = BedrockModel(
    model_id="amazon.nova-lite-v1:0",
    streaming=True,
)
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "api/chat.py"), "bedrock_model_config")
	require.Len(t, findings, 1)

	assessment, ok := findings[0].Detail["streaming_assessment"].(StreamingAssessment)
	require.True(t, ok)
	assert.Equal(t, "Streaming enabled", assessment.Status)
	assert.Empty(t, assessment.PotentialSavings)
}

func TestNovaCachingOpportunity(t *testing.T) {
	d := newTestDetector()

	content := fmt.Sprintf(`
model = "amazon.nova-pro-v1:0"
system_prompt = """%s"""
`, staticPrompt(300))

	findings := findingsOfType(d.Analyze(t.Context(), content, "agent.py"), "nova_explicit_caching_opportunity")
	require.Len(t, findings, 1)

	detail := findings[0].Detail
	tokens, ok := detail["estimated_static_tokens"].(int)
	require.True(t, ok)
	assert.GreaterOrEqual(t, tokens, 250)
	assert.Contains(t, detail, "potential_savings")
	assert.Equal(t, false, detail["meets_nova_minimum"])
}

func TestNovaCachingAlreadyEnabled(t *testing.T) {
	d := newTestDetector()

	content := `
model = "amazon.nova-pro-v1:0"
payload = {"system": [{"text": "prompt"}, {"cachePoint": {"type": "default"}}]}
`
	findings := d.Analyze(t.Context(), content, "agent.py")
	assert.Len(t, findingsOfType(findings, "nova_explicit_caching_enabled"), 1)
	assert.Empty(t, findingsOfType(findings, "nova_explicit_caching_opportunity"))
}

func TestCachingCrossRegionSeverityMatrix(t *testing.T) {
	d := newTestDetector()

	dynamicPrompt := `system_prompt = f"""You are an assistant for {user_name}."""`
	staticAssign := `system_prompt = """You are an assistant."""`

	tests := []struct {
		name     string
		modelID  string
		prompt   string
		severity Severity
	}{
		{"global profile with dynamic prompt", "global.anthropic.claude-3-7-sonnet-20250219-v1:0", dynamicPrompt, SeverityHigh},
		{"geo profile with dynamic prompt", "us.anthropic.claude-3-7-sonnet-20250219-v1:0", dynamicPrompt, SeverityMedium},
		{"geo profile with static prompt", "us.anthropic.claude-3-7-sonnet-20250219-v1:0", staticAssign, SeverityInfo},
		{"global profile with static prompt", "global.anthropic.claude-3-7-sonnet-20250219-v1:0", staticAssign, SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := fmt.Sprintf(`
model = "%s"
config = {"cachePoint": {"type": "default"}}
%s
`, tt.modelID, tt.prompt)

			findings := findingsOfType(d.Analyze(t.Context(), content, "agent.py"), "caching_cross_region_antipattern")
			require.Len(t, findings, 1)
			assert.Equal(t, tt.severity, findings[0].Severity)
		})
	}
}

func TestCachingSingleRegionIsNotAnAntipattern(t *testing.T) {
	d := newTestDetector()

	content := `
model = "anthropic.claude-3-7-sonnet-20250219-v1:0"
config = {"cachePoint": {"type": "default"}}
system_prompt = f"""You are an assistant for {user_name}."""
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "agent.py"), "caching_cross_region_antipattern")
	assert.Empty(t, findings)
}

func TestDynamicSystemPromptFinding(t *testing.T) {
	d := newTestDetector()

	content := `
system_prompt = f"""You are a support agent.
Help {user_name} with their {request_type} request."""
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "agent.py"), "dynamic_system_prompt")
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.Equal(t, 2, f.Line)
	assert.Equal(t, []string{"user_name", "request_type"}, f.Detail["dynamic_variables"])

	fix, ok := f.Detail["fix_example"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fix["before"], "user_name")
	assert.Contains(t, fix["after"], "user_name")
}

func TestStaticSystemPromptHasNoDynamicFinding(t *testing.T) {
	d := newTestDetector()

	content := `
system_prompt = f"""You are a support agent. Answer concisely."""
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "agent.py"), "dynamic_system_prompt")
	assert.Empty(t, findings)
}

func TestPromptRoutingMultipleModelsSameFamily(t *testing.T) {
	d := newTestDetector()

	content := `
if simple:
    model = "anthropic.claude-3-haiku-20240307-v1:0"
else:
    model = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "selector.py"), "prompt_routing_opportunity")
	require.NotEmpty(t, findings)
	assert.Equal(t, "multiple_models_same_family", findings[0].Detail["subtype"])
	assert.Equal(t, "claude", findings[0].Detail["model_family"])
}

func TestPromptRoutingExistingRouterShortCircuits(t *testing.T) {
	d := newTestDetector()

	content := `
router = "arn:aws:bedrock:us-east-1:123456789012:prompt-router/abc123"
model_a = "anthropic.claude-3-haiku-20240307-v1:0"
model_b = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"
`
	findings := d.Analyze(t.Context(), content, "selector.py")
	assert.Len(t, findingsOfType(findings, "prompt_routing_detected"), 1)
	assert.Empty(t, findingsOfType(findings, "prompt_routing_opportunity"))
}

func TestServiceTierFindings(t *testing.T) {
	d := newTestDetector()

	t.Run("configured tier is reported", func(t *testing.T) {
		content := `
response = client.converse(
    modelId="amazon.nova-lite-v1:0",
    service_tier="flex",
)
`
		findings := d.Analyze(t.Context(), content, "batch.py")
		configured := findingsOfType(findings, "bedrock_service_tier")
		require.Len(t, configured, 1)
		assert.Equal(t, "flex", configured[0].Detail["service_tier"])
		assert.Equal(t, "cost-optimized", configured[0].Detail["tier_category"])
		assert.Empty(t, findingsOfType(findings, "bedrock_service_tier_missing"))
	})

	t.Run("missing tier is an opportunity", func(t *testing.T) {
		content := `
response = client.invoke_model(
    modelId="amazon.nova-lite-v1:0",
    body=payload,
)
`
		missing := findingsOfType(d.Analyze(t.Context(), content, "batch.py"), "bedrock_service_tier_missing")
		require.Len(t, missing, 1)
		assert.Equal(t, "invoke_model", missing[0].Detail["api_call"])
	})
}

func TestTokenConfiguration(t *testing.T) {
	d := newTestDetector()

	content := `
low = client.converse(modelId="amazon.nova-lite-v1:0", max_tokens=1024)
high = client.converse(modelId="amazon.nova-lite-v1:0", max_tokens=8192)
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "chat.py"), "token_configuration")
	require.Len(t, findings, 2)
	assert.Equal(t, "Token limit configured", findings[0].Detail["note"])
	assert.Equal(t, "High token limit", findings[1].Detail["note"])
}

func TestBedrockClientDetected(t *testing.T) {
	d := newTestDetector()

	content := `client = boto3.client("bedrock-runtime")`
	findings := findingsOfType(d.Analyze(t.Context(), content, "client.py"), "bedrock_client_detected")
	assert.Len(t, findings, 1)
}

func TestOpenAICompatibleSurface(t *testing.T) {
	d := newTestDetector()

	content := `
client = OpenAI(base_url="https://bedrock-runtime.us-east-1.amazonaws.com/openai/v1")
response = client.chat.completions.create(model="gpt-oss", stream=True)
`
	findings := findingsOfType(d.Analyze(t.Context(), content, "openai_client.py"), "bedrock_api_call")
	require.Len(t, findings, 1)

	detail := findings[0].Detail
	assert.Equal(t, "openai_compatible", detail["api_style"])
	assert.Equal(t, true, detail["bedrock_confirmed"])
	assert.Equal(t, "streaming", detail["pattern"])
}

func TestAnalyzerPanicIsIsolated(t *testing.T) {
	d := newTestDetector()

	assert.NotPanics(t, func() {
		d.Analyze(t.Context(), strings.Repeat("converse(\n", 3), "x.py")
	})
}
