package bedrock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// modelIDRe is the generic Bedrock model ID pattern. It matches any
// [region.]provider.model-name[-vN:M] identifier and requires at least one
// hyphen inside the model-name segment, which rejects lookalikes such as
// "meta.env" or "amazon.com".
var modelIDRe = regexp.MustCompile(`(?i)\b((?:global\.|us\.|eu\.|apac\.)?(?:anthropic|amazon|meta|cohere|mistral|ai21|stability|deepseek|openai|qwen|twelvelabs)\.[a-z0-9]+(?:-[a-z0-9]+)+(?:-v\d+:\d+)?(?::\d+k)?(?::mm)?)\b`)

// clientRes detect Bedrock client initialisation in any supported language:
// boto3 construction, imports, provider wrapper classes, and the
// Bedrock-compatible OpenAI endpoint.
var clientRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)boto3\.client\(['"]bedrock-runtime['"]`),
	regexp.MustCompile(`(?i)from\s+.*bedrock.*\s+import`),
	regexp.MustCompile(`(?i)BedrockRuntime`),
	regexp.MustCompile(`(?i)@aws-sdk/client-bedrock`),
	regexp.MustCompile(`(?i)from\s+strands\.models\s+import\s+BedrockModel`),
	regexp.MustCompile(`(?i)BedrockModel\s*\(`),
	regexp.MustCompile(`(?i)bedrock-runtime\.[a-z0-9-]+\.amazonaws\.com/openai`),
}

// invokePattern ties an API call-site name to its syntax. The slice is ordered
// so repeated scans of the same content emit findings in a stable order.
type invokePattern struct {
	name string
	re   *regexp.Regexp
}

// invokePatterns covers direct Bedrock Runtime calls, the Bedrock-compatible
// OpenAI Chat Completions surface, and the common LangChain wrappers.
var invokePatterns = []invokePattern{
	{"invoke_model", regexp.MustCompile(`invoke_model\s*\(`)},
	{"invoke_model_with_response_stream", regexp.MustCompile(`invoke_model_with_response_stream\s*\(`)},
	{"converse", regexp.MustCompile(`converse\s*\(`)},
	{"converse_stream", regexp.MustCompile(`converse_stream\s*\(`)},
	{"chat_completions_create", regexp.MustCompile(`chat\.completions\.create\s*\(`)},
	{"ChatBedrockConverse", regexp.MustCompile(`ChatBedrockConverse\s*\(`)},
	{"ChatBedrock", regexp.MustCompile(`ChatBedrock\s*\(`)},
	{"BedrockLLM", regexp.MustCompile(`BedrockLLM\s*\(`)},
	{"Bedrock", regexp.MustCompile(`Bedrock\s*\(`)},
}

var (
	maxTokensRe       = regexp.MustCompile(`(?i)max_tokens['"]?\s*[:=]\s*(\d+)`)
	streamTrueRe      = regexp.MustCompile(`(?i)stream\s*=\s*True`)
	bedrockEndpointRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)base_url\s*=\s*["'].*bedrock-runtime.*["']`),
		regexp.MustCompile(`(?i)bedrock-runtime\.[a-z0-9-]+\.amazonaws\.com/openai`),
		regexp.MustCompile(`(?i)BEDROCK.*endpoint`),
	}
)

// highTokenLimit is the max_tokens value above which a configuration is
// flagged as high.
const highTokenLimit = 4000

func hasBedrockClient(content string) bool {
	for _, re := range clientRes {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func isBedrockOpenAIClient(content string) bool {
	for _, re := range bedrockEndpointRe {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

// falsePositiveMarkers are human-readable message markers. A model ID sharing
// a line with one of these is almost always documentation or a validation
// string, not a call site.
var falsePositiveMarkers = []string{"raise ", "error", "invalid", "expected one of", "not supported", "deprecated"}

// isLikelyFalsePositive discards model-ID matches that sit inside comments,
// docstrings, or validation messages. The docstring check inspects a bounded
// window of preceding text, so it is a heuristic rather than a full parse.
func isLikelyFalsePositive(content string, start int) bool {
	lineStart := strings.LastIndexByte(content[:start], '\n') + 1
	prefix := strings.TrimSpace(content[lineStart:start])
	for _, marker := range []string{"#", "//", "*", "/*"} {
		if strings.HasPrefix(prefix, marker) {
			return true
		}
	}

	windowStart := start - 800
	if windowStart < 0 {
		windowStart = 0
	}
	window := content[windowStart:start]
	if strings.Count(window, `"""`)%2 == 1 || strings.Count(window, "'''")%2 == 1 {
		return true
	}

	lineEnd := strings.IndexByte(content[start:], '\n')
	if lineEnd == -1 {
		lineEnd = len(content)
	} else {
		lineEnd += start
	}
	line := strings.ToLower(content[lineStart:lineEnd])
	for _, marker := range falsePositiveMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// detectModels finds every Bedrock model ID occurrence, parses it, and emits a
// bedrock_model_usage finding with structured components and cross-region
// context. Matches flagged as likely false positives are dropped.
func (d *Detector) detectModels(content, filePath string) []Finding {
	var findings []Finding

	for _, loc := range modelIDRe.FindAllStringSubmatchIndex(content, -1) {
		start := loc[2]
		modelID := content[loc[2]:loc[3]]

		if isLikelyFalsePositive(content, start) {
			continue
		}

		parsed := ParseModelID(modelID)
		isCrossRegion := parsed.RegionPrefix != ""
		crossRegionType := ""
		switch parsed.RegionPrefix {
		case "global":
			crossRegionType = "global"
		case "us", "eu", "apac":
			crossRegionType = "geography-specific"
		}

		detail := map[string]any{
			"model_id":          modelID,
			"service":           "bedrock",
			"parsed":            parsed,
			"is_cross_region":   isCrossRegion,
			"cross_region_type": crossRegionType,
			"description":       fmt.Sprintf("Using %s %s (model_id: %s)", parsed.Family, parsed.Tier, modelID),
			"enrichment_required": map[string]any{
				"priority": "HIGH",
				"why":      "Must verify if this is the latest available model and compare pricing",
				"steps": []string{
					"List available foundation models for this provider (aws bedrock list-foundation-models) and check modelLifecycle status",
					"Compare the detected model ID against newer release dates in the catalogue",
					"Compare pricing only for ACTIVE replacements; if the pricing API lags, say so and link the console pricing page",
				},
				"pricing_console_link": "https://aws.amazon.com/bedrock/pricing/",
				"critical_rules": []string{
					"Never recommend model changes without checking the live catalogue",
					"Never recommend downgrading to older models",
					"Never invent pricing numbers - if unavailable, say so",
				},
			},
		}

		if isCrossRegion {
			detail["cross_region_warning"] = map[string]any{
				"type":           crossRegionType,
				"message":        fmt.Sprintf("Using %s cross-region inference profile. Be cautious with prompt caching (can increase costs).", crossRegionType),
				"recommendation": "Consider using single-region model ID if prompt caching is enabled",
			}
		}

		findings = append(findings, Finding{
			Type:   "bedrock_model_usage",
			File:   filePath,
			Line:   lineOf(content, start),
			Detail: detail,
		})
	}

	return findings
}

// detectAPICalls finds Bedrock API call sites. Streaming calls are identified
// by a "stream" substring in the call name; the OpenAI-compatible surface gets
// extra context about whether the client actually points at Bedrock.
func (d *Detector) detectAPICalls(content, filePath string) []Finding {
	var findings []Finding

	for _, p := range invokePatterns {
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			pattern := "synchronous"
			if strings.Contains(strings.ToLower(p.name), "stream") {
				pattern = "streaming"
			}

			detail := map[string]any{
				"call_type": p.name,
				"service":   "bedrock",
			}

			if p.name == "chat_completions_create" {
				detail["api_style"] = "openai_compatible"
				detail["description"] = "OpenAI Chat Completions API call (Bedrock-compatible)"

				windowEnd := loc[0] + 500
				if windowEnd > len(content) {
					windowEnd = len(content)
				}
				if streamTrueRe.MatchString(content[loc[0]:windowEnd]) {
					pattern = "streaming"
				}

				if isBedrockOpenAIClient(content) {
					detail["bedrock_confirmed"] = true
					detail["note"] = "Using OpenAI SDK with Bedrock Runtime endpoint"
				} else {
					detail["bedrock_confirmed"] = false
					detail["note"] = "OpenAI SDK detected - verify if using Bedrock endpoint"
				}
			}

			detail["pattern"] = pattern
			findings = append(findings, Finding{
				Type:   "bedrock_api_call",
				File:   filePath,
				Line:   lineOf(content, loc[0]),
				Detail: detail,
			})
		}
	}

	return findings
}

// detectTokenPatterns reports max_tokens assignments, flagging values above
// highTokenLimit.
func (d *Detector) detectTokenPatterns(content, filePath string) []Finding {
	var findings []Finding

	for _, loc := range maxTokensRe.FindAllStringSubmatchIndex(content, -1) {
		tokenCount, err := strconv.Atoi(content[loc[2]:loc[3]])
		if err != nil {
			continue
		}

		note := "Token limit configured"
		if tokenCount > highTokenLimit {
			note = "High token limit"
		}

		findings = append(findings, Finding{
			Type: "token_configuration",
			File: filePath,
			Line: lineOf(content, loc[0]),
			Detail: map[string]any{
				"max_tokens": tokenCount,
				"service":    "bedrock",
				"note":       note,
			},
		})
	}

	return findings
}
