package bedrock

import (
	"regexp"
	"strings"
)

var (
	// bedrockModelOpenRe locates the opening parenthesis of a BedrockModel
	// constructor. The argument span is then extracted with the balanced
	// scanner rather than a nested-quantifier regex, which is what keeps this
	// extractor linear on adversarial input.
	bedrockModelOpenRe = regexp.MustCompile(`BedrockModel\s*\(`)

	modelIDParamRe = regexp.MustCompile(`model_id\s*=\s*["']([^"']+)["']`)
	streamingRe    = regexp.MustCompile(`(?i)streaming\s*=\s*(True|False)`)
	lambdaHandler  = "lambda_handler"
)

// configCallContextLimit caps how far past an unbalanced opening parenthesis
// the extractor will look for parameters.
const configCallContextLimit = 1000

// StreamingAssessment classifies a streaming configuration against its file
// context.
type StreamingAssessment struct {
	Status           string `json:"status"`
	Issue            string `json:"issue,omitempty"`
	Note             string `json:"note,omitempty"`
	Recommendation   string `json:"recommendation,omitempty"`
	Optimization     string `json:"optimization,omitempty"`
	PotentialSavings string `json:"potential_savings,omitempty"`
	Consideration    string `json:"consideration,omitempty"`
	AppropriateFor   string `json:"appropriate_for,omitempty"`
}

// assessStreaming classifies streaming use as a Lambda risk, appropriate, or
// synchronous-ok. Lambda context is inferred from the file path or the
// presence of a Lambda handler in the content.
func assessStreaming(streaming bool, filePath, content string) StreamingAssessment {
	pathLower := strings.ToLower(filePath)
	isLambda := strings.Contains(pathLower, "lambda") ||
		strings.Contains(pathLower, "handler") ||
		strings.Contains(content, lambdaHandler)

	switch {
	case streaming && isLambda:
		return StreamingAssessment{
			Status:           "Streaming enabled in Lambda context",
			Issue:            "Streaming extends Lambda execution time, increasing costs",
			Recommendation:   "Disable streaming for batch/Lambda processing",
			Optimization:     "Set streaming=False for faster synchronous responses",
			PotentialSavings: "10-20% reduction in Lambda execution costs",
		}
	case streaming:
		return StreamingAssessment{
			Status:        "Streaming enabled",
			Note:          "Appropriate for real-time UI/API responses",
			Consideration: "Streaming is good for user experience but extends compute time",
		}
	default:
		return StreamingAssessment{
			Status:         "Synchronous mode",
			Note:           "Faster response, lower compute costs",
			AppropriateFor: "Batch processing, Lambda functions, background jobs",
		}
	}
}

// detectModelConfigs finds BedrockModel(...) constructor calls and analyses
// their model_id and streaming settings.
func (d *Detector) detectModelConfigs(content, filePath string) []Finding {
	var findings []Finding

	for _, loc := range bedrockModelOpenRe.FindAllStringIndex(content, -1) {
		openParen := loc[1] - 1
		params := callSpan(content, openParen, configCallContextLimit)

		modelID := ""
		if m := modelIDParamRe.FindStringSubmatch(params); m != nil {
			modelID = m[1]
		}
		if modelID == "" {
			continue
		}

		tier := ClassifyModelTier(modelID)
		detail := map[string]any{
			"model_id":           modelID,
			"model_tier":         tier.Tier,
			"model_family":       tier.ModelFamily,
			"tier_name":          tier.TierName,
			"service":            "bedrock",
			"cost_consideration": tierCostConsideration(tier),
			"optimization":       tierOptimizationGuidance(tier),
		}

		if m := streamingRe.FindStringSubmatch(params); m != nil {
			streaming := strings.EqualFold(m[1], "true")
			detail["streaming"] = streaming
			detail["streaming_assessment"] = assessStreaming(streaming, filePath, content)
		}

		findings = append(findings, Finding{
			Type:   "bedrock_model_config",
			File:   filePath,
			Line:   lineOf(content, loc[0]),
			Detail: detail,
		})
	}

	return findings
}
