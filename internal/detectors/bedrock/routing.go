package bedrock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var routerARNRe = regexp.MustCompile(`(?i)arn:aws:bedrock:[a-z0-9\-]+:\d+:prompt-router/[a-z0-9]+`)

// complexityLevels is the ordered keyword table for scoring prompt complexity
// on a 1-5 scale. Every matching category is collected and the highest wins.
var complexityLevels = []struct {
	score    int
	patterns []*regexp.Regexp
}{
	{1, compileAll(`\bsummarize\b`, `\blist\b`, `\bextract\b`, `\bbrief\b`, `\bconcise\b`)},
	{2, compileAll(`\bexplain\b`, `\bdescribe\b`, `\boutline\b`)},
	{3, compileAll(`\banalyze\b`, `\bcompare\b`, `\bassess\b`, `\bevaluate\b`)},
	{4, compileAll(`\bdetailed\b.*\banalysis\b`, `\bmultiple perspectives\b`, `\bcomprehensive\b`,
		`\bsystematically\b`, `\breasoning\b`, `\bthink step by step\b`)},
	{5, compileAll(`\bextremely detailed\b`, `\bresearch-level\b`, `\bin great detail\b`,
		`\bcarefully.*evaluate.*multiple\b`, `\bconsider edge cases\b`)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// estimatePromptComplexity scores a prompt from 1 (simple extraction) to 5
// (research-level analysis). Prompts with no matching indicators default to
// moderate (2).
func estimatePromptComplexity(promptText string) int {
	lower := strings.ToLower(promptText)

	highest := 0
	for _, level := range complexityLevels {
		for _, re := range level.patterns {
			if re.MatchString(lower) {
				if level.score > highest {
					highest = level.score
				}
				break
			}
		}
	}

	if highest == 0 {
		return 2
	}
	return highest
}

// routingComplexityRange is the minimum complexity spread (on the 1-5 scale)
// that makes routing worthwhile.
const routingComplexityRange = 2

type modelUsage struct {
	modelID string
	tier    TierClassification
	line    int
	family  string
}

// detectPromptRouting reports existing prompt-router usage (and stops there),
// or inspects the model-usage findings collected earlier in the scan for the
// three routing opportunity shapes.
func (d *Detector) detectPromptRouting(ctx context.Context, content, filePath string, existing []Finding) []Finding {
	var findings []Finding

	// Existing router: positive feedback, no further suggestions.
	if routerLocs := routerARNRe.FindAllStringIndex(content, -1); len(routerLocs) > 0 {
		for _, loc := range routerLocs {
			findings = append(findings, Finding{
				Type: "prompt_routing_detected",
				File: filePath,
				Line: lineOf(content, loc[0]),
				Detail: map[string]any{
					"router_arn":         content[loc[0]:loc[1]],
					"service":            "bedrock",
					"description":        "Prompt Routing is enabled",
					"cost_consideration": "Prompt Routing automatically optimises cost by routing simple prompts to cheaper models and complex prompts to more capable models.",
					"best_practices": []string{
						"Monitor routing decisions via CloudWatch metrics (PromptRouterInvocations)",
						"Review which prompts route to which models using CloudWatch Logs",
						"Adjust routing criteria in the console if needed",
						"Track cost savings against a single-model baseline",
					},
					"documentation": "https://docs.aws.amazon.com/bedrock/latest/userguide/prompt-routing.html",
				},
			})
		}
		return findings
	}

	// Collect model usage from the findings produced earlier in this pass.
	var usages []modelUsage
	for _, f := range existing {
		if f.Type != "bedrock_model_usage" {
			continue
		}
		modelID, _ := f.Detail["model_id"].(string)
		parsed, _ := f.Detail["parsed"].(ModelIdentifier)
		usages = append(usages, modelUsage{
			modelID: modelID,
			tier:    ClassifyModelTier(modelID),
			line:    f.Line,
			family:  parsed.Family,
		})
	}
	if len(usages) == 0 {
		return findings
	}

	byFamily := map[string][]modelUsage{}
	familyOrder := []string{}
	var premiumModels []modelUsage
	for _, u := range usages {
		if u.family != "" {
			if _, seen := byFamily[u.family]; !seen {
				familyOrder = append(familyOrder, u.family)
			}
			byFamily[u.family] = append(byFamily[u.family], u)
		}
		if u.tier.Tier == "premium" || u.tier.Tier == "ultra-premium" {
			premiumModels = append(premiumModels, u)
		}
	}

	// Opportunity 1: multiple distinct models from the same family.
	for _, family := range familyOrder {
		models := byFamily[family]
		unique := map[string]bool{}
		var modelIDs, tierNames []string
		for _, m := range models {
			if !unique[m.modelID] {
				unique[m.modelID] = true
			}
			modelIDs = append(modelIDs, m.modelID)
			tierNames = append(tierNames, m.tier.TierName)
		}
		if len(unique) < 2 {
			continue
		}

		findings = append(findings, Finding{
			Type: "prompt_routing_opportunity",
			File: filePath,
			Line: models[0].line,
			Detail: map[string]any{
				"subtype":            "multiple_models_same_family",
				"service":            "bedrock",
				"model_family":       family,
				"models_detected":    modelIDs,
				"tiers_detected":     tierNames,
				"description":        fmt.Sprintf("Multiple %s models detected: %s", family, strings.Join(tierNames, ", ")),
				"issue":              "Manual model selection logic detected",
				"cost_consideration": fmt.Sprintf("Using multiple %s models suggests conditional model selection. Prompt Routing can automate this and optimise costs by selecting the best model per request.", family),
				"optimization": map[string]any{
					"technique":         "Bedrock Prompt Routing",
					"benefit":           "Automatic model selection based on prompt complexity",
					"potential_savings": "30-50% by routing simple prompts to cheaper models",
					"how_it_works": []string{
						"Create a prompt router in the Bedrock console",
						"Configure the quality vs cost trade-off",
						"Replace model IDs with the router ARN",
						"The router selects the optimal model per request",
					},
				},
				"documentation": "https://docs.aws.amazon.com/bedrock/latest/userguide/prompt-routing.html",
				"action":        "Consider replacing manual model selection with Bedrock Prompt Routing",
			},
		})
	}

	// Opportunity 2: mixed-complexity prompts on a premium model.
	findings = append(findings, d.analyzeComplexityVariation(ctx, content, filePath)...)

	// Opportunity 3: a premium model whose family could not be parsed, used
	// across prompts with a significant complexity spread. Reported at most
	// once per file.
	if len(premiumModels) > 0 && len(byFamily) == 0 {
		for _, model := range premiumModels {
			prompts := d.findPrompts(ctx, content, filePath)
			if len(prompts) < 2 {
				continue
			}

			minC, maxC := complexityBounds(prompts)
			if maxC-minC < routingComplexityRange {
				continue
			}

			findings = append(findings, Finding{
				Type: "prompt_routing_opportunity",
				File: filePath,
				Line: model.line,
				Detail: map[string]any{
					"subtype":       "premium_tier_with_mixed_complexity",
					"service":       "bedrock",
					"current_model": model.modelID,
					"current_tier":  model.tier.TierName,
					"tier_level":    model.tier.Tier,
					"complexity_variation": map[string]int{
						"min":   minC,
						"max":   maxC,
						"range": maxC - minC,
					},
					"description":        fmt.Sprintf("Using %s (%s) for all requests, but prompts vary in complexity", model.tier.TierName, model.tier.Tier),
					"issue":              fmt.Sprintf("Paying %s pricing for all prompts, including simple ones", model.tier.Tier),
					"cost_consideration": fmt.Sprintf("Using %s for all requests, but detected prompts with complexity range %d-%d. Prompt Routing could use cheaper models for simpler prompts while keeping %s for complex ones.", model.tier.TierName, minC, maxC, model.tier.TierName),
					"optimization": map[string]any{
						"technique":         "Bedrock Prompt Routing",
						"current_cost":      fmt.Sprintf("All prompts use %s pricing", model.tier.TierName),
						"with_routing":      "Simple prompts to cheaper models, complex prompts to the current model",
						"potential_savings": "50%+ for simple prompts routed to cheaper models",
						"setup_steps": []string{
							"Create a prompt router in the Bedrock console",
							"Configure routing criteria (balance quality vs cost)",
							"Replace the model ID with the router ARN in code",
							"Monitor routing decisions via CloudWatch",
						},
					},
					"documentation": "https://docs.aws.amazon.com/bedrock/latest/userguide/prompt-routing.html",
					"action":        "Consider Bedrock Prompt Routing to automatically optimise model selection",
				},
			})
			break
		}
	}

	return findings
}

// analyzeComplexityVariation suggests routing when a file holds at least two
// prompts whose complexity spread reaches routingComplexityRange and the first
// detected model sits in a premium tier.
func (d *Detector) analyzeComplexityVariation(ctx context.Context, content, filePath string) []Finding {
	prompts := d.findPrompts(ctx, content, filePath)
	if len(prompts) < 2 {
		return nil
	}

	minC, maxC := complexityBounds(prompts)
	if maxC-minC < routingComplexityRange {
		return nil
	}

	modelMatch := modelIDRe.FindStringSubmatch(content)
	if modelMatch == nil {
		return nil
	}

	modelID := modelMatch[1]
	tier := ClassifyModelTier(modelID)
	if tier.Tier != "premium" && tier.Tier != "ultra-premium" {
		return nil
	}

	parsed := ParseModelID(modelID)
	displayName := parsed.Family
	if parsed.Tier != "" {
		displayName = fmt.Sprintf("%s-%s", parsed.Family, parsed.Tier)
	}

	return []Finding{{
		Type: "prompt_routing_opportunity",
		File: filePath,
		Line: prompts[0].Line,
		Detail: map[string]any{
			"subtype":               "mixed_complexity_prompts",
			"service":               "bedrock",
			"current_model":         modelID,
			"current_model_display": displayName,
			"current_tier":          tier.TierName,
			"complexity_variation": map[string]int{
				"min":          minC,
				"max":          maxC,
				"range":        maxC - minC,
				"prompt_count": len(prompts),
			},
			"description":        fmt.Sprintf("Mixed complexity prompts detected (range: %d-%d) using %s", minC, maxC, tier.TierName),
			"cost_consideration": fmt.Sprintf("Using %s for all %d prompts, but complexity varies significantly. Prompt Routing could save 50%%+ by routing simple prompts to cheaper models.", tier.TierName, len(prompts)),
			"potential_savings":  "50%+ for simple prompts routed to cheaper models",
			"optimization": map[string]any{
				"technique":      "Bedrock Prompt Routing",
				"recommendation": "Let Bedrock automatically route based on complexity",
				"documentation":  "https://docs.aws.amazon.com/bedrock/latest/userguide/prompt-routing.html",
			},
		},
	}}
}

func complexityBounds(prompts []Prompt) (minC, maxC int) {
	minC, maxC = 6, 0
	for _, p := range prompts {
		c := estimatePromptComplexity(p.Text)
		if c < minC {
			minC = c
		}
		if c > maxC {
			maxC = c
		}
	}
	return minC, maxC
}
