package bedrock

import (
	"fmt"
	"regexp"
	"strings"
)

// serviceTierRes covers the three call-argument syntaxes a service tier can
// appear in: quoted JSON-style keys, Python keyword arguments, and the
// camelCase TypeScript property.
var serviceTierRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)["']service_tier["']\s*:\s*["'](\w+)["']`),
	regexp.MustCompile(`(?i)service_tier\s*=\s*["'](\w+)["']`),
	regexp.MustCompile(`(?i)serviceTier\s*:\s*["'](\w+)["']`),
}

// missingTierContextLimit bounds the fallback context window when an API
// call's closing parenthesis cannot be found.
const missingTierContextLimit = 300

// serviceTierFacts holds the documented facts per tier. Facts, not
// recommendations.
type serviceTierFacts struct {
	Category          string
	Description       string
	PricingModel      string
	TypicalUseCases   string
	CapacityModel     string
	AccessRequirement string
}

var serviceTierTable = map[string]serviceTierFacts{
	"reserved": {
		Category:          "ultra-premium",
		Description:       "Reserved tier configured",
		PricingModel:      "Fixed price per 1K tokens-per-minute, billed monthly (1 or 3 month duration)",
		TypicalUseCases:   "Mission-critical applications with zero downtime requirements, 99.5% uptime target",
		CapacityModel:     "Pre-reserved prioritised compute capacity with automatic overflow to Standard tier",
		AccessRequirement: "Contact the AWS account team for access",
	},
	"priority": {
		Category:        "premium",
		Description:     "Priority tier configured",
		PricingModel:    "Price premium over standard on-demand pricing",
		TypicalUseCases: "Mission-critical applications, customer-facing chatbots, real-time translation",
	},
	"default": {
		Category:        "standard",
		Description:     "Standard tier configured (default)",
		PricingModel:    "Standard on-demand pricing",
		TypicalUseCases: "Content generation, text analysis, routine document processing",
	},
	"standard": {
		Category:        "standard",
		Description:     "Standard tier configured",
		PricingModel:    "Standard on-demand pricing",
		TypicalUseCases: "Content generation, text analysis, routine document processing",
	},
	"flex": {
		Category:        "cost-optimized",
		Description:     "Flex tier configured",
		PricingModel:    "Pricing discount compared to standard",
		TypicalUseCases: "Model evaluations, content summarisation, agentic workflows, batch processing",
	},
}

func serviceTierInfo(tierValue string) serviceTierFacts {
	if facts, ok := serviceTierTable[tierValue]; ok {
		return facts
	}
	return serviceTierFacts{
		Category:        "unknown",
		Description:     fmt.Sprintf("Service tier configured: %s", tierValue),
		PricingModel:    "Unknown - verify the tier value against the Bedrock documentation",
		TypicalUseCases: "Unknown",
	}
}

// detectServiceTier reports every explicitly configured service_tier and, for
// each API call without one, a missing-tier optimisation finding. The scope of
// each call is limited with the balanced scanner so the check never reads past
// the call's argument list.
func (d *Detector) detectServiceTier(content, filePath string) []Finding {
	var findings []Finding

	for _, re := range serviceTierRes {
		for _, loc := range re.FindAllStringSubmatchIndex(content, -1) {
			tierValue := strings.ToLower(content[loc[2]:loc[3]])
			facts := serviceTierInfo(tierValue)

			detail := map[string]any{
				"service_tier":      tierValue,
				"tier_category":     facts.Category,
				"service":           "bedrock",
				"description":       facts.Description,
				"pricing_model":     facts.PricingModel,
				"typical_use_cases": facts.TypicalUseCases,
				"documentation":     "https://docs.aws.amazon.com/bedrock/latest/userguide/service-tiers-inference.html",
			}
			if facts.CapacityModel != "" {
				detail["capacity_model"] = facts.CapacityModel
			}
			if facts.AccessRequirement != "" {
				detail["access_requirement"] = facts.AccessRequirement
			}

			findings = append(findings, Finding{
				Type:   "bedrock_service_tier",
				File:   filePath,
				Line:   lineOf(content, loc[0]),
				Detail: detail,
			})
		}
	}

	for _, p := range invokePatterns {
		for _, loc := range p.re.FindAllStringIndex(content, -1) {
			callContext := callSpan(content, loc[1]-1, missingTierContextLimit)

			hasTier := false
			for _, re := range serviceTierRes {
				if re.MatchString(callContext) {
					hasTier = true
					break
				}
			}
			if hasTier {
				continue
			}

			findings = append(findings, Finding{
				Type: "bedrock_service_tier_missing",
				File: filePath,
				Line: lineOf(content, loc[0]),
				Detail: map[string]any{
					"api_call":                 p.name,
					"service_tier":             "default (implicit)",
					"service":                  "bedrock",
					"optimization_opportunity": true,
					"description":              fmt.Sprintf("%s call without service_tier parameter", p.name),
					"issue":                    "Using the default (Standard) tier without considering cost optimisation",
					"recommendation":           "Consider adding a service_tier parameter based on workload requirements. Flex tier offers cost savings for non-latency-sensitive workloads (batch processing, content summarisation, model evaluations).",
					"cost_consideration":       "Flex tier provides a pricing discount over Standard for workloads that tolerate slightly longer response times",
					"next_steps": []string{
						"Assess whether the workload is latency-sensitive (real-time chat, customer-facing) or can tolerate delays (batch, background)",
						"For non-latency-sensitive workloads: add service_tier='flex' for cost savings",
						"For latency-sensitive workloads: keep the default or use service_tier='priority'",
						"Compare Standard vs Flex pricing for the model in use",
					},
					"documentation": "https://docs.aws.amazon.com/bedrock/latest/userguide/service-tiers-inference.html",
				},
			})
		}
	}

	return findings
}
