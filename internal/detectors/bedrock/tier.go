package bedrock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TierClassification maps a model identifier onto a cost tier. It is a pure
// function of the lowercased model string.
type TierClassification struct {
	Tier        string  `json:"tier"` // ultra-premium, premium, cost-effective, ultra-cost-effective, unknown
	ModelFamily string  `json:"model_family"`
	TierName    string  `json:"tier_name"`
	Version     float64 `json:"version,omitempty"`
}

var claudeTierVersionRe = regexp.MustCompile(`claude-(\d+(?:\.\d+)?)`)

// ClassifyModelTier assigns a cost tier to a model ID. Unrecognised families
// classify as unknown rather than erroring.
func ClassifyModelTier(modelID string) TierClassification {
	lower := strings.ToLower(modelID)

	switch {
	case strings.Contains(lower, "claude"):
		version := 3.0
		if m := claudeTierVersionRe.FindStringSubmatch(lower); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				version = v
			}
		}

		var tier, tierName string
		switch {
		case strings.Contains(lower, "opus") || strings.Contains(lower, "4-") ||
			strings.Contains(lower, "4.") || version >= 4.0:
			tier = "ultra-premium"
			if version >= 4.0 {
				tierName = fmt.Sprintf("Opus/Claude %g", version)
			} else {
				tierName = "Opus/Claude 4"
			}
		case strings.Contains(lower, "sonnet"):
			tier = "premium"
			switch {
			case version >= 3.7:
				tierName = fmt.Sprintf("Sonnet %g", version)
			case version >= 3.5:
				tierName = "Sonnet 3.5"
			default:
				tierName = "Sonnet"
			}
		case strings.Contains(lower, "haiku"):
			tier = "cost-effective"
			if version >= 3.5 {
				tierName = fmt.Sprintf("Haiku %g", version)
			} else {
				tierName = "Haiku"
			}
		default:
			tier = "unknown"
			tierName = "Unknown Claude tier"
		}

		return TierClassification{
			Tier:        tier,
			ModelFamily: "anthropic-claude",
			TierName:    tierName,
			Version:     version,
		}

	case strings.Contains(lower, "nova"):
		// First match wins, in tier order.
		novaTierTable := []struct{ substr, tier, name string }{
			{"premier", "ultra-premium", "Premier"},
			{"pro", "premium", "Pro"},
			{"lite", "cost-effective", "Lite"},
			{"micro", "ultra-cost-effective", "Micro"},
		}
		for _, entry := range novaTierTable {
			if strings.Contains(lower, entry.substr) {
				return TierClassification{
					Tier:        entry.tier,
					ModelFamily: "amazon-nova",
					TierName:    entry.name,
				}
			}
		}
		return TierClassification{
			Tier:        "unknown",
			ModelFamily: "amazon-nova",
			TierName:    "Unknown Nova tier",
		}

	case strings.Contains(lower, "llama"):
		if strings.Contains(lower, "70b") || strings.Contains(lower, "405b") {
			return TierClassification{
				Tier:        "premium",
				ModelFamily: "meta-llama",
				TierName:    "Large (70B/405B)",
			}
		}
		return TierClassification{
			Tier:        "cost-effective",
			ModelFamily: "meta-llama",
			TierName:    "Small (8B)",
		}
	}

	return TierClassification{
		Tier:        "unknown",
		ModelFamily: "unknown",
		TierName:    "Unknown",
	}
}

// tierCostConsideration is the remediation text attached to model-config
// findings per cost tier.
func tierCostConsideration(tier TierClassification) string {
	switch tier.Tier {
	case "ultra-premium":
		return fmt.Sprintf("%s %s tier detected. Check for newer models or assess if the use case requires this tier.", tier.ModelFamily, tier.TierName)
	case "premium":
		return fmt.Sprintf("%s %s tier detected. Check for newer models or assess if the use case fits this tier.", tier.ModelFamily, tier.TierName)
	case "cost-effective", "ultra-cost-effective":
		return fmt.Sprintf("%s %s tier detected. Check for newer models or other optimisations.", tier.ModelFamily, tier.TierName)
	default:
		return fmt.Sprintf("%s %s tier classification unknown. Verify current models and pricing.", tier.ModelFamily, tier.TierName)
	}
}

// tierOptimizationGuidance summarises which workloads fit which tier. General
// guidance only - actual model recommendations require the live catalogue.
func tierOptimizationGuidance(tier TierClassification) map[string]any {
	return map[string]any{
		"technique":      "Model Tier Assessment",
		"current_tier":   tier.TierName,
		"current_family": tier.ModelFamily,
		"use_case_tier_fit": map[string]string{
			"ultra_premium":        "Extremely complex reasoning, research-level analysis, maximum accuracy required",
			"premium":              "Complex reasoning, analysis, creative writing, general-purpose production use",
			"cost_effective":       "Structured data extraction, classification, simple reasoning, simple Q&A",
			"ultra_cost_effective": "Very simple tasks, high-volume low-complexity workloads",
		},
		"tier_assessment": fmt.Sprintf("Current tier: %s (%s)", tier.TierName, tier.Tier),
		"next_steps":      "Check for newer models in this tier, or alternative tiers that might be more cost-effective",
	}
}
