package bedrock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyModelTier(t *testing.T) {
	tests := []struct {
		name       string
		modelID    string
		wantTier   string
		wantFamily string
		wantName   string
	}{
		{
			name:       "claude opus",
			modelID:    "anthropic.claude-opus-4-1-20250805-v1:0",
			wantTier:   "ultra-premium",
			wantFamily: "anthropic-claude",
			wantName:   "Opus/Claude 4",
		},
		{
			name:       "claude sonnet 3.7",
			modelID:    "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
			wantTier:   "premium",
			wantFamily: "anthropic-claude",
			wantName:   "Sonnet",
		},
		{
			name:       "claude sonnet 3.5",
			modelID:    "anthropic.claude-3.5-sonnet-20240620-v1:0",
			wantTier:   "premium",
			wantFamily: "anthropic-claude",
			wantName:   "Sonnet 3.5",
		},
		{
			name:       "claude haiku",
			modelID:    "anthropic.claude-3-haiku-20240307-v1:0",
			wantTier:   "cost-effective",
			wantFamily: "anthropic-claude",
			wantName:   "Haiku",
		},
		{
			name:       "nova premier",
			modelID:    "amazon.nova-premier-v1:0",
			wantTier:   "ultra-premium",
			wantFamily: "amazon-nova",
			wantName:   "Premier",
		},
		{
			name:       "nova pro",
			modelID:    "us.amazon.nova-pro-v1:0",
			wantTier:   "premium",
			wantFamily: "amazon-nova",
			wantName:   "Pro",
		},
		{
			name:       "nova lite",
			modelID:    "amazon.nova-lite-v1:0",
			wantTier:   "cost-effective",
			wantFamily: "amazon-nova",
			wantName:   "Lite",
		},
		{
			name:       "nova micro",
			modelID:    "amazon.nova-micro-v1:0",
			wantTier:   "ultra-cost-effective",
			wantFamily: "amazon-nova",
			wantName:   "Micro",
		},
		{
			name:       "llama 70b",
			modelID:    "meta.llama3-1-70b-instruct-v1:0",
			wantTier:   "premium",
			wantFamily: "meta-llama",
			wantName:   "Large (70B/405B)",
		},
		{
			name:       "llama 8b",
			modelID:    "meta.llama3-1-8b-instruct-v1:0",
			wantTier:   "cost-effective",
			wantFamily: "meta-llama",
			wantName:   "Small (8B)",
		},
		{
			name:       "unknown family",
			modelID:    "mistral.mistral-large-2407-v1:0",
			wantTier:   "unknown",
			wantFamily: "unknown",
			wantName:   "Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyModelTier(tt.modelID)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantFamily, got.ModelFamily)
			assert.Equal(t, tt.wantName, got.TierName)
		})
	}
}

func TestTierCostConsideration(t *testing.T) {
	premium := ClassifyModelTier("us.anthropic.claude-3-7-sonnet-20250219-v1:0")
	assert.Contains(t, tierCostConsideration(premium), "anthropic-claude Sonnet tier detected")

	unknown := ClassifyModelTier("acme.some-model-v1")
	assert.Contains(t, tierCostConsideration(unknown), "classification unknown")
}
