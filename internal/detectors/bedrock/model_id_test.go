package bedrock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModelID(t *testing.T) {
	tests := []struct {
		name     string
		modelID  string
		expected ModelIdentifier
	}{
		{
			name:    "cross-region claude sonnet",
			modelID: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
			expected: ModelIdentifier{
				FullID:       "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
				Provider:     "anthropic",
				Family:       "claude",
				Tier:         "sonnet",
				Version:      "3.7",
				RegionPrefix: "us",
			},
		},
		{
			name:    "nova pro",
			modelID: "amazon.nova-pro-v1:0",
			expected: ModelIdentifier{
				FullID:   "amazon.nova-pro-v1:0",
				Provider: "amazon",
				Family:   "nova",
				Tier:     "pro",
				Version:  "1.0",
			},
		},
		{
			name:    "global claude opus",
			modelID: "global.anthropic.claude-opus-4-1-20250805-v1:0",
			expected: ModelIdentifier{
				FullID:       "global.anthropic.claude-opus-4-1-20250805-v1:0",
				Provider:     "anthropic",
				Family:       "claude",
				Tier:         "opus",
				Version:      "4.1",
				RegionPrefix: "global",
			},
		},
		{
			name:    "claude haiku date-suffixed",
			modelID: "anthropic.claude-haiku-4-20250514-v1:0",
			expected: ModelIdentifier{
				FullID:   "anthropic.claude-haiku-4-20250514-v1:0",
				Provider: "anthropic",
				Family:   "claude",
				Tier:     "haiku",
				Version:  "4",
			},
		},
		{
			name:    "titan embeddings",
			modelID: "amazon.titan-embed-text-v2",
			expected: ModelIdentifier{
				FullID:   "amazon.titan-embed-text-v2",
				Provider: "amazon",
				Family:   "titan",
				Tier:     "embed",
				Version:  "2",
			},
		},
		{
			name:    "llama with size",
			modelID: "meta.llama3-1-70b-instruct-v1:0",
			expected: ModelIdentifier{
				FullID:   "meta.llama3-1-70b-instruct-v1:0",
				Provider: "meta",
				Family:   "llama",
				Tier:     "70b",
				Version:  "3.1",
			},
		},
		{
			name:    "mistral generic",
			modelID: "mistral.mistral-large-2407-v1:0",
			expected: ModelIdentifier{
				FullID:   "mistral.mistral-large-2407-v1:0",
				Provider: "mistral",
				Family:   "mistral",
				Version:  "1.0",
			},
		},
		{
			name:    "apac region prefix",
			modelID: "apac.amazon.nova-lite-v1:0",
			expected: ModelIdentifier{
				FullID:       "apac.amazon.nova-lite-v1:0",
				Provider:     "amazon",
				Family:       "nova",
				Tier:         "lite",
				Version:      "1.0",
				RegionPrefix: "apac",
			},
		},
		{
			name:     "unrecognised provider keeps only full ID",
			modelID:  "acme.some-model-v1",
			expected: ModelIdentifier{FullID: "acme.some-model-v1", Provider: "acme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseModelID(tt.modelID))
		})
	}
}

func TestParseModelIDNeverPanics(t *testing.T) {
	for _, id := range []string{"", ".", "us.", "anthropic.", "amazon.nova", "meta.llama"} {
		assert.NotPanics(t, func() { ParseModelID(id) }, "input %q", id)
	}
}
