package bedrock

import (
	"fmt"
	"regexp"
	"strings"
)

// ModelIdentifier is the parsed form of a Bedrock model ID string such as
// "us.anthropic.claude-3-7-sonnet-20250219-v1:0". Parsing is best-effort:
// unrecognised identifiers leave fields empty rather than erroring.
type ModelIdentifier struct {
	FullID       string `json:"full_model_id"`
	Provider     string `json:"provider,omitempty"`
	Family       string `json:"family,omitempty"`
	Tier         string `json:"tier,omitempty"`
	Version      string `json:"version,omitempty"`
	RegionPrefix string `json:"region_prefix,omitempty"`
}

var (
	regionPrefixRe = regexp.MustCompile(`^(global|us|eu|apac)\.`)
	providerRe     = regexp.MustCompile(`^([a-z0-9]+)\.`)

	// Claude version patterns, tried in order of decreasing specificity.
	// First match wins.
	claudeVersionRes = []*regexp.Regexp{
		regexp.MustCompile(`claude-(\d+)-(\d+)-(?:sonnet|haiku|opus)`), // claude-3-7-sonnet
		regexp.MustCompile(`(?:sonnet|haiku|opus)-(\d+)-(\d+)-\d{8}`),  // sonnet-4-5-20250929
		regexp.MustCompile(`(?:sonnet|haiku|opus)-(\d+)-\d{8}`),        // sonnet-4-20250514
		regexp.MustCompile(`claude-(\d+)-(\d+)`),                       // claude-3-7
		regexp.MustCompile(`claude-(\d+\.\d+)`),                        // claude-3.7
	}

	novaVersionRe    = regexp.MustCompile(`-v(\d+):(\d+)`)
	titanVersionRe   = regexp.MustCompile(`-v(\d+)`)
	llamaVersionRe   = regexp.MustCompile(`llama(\d+)(?:-(\d+))?`)
	llamaSizeRe      = regexp.MustCompile(`(\d+)b`)
	genericVersionRe = regexp.MustCompile(`-v(\d+)(?::(\d+))?`)
)

// tierTable is an ordered first-match-wins substring dispatch table.
type tierTable []string

func (t tierTable) match(s string) string {
	for _, tier := range t {
		if strings.Contains(s, tier) {
			return tier
		}
	}
	return ""
}

var (
	claudeTiers = tierTable{"opus", "sonnet", "haiku"}
	novaTiers   = tierTable{"premier", "pro", "lite", "micro", "canvas", "reel", "sonic"}
	titanTiers  = tierTable{"embed", "text", "image"}
)

// ParseModelID parses a raw Bedrock model identifier into its structured
// components. It never fails; a string with no recognised provider token
// yields a ModelIdentifier with only FullID set.
func ParseModelID(modelID string) ModelIdentifier {
	parsed := ModelIdentifier{FullID: modelID}
	lower := strings.ToLower(modelID)

	if m := regionPrefixRe.FindStringSubmatch(lower); m != nil {
		parsed.RegionPrefix = m[1]
		lower = lower[len(m[0]):]
	}

	if m := providerRe.FindStringSubmatch(lower); m != nil {
		parsed.Provider = m[1]
	}

	switch {
	case strings.Contains(lower, "anthropic"):
		parsed.Family = "claude"
		parsed.Tier = claudeTiers.match(lower)
		for _, re := range claudeVersionRes {
			if m := re.FindStringSubmatch(lower); m != nil {
				if len(m) == 3 {
					parsed.Version = fmt.Sprintf("%s.%s", m[1], m[2])
				} else {
					parsed.Version = m[1]
				}
				break
			}
		}

	case strings.Contains(lower, "amazon"):
		if strings.Contains(lower, "nova") {
			parsed.Family = "nova"
			parsed.Tier = novaTiers.match(lower)
			if m := novaVersionRe.FindStringSubmatch(lower); m != nil {
				parsed.Version = fmt.Sprintf("%s.%s", m[1], m[2])
			}
		} else if strings.Contains(lower, "titan") {
			parsed.Family = "titan"
			parsed.Tier = titanTiers.match(lower)
			if m := titanVersionRe.FindStringSubmatch(lower); m != nil {
				parsed.Version = m[1]
			}
		}

	case strings.Contains(lower, "meta"):
		parsed.Family = "llama"
		if m := llamaVersionRe.FindStringSubmatch(lower); m != nil {
			if m[2] != "" {
				parsed.Version = fmt.Sprintf("%s.%s", m[1], m[2])
			} else {
				parsed.Version = m[1]
			}
		}
		if m := llamaSizeRe.FindStringSubmatch(lower); m != nil {
			parsed.Tier = m[1] + "b"
		}

	case strings.Contains(lower, "mistral"),
		strings.Contains(lower, "cohere"),
		strings.Contains(lower, "ai21"):
		parsed.Family = parsed.Provider
		if m := genericVersionRe.FindStringSubmatch(lower); m != nil {
			if m[2] != "" {
				parsed.Version = fmt.Sprintf("%s.%s", m[1], m[2])
			} else {
				parsed.Version = m[1]
			}
		}
	}

	return parsed
}
