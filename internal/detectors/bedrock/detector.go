package bedrock

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/genaiops/mcp-genai-cost/internal/filelinks"
	"github.com/sirupsen/logrus"
)

// Severity grades a finding. Most findings are informational; only the
// anti-pattern detectors assign medium/high.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is a single detected issue or observation. Type discriminates the
// payload held in Detail. Line is 1-based (count of newlines before the match
// start, plus one) and zero when the finding is file-scoped.
type Finding struct {
	Type     string         `json:"type"`
	File     string         `json:"file"`
	Line     int            `json:"line,omitempty"`
	Severity Severity       `json:"severity,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	FileLink string         `json:"file_link,omitempty"`
}

// Detector scans source text for Amazon Bedrock usage and cost-optimisation
// signals. It is stateless between calls to Analyze; a single instance is safe
// for concurrent use across files.
type Detector struct {
	logger  *logrus.Logger
	prompts PromptFinder // optional AI-backed finder, nil means regex only
	regex   RegexPromptFinder
	pricing Pricing
}

// Option configures a Detector.
type Option func(*Detector)

// WithPromptFinder sets an AI-backed prompt finder tried before the regex
// fallback. Failures from it are swallowed, never surfaced to callers.
func WithPromptFinder(pf PromptFinder) Option {
	return func(d *Detector) { d.prompts = pf }
}

// WithPricing overrides the default Nova caching price constants.
func WithPricing(p Pricing) Option {
	return func(d *Detector) { d.pricing = p }
}

// New creates a Detector.
func New(logger *logrus.Logger, opts ...Option) *Detector {
	d := &Detector{
		logger:  logger,
		pricing: DefaultPricing(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// analyzableExtensions are the file types the detector understands.
var analyzableExtensions = map[string]bool{
	".py":  true,
	".ts":  true,
	".js":  true,
	".tsx": true,
	".jsx": true,
}

// CanAnalyze reports whether the detector supports the given file type.
func (d *Detector) CanAnalyze(path string) bool {
	return analyzableExtensions[strings.ToLower(filepath.Ext(path))]
}

// Analyze runs every matcher and analyzer over one file's content and returns
// the merged finding list. Analyzer order is fixed: the routing advisor
// consumes the model-usage findings produced earlier in the same pass. A
// panicking analyzer is logged and skipped so the rest of the scan survives.
func (d *Detector) Analyze(ctx context.Context, content, filePath string) []Finding {
	findings := []Finding{}

	if hasBedrockClient(content) {
		findings = append(findings, Finding{
			Type: "bedrock_client_detected",
			File: filePath,
			Detail: map[string]any{
				"service":     "bedrock",
				"description": "Amazon Bedrock client detected in this file",
			},
		})
	}

	findings = append(findings, d.safely("model_config", func() []Finding {
		return d.detectModelConfigs(content, filePath)
	})...)
	findings = append(findings, d.safely("models", func() []Finding {
		return d.detectModels(content, filePath)
	})...)
	findings = append(findings, d.safely("api_calls", func() []Finding {
		return d.detectAPICalls(content, filePath)
	})...)
	findings = append(findings, d.safely("token_config", func() []Finding {
		return d.detectTokenPatterns(content, filePath)
	})...)
	findings = append(findings, d.safely("nova_caching", func() []Finding {
		return d.detectNovaCachingOpportunity(ctx, content, filePath)
	})...)
	findings = append(findings, d.safely("cross_region_caching", func() []Finding {
		return d.detectCachingCrossRegionAntipattern(content, filePath)
	})...)
	findings = append(findings, d.safely("dynamic_system_prompts", func() []Finding {
		return d.detectDynamicSystemPrompts(content, filePath)
	})...)
	findings = append(findings, d.safely("prompt_routing", func() []Finding {
		return d.detectPromptRouting(ctx, content, filePath, findings)
	})...)
	findings = append(findings, d.safely("service_tier", func() []Finding {
		return d.detectServiceTier(content, filePath)
	})...)

	// Post-pass: decorate line-scoped findings with a clickable link.
	for i := range findings {
		if findings[i].Line > 0 && findings[i].File != "" {
			findings[i].FileLink = filelinks.Create(findings[i].File, findings[i].Line)
		}
	}

	return findings
}

// safely isolates one analyzer so a failure cannot abort the whole scan.
func (d *Detector) safely(name string, fn func() []Finding) (out []Finding) {
	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.WithFields(logrus.Fields{
					"analyzer": name,
					"panic":    r,
				}).Warn("Analyzer failed, continuing scan")
			}
			out = nil
		}
	}()
	return fn()
}

// lineOf returns the 1-based line number of a byte offset in content.
func lineOf(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return strings.Count(content[:offset], "\n") + 1
}
