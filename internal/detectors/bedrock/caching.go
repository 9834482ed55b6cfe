package bedrock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var (
	novaModelRe    = regexp.MustCompile(`(?i)(us\.)?amazon\.nova-(micro|lite|pro|premier)`)
	cachePointRe   = regexp.MustCompile(`cachePoint`)
	cacheControlRe = regexp.MustCompile(`cache(?:_control|Control)`)
)

// novaCachingMinimumTokens is the real Nova minimum for prompt caching. The
// opportunity detector filters at a lower heuristic threshold and flags
// whether this minimum is actually met.
const (
	novaCachingMinimumTokens   = 1000
	novaCachingHeuristicTokens = 150
	charsPerToken              = 4
)

// detectNovaCachingOpportunity finds Nova models with large static prompts
// that lack explicit caching markers, and praises files that already cache.
func (d *Detector) detectNovaCachingOpportunity(ctx context.Context, content, filePath string) []Finding {
	novaLoc := novaModelRe.FindStringIndex(content)
	if novaLoc == nil {
		return nil
	}

	novaModel := content[novaLoc[0]:novaLoc[1]]
	novaLine := lineOf(content, novaLoc[0])

	if cachePointRe.MatchString(content) || cacheControlRe.MatchString(content) {
		return []Finding{{
			Type: "nova_explicit_caching_enabled",
			File: filePath,
			Line: novaLine,
			Detail: map[string]any{
				"model_id":           novaModel,
				"service":            "bedrock",
				"description":        fmt.Sprintf("Explicit prompt caching enabled for %s", novaModel),
				"cost_consideration": "Explicit caching gives a 90% discount on cached tokens.",
				"best_practices": []string{
					"Monitor cache hit rate in CloudWatch (CacheReadInputTokens)",
					"Ensure static content is >=1,000 tokens (Nova minimum)",
					"Keep cache TTL in mind (5 minutes)",
					"Batch similar requests to maximise cache hits",
				},
			},
		}}
	}

	var findings []Finding
	for _, prompt := range d.findPrompts(ctx, content, filePath) {
		estimatedTokens := prompt.Length / charsPerToken
		if estimatedTokens < novaCachingHeuristicTokens {
			continue
		}

		savings := d.pricing.monthlySavings(estimatedTokens)
		meetsMinimum := estimatedTokens >= novaCachingMinimumTokens
		validation := fmt.Sprintf("Estimated %d tokens - below the %d token minimum, caching will NOT work", estimatedTokens, novaCachingMinimumTokens)
		if meetsMinimum {
			validation = fmt.Sprintf("Estimated %d tokens - meets the %d token minimum", estimatedTokens, novaCachingMinimumTokens)
		}

		findings = append(findings, Finding{
			Type: "nova_explicit_caching_opportunity",
			File: filePath,
			Line: prompt.Line,
			Detail: map[string]any{
				"model_id":                novaModel,
				"estimated_static_tokens": estimatedTokens,
				"service":                 "bedrock",
				"description":             fmt.Sprintf("Nova model with large prompt (~%d tokens) without explicit caching", estimatedTokens),
				"cost_consideration": fmt.Sprintf(
					"This prompt has ~%d tokens repeated on each request. Without explicit caching you pay full price ($%g per 1K tokens); with caching the repeat reads cost 90%% less ($%g per 1K tokens).",
					estimatedTokens, d.pricing.NovaBaseUSDPer1K, d.pricing.NovaCachedReadUSDPer1K),
				"potential_savings": fmt.Sprintf("$%.2f/month (90%% reduction)", savings),
				"documentation":     "https://docs.aws.amazon.com/bedrock/latest/userguide/prompt-caching.html",
				"meets_nova_minimum": meetsMinimum,
				"enrichment_required": map[string]any{
					"priority":   "HIGH",
					"why":        "Must verify the estimated tokens meet the Nova prompt-caching minimum",
					"validation": validation,
					"nova_caching_requirements": map[string]string{
						"minimum_tokens": "1,000 tokens",
						"maximum_tokens": "20,000 tokens",
						"cache_ttl":      "5 minutes",
					},
					"recommendation": "If below the minimum, do NOT suggest prompt caching for this prompt",
				},
			},
		})
	}

	return findings
}

// detectCachingCrossRegionAntipattern flags prompt caching combined with
// cross-region inference profiles. Static prompts keep severity at info;
// dynamic prompts escalate to high for global profiles and medium for
// geography-specific ones.
func (d *Detector) detectCachingCrossRegionAntipattern(content, filePath string) []Finding {
	if !cachePointRe.MatchString(content) && !cacheControlRe.MatchString(content) {
		return nil // no caching, no anti-pattern
	}

	promptAnalysis := analyzeSystemPromptStaticness(content)

	var findings []Finding
	for _, modelFinding := range d.detectModels(content, filePath) {
		parsed, ok := modelFinding.Detail["parsed"].(ModelIdentifier)
		if !ok || parsed.RegionPrefix == "" {
			continue // single-region model, no issue
		}

		modelID := parsed.FullID
		singleRegionHint := fmt.Sprintf("%s.%s-...", parsed.Provider, parsed.Family)

		var severity Severity
		var profileType, description, problem, recommendation string

		if parsed.RegionPrefix == "global" {
			profileType = "global"
			if promptAnalysis.IsStatic {
				severity = SeverityInfo
				description = fmt.Sprintf("INFO: Prompt caching with global inference profile (%s) - static prompts detected", modelID)
				problem = "Global inference profiles route to multiple regions, but static prompts reuse the same cache content across regions. This is generally OK."
				recommendation = "Static prompts + cross-region + caching is acceptable. Monitor cache hit rates to ensure effectiveness."
			} else {
				severity = SeverityHigh
				description = fmt.Sprintf("HIGH RISK: Prompt caching with global inference profile (%s) - dynamic prompts detected", modelID)
				problem = "Global inference profiles route requests to ANY commercial AWS region, each with a separate cache. Dynamic prompts can create distinct cache entries in 10-20+ regions, potentially INCREASING costs by 50%+ instead of reducing them."
				recommendation = fmt.Sprintf("Use a single-region model ID (e.g. %s) instead of the global profile, or disable caching for dynamic prompts", singleRegionHint)
			}
		} else {
			profileType = "geography-specific"
			geo := strings.ToUpper(parsed.RegionPrefix)
			if promptAnalysis.IsStatic {
				severity = SeverityInfo
				description = fmt.Sprintf("INFO: Prompt caching with %s geo-specific inference profile (%s) - static prompts detected", geo, modelID)
				problem = fmt.Sprintf("%s profiles route to 3-5 regions, but static prompts reuse the same cache content across them. This is generally OK.", geo)
				recommendation = "Static prompts + cross-region + caching is acceptable. Monitor cache hit rates to ensure effectiveness."
			} else {
				severity = SeverityMedium
				description = fmt.Sprintf("MEDIUM RISK: Prompt caching with %s geo-specific inference profile (%s) - dynamic prompts detected", geo, modelID)
				problem = fmt.Sprintf("%s profiles route to 3-5 regions. Dynamic prompts cause cache writes in multiple regions with lower hit rates.", geo)
				recommendation = fmt.Sprintf("Use a single-region model ID (e.g. %s) for consistent caching, or ensure very high traffic (>1000 req/hour)", singleRegionHint)
			}
		}

		findings = append(findings, Finding{
			Type:     "caching_cross_region_antipattern",
			File:     filePath,
			Line:     modelFinding.Line,
			Severity: severity,
			Detail: map[string]any{
				"model_id":        modelID,
				"profile_type":    profileType,
				"region_prefix":   parsed.RegionPrefix,
				"service":         "bedrock",
				"parsed":          parsed,
				"prompt_analysis": promptAnalysis,
				"description":     description,
				"issue":           "Prompt caching with cross-region inference profile",
				"problem":         problem,
				"recommendation":  recommendation,
				"documentation":   "https://docs.aws.amazon.com/bedrock/latest/userguide/cross-region-inference.html",
			},
		})
	}

	return findings
}

// detectDynamicSystemPrompts emits a high-severity finding when system prompts
// contain per-request variables, including a before/after fix example.
func (d *Detector) detectDynamicSystemPrompts(content, filePath string) []Finding {
	analysis := analyzeSystemPromptStaticness(content)
	if analysis.SystemPromptsFound == 0 || analysis.IsStatic || len(analysis.DynamicVariables) == 0 {
		return nil
	}

	// Line of the first system_prompt assignment.
	line := 0
	for i, textLine := range strings.Split(content, "\n") {
		if strings.Contains(textLine, "system_prompt") && strings.Contains(textLine, "=") {
			line = i + 1
			break
		}
	}

	vars := analysis.DynamicVariables
	return []Finding{{
		Type:     "dynamic_system_prompt",
		File:     filePath,
		Line:     line,
		Severity: SeverityHigh,
		Detail: map[string]any{
			"service":              "bedrock",
			"dynamic_variables":    vars,
			"system_prompts_found": analysis.SystemPromptsFound,
			"description":          fmt.Sprintf("HIGH PRIORITY: System prompt contains dynamic variables: %s", strings.Join(vars, ", ")),
			"issue":                "Dynamic variables in system_prompt prevent effective prompt caching",
			"problem":              fmt.Sprintf("The system_prompt contains %d dynamic variable(s) that change per request, so each unique system prompt creates a new cache entry.", len(vars)),
			"impact":               "Cannot use prompt caching (90% cost savings lost). With cross-region models this also causes cache fragmentation.",
			"recommendation":       "Move dynamic variables to user messages instead of system_prompt",
			"fix_example":          systemPromptFixExample(vars),
			"estimated_savings":    "Up to 90% on system prompt tokens (~500-1000 tokens) if caching is enabled after fix",
		},
	}}
}

// systemPromptFixExample builds a before/after remediation example showing up
// to three of the offending variable names.
func systemPromptFixExample(dynamicVars []string) map[string]string {
	shown := dynamicVars
	if len(shown) > 3 {
		shown = shown[:3]
	}
	first := shown[0]

	return map[string]string{
		"before": fmt.Sprintf(`# BAD: Dynamic variables in system_prompt
system_prompt=f"""You are an assistant.
Process this data: {%s}
"""

query = "Do the task"
response = agent(query)`, first),
		"after": fmt.Sprintf(`# GOOD: Variables in user message
system_prompt="""You are an assistant.
Process the data provided in the user message.
"""

query = f"Do the task with this data: {%s}"
response = agent(query)`, first),
		"benefit": "System prompt is now static and can be cached (90% discount on cached tokens)",
	}
}
