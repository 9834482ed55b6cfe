package bedrock

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Prompt is one extracted prompt candidate: a large string literal that looks
// like model instructions.
type Prompt struct {
	Text   string `json:"text"`
	Length int    `json:"length"`
	Line   int    `json:"line"`
}

// PromptFinder locates LLM prompts embedded in source code. Implementations
// may be deterministic (regex) or model-assisted; the detector always falls
// back to the regex finder when a finder fails.
type PromptFinder interface {
	FindPrompts(ctx context.Context, content, filePath string) ([]Prompt, error)
}

// minPromptLength is the smallest string literal considered a prompt.
const minPromptLength = 200

var (
	// Python: system_prompt=f"""...""" and friends.
	pyPromptRe = regexp.MustCompile(`(?si)(system_prompt|prompt|instruction|message)\s*=\s*f?"""(.*?)"""`)

	// TypeScript/JavaScript: const somePrompt = ` + "`...`" + ` or instruction: ` + "`...`" + `.
	tsDeclPromptRe = regexp.MustCompile("(?si)(?:const|let|var)\\s+(\\w*(?:prompt|instruction|message|system)\\w*)\\s*[=:]\\s*`([^`]{200,})`")
	tsPropPromptRe = regexp.MustCompile("(?si)(instruction|prompt|message|system)\\s*:\\s*`([^`]{200,})`")

	instructionKeywordRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\byou are\b`),
		regexp.MustCompile(`(?i)\bact as\b`),
		regexp.MustCompile(`(?i)\banalyze\b`),
		regexp.MustCompile(`(?i)\bevaluate\b`),
	}
)

// RegexPromptFinder is the deterministic prompt finder: large string literals
// assigned to prompt-ish names that contain instruction-style keywords.
type RegexPromptFinder struct{}

// FindPrompts never returns an error; absence of prompts is an empty slice.
func (RegexPromptFinder) FindPrompts(_ context.Context, content, _ string) ([]Prompt, error) {
	var prompts []Prompt

	for _, re := range []*regexp.Regexp{pyPromptRe, tsDeclPromptRe, tsPropPromptRe} {
		for _, loc := range re.FindAllStringSubmatchIndex(content, -1) {
			text := content[loc[4]:loc[5]]
			if len(text) < minPromptLength || !hasInstructionKeyword(text) {
				continue
			}
			prompts = append(prompts, Prompt{
				Text:   text,
				Length: len(text),
				Line:   lineOf(content, loc[0]),
			})
		}
	}

	return prompts, nil
}

func hasInstructionKeyword(text string) bool {
	for _, re := range instructionKeywordRes {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// findPrompts tries the configured AI-backed finder first and falls back to
// the regex finder on any failure. The fallback is silent by contract: a
// broken or unreachable helper must never surface to the caller.
func (d *Detector) findPrompts(ctx context.Context, content, filePath string) []Prompt {
	if d.prompts != nil {
		prompts, err := d.prompts.FindPrompts(ctx, content, filePath)
		if err == nil && len(prompts) > 0 {
			return prompts
		}
		if err != nil && d.logger != nil {
			d.logger.WithError(err).Debug("AI prompt detection failed, using regex fallback")
		}
	}

	prompts, _ := d.regex.FindPrompts(ctx, content, filePath)
	return prompts
}

// StaticnessResult is the outcome of analysing whether prompts are static
// (safe to cache) or contain per-request variables.
type StaticnessResult struct {
	IsStatic           bool     `json:"is_static"`
	Confidence         string   `json:"confidence"` // high, medium, low
	Indicators         []string `json:"indicators"`
	SystemPromptsFound int      `json:"system_prompts_found"`
	DynamicVariables   []string `json:"dynamic_variables"`
	Note               string   `json:"note,omitempty"`
}

var (
	// system_prompt= assignments across the four f-string literal variants.
	systemPromptLiteralRes = []*regexp.Regexp{
		regexp.MustCompile(`(?s)system_prompt\s*=\s*(f""".*?""")`),
		regexp.MustCompile(`(?s)system_prompt\s*=\s*(f'''.*?''')`),
		regexp.MustCompile(`(?s)system_prompt\s*=\s*(f"[^"]*")`),
		regexp.MustCompile(`(?s)system_prompt\s*=\s*(f'[^']*')`),
	}

	// The parenthesised concatenation form is only located by regex; its body
	// is extracted with the balanced scanner.
	systemPromptParenOpenRe = regexp.MustCompile(`system_prompt\s*=\s*\(`)

	innerFStringRe      = regexp.MustCompile(`f["']([^"']*)["']`)
	placeholderRe       = regexp.MustCompile(`\{([^}]+)\}`)
	identifierRe        = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	systemPromptFmtRe   = regexp.MustCompile(`(?s)system_prompt\s*=\s*["'].*?["']\.format\(`)
	fileFStringVarRe    = regexp.MustCompile(`(?s)f["'].*?\{[^}]+\}.*?["']`)
	fileFormatCallRe    = regexp.MustCompile(`\.format\(`)
	fileConcatRe        = regexp.MustCompile(`["'].*?["']\s*\+\s*[a-zA-Z_]`)
	filePercentFormatRe = regexp.MustCompile(`%\s*\(`)
)

// placeholderIdentifiers extracts {name} placeholders that are valid bare
// identifiers.
func placeholderIdentifiers(text string) []string {
	var vars []string
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if identifierRe.MatchString(candidate) {
			vars = append(vars, candidate)
		}
	}
	return vars
}

// analyzeSystemPromptStaticness analyses system_prompt assignments
// specifically; when the file has none it falls back to the coarser
// file-level heuristic.
func analyzeSystemPromptStaticness(content string) StaticnessResult {
	var indicators []string
	var dynamicVariables []string
	systemPromptsFound := 0

	for _, re := range systemPromptLiteralRes {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			systemPromptsFound++
			if vars := placeholderIdentifiers(m[1]); len(vars) > 0 {
				dynamicVariables = append(dynamicVariables, vars...)
				indicators = append(indicators, fmt.Sprintf("f-string in system_prompt with variables: %s", strings.Join(vars, ", ")))
			}
		}
	}

	// system_prompt=( f"..." "..." ) concatenation, extracted linearly.
	for _, loc := range systemPromptParenOpenRe.FindAllStringIndex(content, -1) {
		openParen := loc[1] - 1
		closeParen := matchingParen(content, openParen)
		if closeParen == -1 {
			continue
		}
		systemPromptsFound++
		body := content[openParen+1 : closeParen]

		var blockVars []string
		for _, fm := range innerFStringRe.FindAllStringSubmatch(body, -1) {
			for _, v := range placeholderIdentifiers(fm[1]) {
				if !contains(dynamicVariables, v) && !contains(blockVars, v) {
					blockVars = append(blockVars, v)
				}
			}
		}
		if len(blockVars) > 0 {
			dynamicVariables = append(dynamicVariables, blockVars...)
			if len(indicators) == 0 {
				indicators = append(indicators, fmt.Sprintf("f-string in system_prompt with variables: %s", strings.Join(dynamicVariables, ", ")))
			}
		}
	}

	if systemPromptFmtRe.MatchString(content) {
		indicators = append(indicators, "system_prompt uses .format()")
	}

	if systemPromptsFound == 0 {
		return analyzeFileLevelStaticness(content)
	}

	isStatic := len(indicators) == 0
	confidence := "medium"
	if len(indicators) == 0 || len(dynamicVariables) > 0 {
		confidence = "high"
	}

	if len(indicators) == 0 {
		indicators = []string{"No dynamic variables in system_prompt"}
	}

	return StaticnessResult{
		IsStatic:           isStatic,
		Confidence:         confidence,
		Indicators:         indicators,
		SystemPromptsFound: systemPromptsFound,
		DynamicVariables:   dynamicVariables,
		Note:               "System prompts with dynamic variables should be refactored to pass data via user messages instead.",
	}
}

// analyzeFileLevelStaticness is the fallback when no system_prompt assignment
// exists: a coarse scan for any dynamic string construction.
func analyzeFileLevelStaticness(content string) StaticnessResult {
	var indicators []string

	if n := len(fileFStringVarRe.FindAllString(content, -1)); n > 0 {
		indicators = append(indicators, fmt.Sprintf("f-string variables (%d found)", n))
	}
	if n := len(fileFormatCallRe.FindAllString(content, -1)); n > 0 {
		indicators = append(indicators, fmt.Sprintf(".format() calls (%d found)", n))
	}
	if n := len(fileConcatRe.FindAllString(content, -1)); n > 0 {
		indicators = append(indicators, fmt.Sprintf("string concatenation (%d found)", n))
	}
	if n := len(filePercentFormatRe.FindAllString(content, -1)); n > 0 {
		indicators = append(indicators, fmt.Sprintf("%% formatting (%d found)", n))
	}

	isStatic := len(indicators) == 0
	confidence := "medium"
	if len(indicators) == 0 || len(indicators) > 2 {
		confidence = "high"
	}

	if len(indicators) == 0 {
		indicators = []string{"No dynamic prompt indicators found"}
	}

	return StaticnessResult{
		IsStatic:           isStatic,
		Confidence:         confidence,
		Indicators:         indicators,
		SystemPromptsFound: 0,
		DynamicVariables:   []string{},
		Note:               "File-level analysis (no system_prompt found). Static prompts are safe with cross-region caching.",
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
