package costscan

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/genaiops/mcp-genai-cost/internal/detectors/bedrock"
	"github.com/genaiops/mcp-genai-cost/internal/registry"
	"github.com/genaiops/mcp-genai-cost/internal/tools"
)

const (
	defaultMaxFileSizeKB = 2048
	binarySniffBytes     = 512
)

// ScanTool walks a source tree and reports Amazon Bedrock cost findings.
type ScanTool struct {
	mu       sync.Mutex
	detector *bedrock.Detector
}

func init() {
	registry.Register(&ScanTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ScanTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"scan_genai_costs",
		mcp.WithDescription(`Scan a source tree for Amazon Bedrock usage and report cost optimisation findings.

- Detects model usage, streaming configuration, prompt caching opportunities, cross-region inference, prompt routing candidates and service tier configuration
- Ignores binaries
- Respects .gitignore
- Returns findings as JSON with severity, line numbers and clickable file links`),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Absolute directory path to scan (e.g. '/Users/username/git/project')"),
		),
		mcp.WithArray("additional_excludes",
			mcp.Description("Additional glob patterns to exclude"),
		),
		mcp.WithNumber("max_file_size_kb",
			mcp.Description("Skip files larger than this many KB (default: 2048)"),
			mcp.DefaultNumber(defaultMaxFileSizeKB),
		),
	)
}

// Execute executes the scan_genai_costs tool
func (t *ScanTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	startTime := time.Now()
	logger.Info("Executing scan-genai-costs tool")

	request, err := t.parseRequest(args)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"path":                request.Path,
		"additional_excludes": request.AdditionalExcludes,
		"max_file_size_kb":    request.MaxFileSizeKB,
	}).Debug("Scan parameters")

	response, err := t.scan(ctx, logger, request, startTime)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"total_files_scanned": response.TotalFilesScanned,
		"files_with_findings": response.FilesWithFindings,
		"findings":            len(response.Findings),
		"calculation_time":    response.CalculationTime,
	}).Info("Scan completed successfully")

	payload, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scan response: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// parseRequest parses and validates the tool arguments
func (t *ScanTool) parseRequest(args map[string]interface{}) (*ScanRequest, error) {
	request := &ScanRequest{
		AdditionalExcludes: []string{},
		MaxFileSizeKB:      defaultMaxFileSizeKB,
	}

	pathRaw, ok := args["path"].(string)
	if !ok || pathRaw == "" {
		return nil, fmt.Errorf("missing required parameter: path")
	}
	if !filepath.IsAbs(pathRaw) {
		return nil, fmt.Errorf("path must be absolute (e.g., '/Users/username/project'), got: %s", pathRaw)
	}
	request.Path = pathRaw

	if envExcludes := os.Getenv("GENAI_SCAN_ADDITIONAL_EXCLUDES"); envExcludes != "" {
		request.AdditionalExcludes = strings.Split(envExcludes, ",")
		for i, exclude := range request.AdditionalExcludes {
			request.AdditionalExcludes[i] = strings.TrimSpace(exclude)
		}
	}
	if excludesRaw, ok := args["additional_excludes"].([]interface{}); ok {
		excludes := make([]string, len(excludesRaw))
		for i, exclude := range excludesRaw {
			if excludeStr, ok := exclude.(string); ok {
				excludes[i] = excludeStr
			}
		}
		request.AdditionalExcludes = excludes
	}

	if envMaxSize := os.Getenv("GENAI_SCAN_MAX_SIZE_KB"); envMaxSize != "" {
		if parsedSize, err := strconv.Atoi(envMaxSize); err == nil && parsedSize > 0 {
			request.MaxFileSizeKB = parsedSize
		}
	}
	if sizeRaw, ok := args["max_file_size_kb"].(float64); ok {
		size := int(sizeRaw)
		if size < 1 {
			return nil, fmt.Errorf("max_file_size_kb must be at least 1")
		}
		request.MaxFileSizeKB = size
	}

	if _, err := os.Stat(request.Path); os.IsNotExist(err) {
		return nil, fmt.Errorf("path does not exist: %s", request.Path)
	}

	return request, nil
}

// getDetector lazily builds the shared detector instance.
func (t *ScanTool) getDetector(ctx context.Context, logger *logrus.Logger) *bedrock.Detector {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.detector == nil {
		opts := []bedrock.Option{bedrock.WithPricing(loadPricing(logger))}
		if finder, err := bedrock.NewAIPromptFinderFromEnv(ctx); err == nil {
			opts = append(opts, bedrock.WithPromptFinder(finder))
		} else {
			logger.WithError(err).Debug("AI prompt finder unavailable, using regex prompt finder")
		}
		t.detector = bedrock.New(logger, opts...)
	}
	return t.detector
}

// loadPricing reads the optional pricing override file named by
// GENAI_PRICING_FILE, falling back to built-in defaults.
func loadPricing(logger *logrus.Logger) bedrock.Pricing {
	path := os.Getenv("GENAI_PRICING_FILE")
	pricing, err := bedrock.LoadPricing(path)
	if err != nil {
		logger.WithError(err).WithField("file", path).Warn("Failed to load pricing override, using defaults")
		return bedrock.DefaultPricing()
	}
	return pricing
}

// scan walks the tree and runs the detector over every analysable file.
func (t *ScanTool) scan(ctx context.Context, logger *logrus.Logger, request *ScanRequest, startTime time.Time) (*ScanResponse, error) {
	detector := t.getDetector(ctx, logger)
	maxFileSize := int64(request.MaxFileSizeKB) * 1024

	gitignorePatterns, err := loadGitignorePatterns(request.Path)
	if err != nil {
		logger.WithError(err).Debug("No .gitignore patterns loaded")
	}

	response := &ScanResponse{
		Path:      request.Path,
		StartedAt: startTime,
		Findings:  []bedrock.Finding{},
	}
	filesWithFindings := map[string]struct{}{}

	err = filepath.Walk(request.Path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsPermission(err) {
				logger.WithError(err).WithField("path", path).Debug("Skipping path due to permission error")
				if info != nil && info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if info.IsDir() {
			if shouldExcludeDir(path, gitignorePatterns, request.AdditionalExcludes) {
				return filepath.SkipDir
			}
			return nil
		}

		if !detector.CanAnalyze(path) {
			return nil
		}
		if shouldExcludeFile(path, gitignorePatterns, request.AdditionalExcludes) {
			return nil
		}

		relPath, relErr := filepath.Rel(request.Path, path)
		if relErr != nil {
			relPath = path
		}

		if info.Size() > maxFileSize {
			response.SkippedLargeFiles = append(response.SkippedLargeFiles, relPath)
			logger.WithFields(logrus.Fields{
				"file": relPath,
				"size": info.Size(),
			}).Debug("Skipping file due to size limit")
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.WithError(readErr).WithField("file", path).Warn("Failed to read file")
			return nil
		}
		if isBinary(content) {
			return nil
		}

		response.TotalFilesScanned++
		findings := detector.Analyze(ctx, string(content), path)
		if len(findings) > 0 {
			filesWithFindings[path] = struct{}{}
			for i := range findings {
				findings[i].File = relPath
			}
			response.Findings = append(response.Findings, findings...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Stable output: severity first, then file and line.
	sort.SliceStable(response.Findings, func(i, j int) bool {
		a, b := response.Findings[i], response.Findings[j]
		if a.Severity != b.Severity {
			return severityRank(a.Severity) < severityRank(b.Severity)
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	response.FilesWithFindings = len(filesWithFindings)
	response.CalculationTime = fmt.Sprintf("%.1fs", time.Since(startTime).Seconds())
	return response, nil
}

func severityRank(s bedrock.Severity) int {
	switch s {
	case bedrock.SeverityHigh:
		return 0
	case bedrock.SeverityMedium:
		return 1
	case bedrock.SeverityLow:
		return 2
	default:
		return 3
	}
}

// loadGitignorePatterns loads gitignore patterns from the root .gitignore.
func loadGitignorePatterns(basePath string) ([]string, error) {
	file, err := os.Open(filepath.Join(basePath, ".gitignore"))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	var patterns []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}

// defaultExcludeDirs are directory names never worth scanning.
var defaultExcludeDirs = []string{
	"node_modules", ".git", ".svn", ".hg", "vendor",
	".venv", "venv", "__pycache__", ".pytest_cache",
	"build", "dist", "target", ".cache", "coverage",
}

func shouldExcludeDir(path string, gitignorePatterns, additionalExcludes []string) bool {
	name := filepath.Base(path)
	for _, dir := range defaultExcludeDirs {
		if name == dir {
			return true
		}
	}
	for _, pattern := range gitignorePatterns {
		if matchesPattern(path, name, pattern) {
			return true
		}
	}
	for _, pattern := range additionalExcludes {
		if matchesPattern(path, name, pattern) {
			return true
		}
	}
	return false
}

// shouldExcludeFile checks if a file should be excluded based on patterns
func shouldExcludeFile(path string, gitignorePatterns, additionalExcludes []string) bool {
	fileName := filepath.Base(path)
	for _, pattern := range gitignorePatterns {
		if matchesPattern(path, fileName, pattern) {
			return true
		}
	}
	for _, pattern := range additionalExcludes {
		if matchesPattern(path, fileName, pattern) {
			return true
		}
	}
	return false
}

// matchesPattern checks if a file path matches a given pattern
func matchesPattern(path, fileName, pattern string) bool {
	// Exact filename matches (like LICENSE)
	if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		return fileName == pattern || strings.HasPrefix(fileName, pattern+".")
	}

	// Directory patterns like "**/.git/**"
	if strings.HasSuffix(pattern, "/**") {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		dirPattern = strings.TrimPrefix(dirPattern, "**/")
		return strings.Contains(path, "/"+dirPattern+"/") ||
			strings.HasPrefix(path, dirPattern+"/") ||
			strings.HasPrefix(path, "./"+dirPattern+"/")
	}

	// Patterns starting with **/ (like "**/*.spec.ts")
	if strings.HasPrefix(pattern, "**/") {
		simplePattern := strings.TrimPrefix(pattern, "**/")
		if matched, _ := filepath.Match(simplePattern, fileName); matched {
			return true
		}
		if matched, _ := filepath.Match(simplePattern, path); matched {
			return true
		}
	}

	if matched, _ := filepath.Match(pattern, fileName); matched {
		return true
	}
	if matched, _ := filepath.Match(pattern, path); matched {
		return true
	}

	// Simple substring matches for patterns without globs
	if !strings.Contains(pattern, "*") {
		return strings.Contains(path, pattern)
	}
	return false
}

// isBinary reports whether content looks like a binary file.
func isBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffBytes {
		n = binarySniffBytes
	}
	for i := 0; i < n; i++ {
		if content[i] == 0 {
			return true
		}
	}
	return false
}

// ProvideExtendedInfo provides detailed usage information for the scan_genai_costs tool
func (t *ScanTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Scan a project for Bedrock cost findings",
				Arguments: map[string]interface{}{
					"path": "/Users/username/projects/my-app",
				},
				ExpectedResult: "Returns JSON findings covering model usage, streaming risks, prompt caching opportunities, cross-region inference and service tier configuration",
			},
			{
				Description: "Scan while excluding generated code and tests",
				Arguments: map[string]interface{}{
					"path":                "/Users/username/projects/web-app",
					"additional_excludes": []string{"**/*.generated.ts", "**/*.spec.ts", "**/migrations/**"},
				},
				ExpectedResult: "Findings for hand-written source only, with excluded patterns skipped during the walk",
			},
			{
				Description: "Scan with a smaller file size cap",
				Arguments: map[string]interface{}{
					"path":             "/Users/username/projects/data-pipeline",
					"max_file_size_kb": 256,
				},
				ExpectedResult: "Large files are listed under skipped_large_files instead of being analysed",
			},
		},
		CommonPatterns: []string{
			"Run after adding new Bedrock API calls to catch missing prompt caching or streaming configuration early",
			"Use additional_excludes to keep vendored SDK examples out of the results",
			"Set GENAI_PRICING_FILE to a YAML file to override the built-in Nova pricing used for savings estimates",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Path does not exist error",
				Solution: "Ensure the path parameter is an absolute path (starts with /) and the directory actually exists.",
			},
			{
				Problem:  "No findings on a project that uses Bedrock",
				Solution: "Only Python and TypeScript/JavaScript sources are analysed. Check that the Bedrock calls are not in excluded directories such as vendor or node_modules.",
			},
			{
				Problem:  "Prompt analysis seems less precise than expected",
				Solution: "When AWS credentials are unavailable the tool falls back to regex-based prompt extraction. Configure credentials to enable model-assisted prompt analysis.",
			},
		},
		ParameterDetails: map[string]string{
			"path":                "Absolute path to the directory to scan (required). All subdirectories are scanned recursively.",
			"additional_excludes": "Array of glob patterns to exclude beyond .gitignore and built-in directory exclusions.",
			"max_file_size_kb":    "Skip files larger than this size (default 2048). Skipped files are reported, not analysed.",
		},
		WhenToUse:    "Use during code review or cost optimisation passes to find Amazon Bedrock usage patterns that cost more than they should: missing prompt caching, unnecessary streaming in Lambda, premium models for simple prompts, or misconfigured service tiers.",
		WhenNotToUse: "Not a runtime cost monitor - it analyses source code statically and estimates savings from heuristics, not from actual usage data.",
	}
}
