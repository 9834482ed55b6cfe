package costscan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const bedrockSource = `import boto3

client = boto3.client("bedrock-runtime")
response = client.converse(
    modelId="us.anthropic.claude-3-7-sonnet-20250219-v1:0",
    max_tokens=2048,
)
`

func textFromResult(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func runScan(t *testing.T, args map[string]interface{}) *ScanResponse {
	t.Helper()
	tool := &ScanTool{}
	result, err := tool.Execute(t.Context(), testLogger(), &sync.Map{}, args)
	require.NoError(t, err)

	var response ScanResponse
	require.NoError(t, json.Unmarshal([]byte(textFromResult(t, result)), &response))
	return &response
}

func TestScanFindsBedrockUsage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "agent.py", bedrockSource)
	writeFile(t, dir, "util.py", "def add(a, b):\n    return a + b\n")
	writeFile(t, dir, "README.md", "amazon.nova-pro-v1:0 mentioned in docs\n")

	response := runScan(t, map[string]interface{}{"path": dir})

	assert.Equal(t, dir, response.Path)
	assert.Equal(t, 2, response.TotalFilesScanned, "markdown is not analysable")
	assert.Equal(t, 1, response.FilesWithFindings)
	require.NotEmpty(t, response.Findings)
	for _, f := range response.Findings {
		assert.Equal(t, "agent.py", f.File, "findings should use paths relative to the scan root")
	}
}

func TestScanSkipsExcludedDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, filepath.Join("node_modules", "dep", "index.js"), bedrockSource)
	writeFile(t, dir, filepath.Join("vendor", "lib.py"), bedrockSource)
	writeFile(t, dir, "main.py", "x = 1\n")

	response := runScan(t, map[string]interface{}{"path": dir})

	assert.Equal(t, 1, response.TotalFilesScanned)
	assert.Empty(t, response.Findings)
}

func TestScanHonoursGitignoreAndAdditionalExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "# generated\nignored.py\n")
	writeFile(t, dir, "ignored.py", bedrockSource)
	writeFile(t, dir, "legacy.spec.ts", bedrockSource)
	writeFile(t, dir, "agent.py", bedrockSource)

	response := runScan(t, map[string]interface{}{
		"path":                dir,
		"additional_excludes": []interface{}{"**/*.spec.ts"},
	})

	assert.Equal(t, 1, response.TotalFilesScanned)
	assert.Equal(t, 1, response.FilesWithFindings)
	for _, f := range response.Findings {
		assert.Equal(t, "agent.py", f.File)
	}
}

func TestScanSkipsLargeAndBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "big.py", bedrockSource+string(bytesOfSize(4*1024)))
	writeFile(t, dir, "blob.js", "var a = 1;\x00\x01\x02")
	writeFile(t, dir, "small.py", "x = 1\n")

	response := runScan(t, map[string]interface{}{
		"path":             dir,
		"max_file_size_kb": float64(2),
	})

	assert.Equal(t, []string{"big.py"}, response.SkippedLargeFiles)
	assert.Equal(t, 1, response.TotalFilesScanned, "binary file is sniffed out, large file skipped")
	assert.Empty(t, response.Findings)
}

func bytesOfSize(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return b
}

func TestScanSortsFindingsBySeverity(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cached.py", `
model = "global.anthropic.claude-3-7-sonnet-20250219-v1:0"
config = {"cachePoint": {"type": "default"}}
system_prompt = f"""You are an assistant for {user_name}."""
`)

	response := runScan(t, map[string]interface{}{"path": dir})

	require.NotEmpty(t, response.Findings)
	assert.Equal(t, "high", string(response.Findings[0].Severity))
	for i := 1; i < len(response.Findings); i++ {
		assert.LessOrEqual(t,
			severityRank(response.Findings[i-1].Severity),
			severityRank(response.Findings[i].Severity))
	}
}

func TestParseRequestValidation(t *testing.T) {
	tool := &ScanTool{}

	t.Run("missing path", func(t *testing.T) {
		_, err := tool.parseRequest(map[string]interface{}{})
		assert.ErrorContains(t, err, "missing required parameter: path")
	})

	t.Run("relative path", func(t *testing.T) {
		_, err := tool.parseRequest(map[string]interface{}{"path": "relative/dir"})
		assert.ErrorContains(t, err, "must be absolute")
	})

	t.Run("nonexistent path", func(t *testing.T) {
		_, err := tool.parseRequest(map[string]interface{}{"path": "/does/not/exist/anywhere"})
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("invalid max size", func(t *testing.T) {
		_, err := tool.parseRequest(map[string]interface{}{
			"path":             t.TempDir(),
			"max_file_size_kb": float64(0),
		})
		assert.ErrorContains(t, err, "at least 1")
	})

	t.Run("defaults", func(t *testing.T) {
		dir := t.TempDir()
		request, err := tool.parseRequest(map[string]interface{}{"path": dir})
		require.NoError(t, err)
		assert.Equal(t, dir, request.Path)
		assert.Equal(t, defaultMaxFileSizeKB, request.MaxFileSizeKB)
		assert.Empty(t, request.AdditionalExcludes)
	})

	t.Run("env excludes", func(t *testing.T) {
		t.Setenv("GENAI_SCAN_ADDITIONAL_EXCLUDES", "**/*.spec.ts, generated")
		request, err := tool.parseRequest(map[string]interface{}{"path": t.TempDir()})
		require.NoError(t, err)
		assert.Equal(t, []string{"**/*.spec.ts", "generated"}, request.AdditionalExcludes)
	})
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		fileName string
		pattern  string
		want     bool
	}{
		{"exact filename", "/repo/LICENSE", "LICENSE", "LICENSE", true},
		{"filename with extension prefix", "/repo/app.test.js", "app.test.js", "app", true},
		{"directory glob", "/repo/dist/bundle.js", "bundle.js", "**/dist/**", true},
		{"double star file glob", "/repo/src/a.spec.ts", "a.spec.ts", "**/*.spec.ts", true},
		{"simple glob", "/repo/notes.tmp", "notes.tmp", "*.tmp", true},
		{"directory substring", "/repo/generated/models.py", "models.py", "generated/", true},
		{"no match", "/repo/src/main.py", "main.py", "*.ts", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesPattern(tt.path, tt.fileName, tt.pattern))
		})
	}
}

func TestIsBinary(t *testing.T) {
	assert.False(t, isBinary([]byte("plain text content")))
	assert.True(t, isBinary([]byte{'a', 0x00, 'b'}))
	assert.False(t, isBinary(nil))
}
