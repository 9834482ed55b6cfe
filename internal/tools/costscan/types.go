package costscan

import (
	"time"

	"github.com/genaiops/mcp-genai-cost/internal/detectors/bedrock"
)

// ScanRequest holds the parsed tool arguments.
type ScanRequest struct {
	Path               string   `json:"path"`
	AdditionalExcludes []string `json:"additional_excludes,omitempty"`
	MaxFileSizeKB      int      `json:"max_file_size_kb,omitempty"`
}

// ScanResponse is the JSON document returned to the MCP client.
type ScanResponse struct {
	Path              string            `json:"path"`
	StartedAt         time.Time         `json:"started_at"`
	CalculationTime   string            `json:"calculation_time"`
	TotalFilesScanned int               `json:"total_files_scanned"`
	FilesWithFindings int               `json:"files_with_findings"`
	SkippedLargeFiles []string          `json:"skipped_large_files,omitempty"`
	Findings          []bedrock.Finding `json:"findings"`
}
