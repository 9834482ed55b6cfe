package toolhelp

import "github.com/genaiops/mcp-genai-cost/internal/tools"

// ToolHelpResponse is the JSON document returned by get_tool_help.
type ToolHelpResponse struct {
	ToolName     string              `json:"tool_name"`
	BasicInfo    map[string]any      `json:"basic_info"`
	ExtendedInfo *tools.ExtendedHelp `json:"extended_info,omitempty"`
}
