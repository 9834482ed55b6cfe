package toolhelp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/genaiops/mcp-genai-cost/internal/registry"
	"github.com/genaiops/mcp-genai-cost/internal/tools"
)

// ToolHelpTool surfaces the extended usage information tools publish.
type ToolHelpTool struct{}

func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	toolsWithExtendedHelp := registry.GetToolNamesWithExtendedHelp()

	var description string
	if len(toolsWithExtendedHelp) > 0 {
		description = "Get detailed usage examples and troubleshooting for the GenAI cost tools when encountering unexpected errors."
	} else {
		description = "No tools currently provide extended help information."
	}

	enumValues := toolsWithExtendedHelp
	if len(enumValues) == 0 {
		enumValues = []string{}
	}

	return mcp.NewTool(
		"get_tool_help",
		mcp.WithDescription(description),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool to get help for"),
			mcp.Enum(enumValues...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute executes the get_tool_help tool
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, ok := args["tool_name"].(string)
	if !ok || toolName == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: tool_name")
	}

	tool, exists := registry.GetTool(toolName)
	if !exists {
		availableTools := registry.GetToolNamesWithExtendedHelp()
		return nil, fmt.Errorf("tool '%s' not found, disabled, or does not provide extended help. Tools with extended help: %s", toolName, strings.Join(availableTools, ", "))
	}

	extendedProvider, ok := tool.(tools.ExtendedHelpProvider)
	if !ok {
		availableTools := registry.GetToolNamesWithExtendedHelp()
		return nil, fmt.Errorf("tool '%s' does not provide extended help. Tools with extended help: %s", toolName, strings.Join(availableTools, ", "))
	}

	definition := tool.Definition()
	response := &ToolHelpResponse{
		ToolName: toolName,
		BasicInfo: map[string]any{
			"name":        definition.Name,
			"description": definition.Description,
		},
		ExtendedInfo: extendedProvider.ProvideExtendedInfo(),
	}
	if definition.InputSchema.Type != "" {
		response.BasicInfo["input_schema"] = definition.InputSchema
	}

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
