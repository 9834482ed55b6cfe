package toolhelp

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genaiops/mcp-genai-cost/internal/registry"
	"github.com/genaiops/mcp-genai-cost/internal/tools"
)

// stubTool is a minimal tool with extended help for registry-driven tests.
type stubTool struct{}

func (s *stubTool) Definition() mcp.Tool {
	return mcp.NewTool("stub_tool", mcp.WithDescription("A stub tool"))
}

func (s *stubTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func (s *stubTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{Description: "Run the stub", Arguments: map[string]any{}, ExpectedResult: "ok"},
		},
		WhenToUse: "Testing only",
	}
}

func TestToolHelpExecute(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "")
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	registry.Init(logger)
	registry.Register(&stubTool{})

	help := &ToolHelpTool{}

	t.Run("returns extended help", func(t *testing.T) {
		result, err := help.Execute(t.Context(), logger, &sync.Map{}, map[string]any{
			"tool_name": "stub_tool",
		})
		require.NoError(t, err)

		text, ok := mcp.AsTextContent(result.Content[0])
		require.True(t, ok)

		var response ToolHelpResponse
		require.NoError(t, json.Unmarshal([]byte(text.Text), &response))
		assert.Equal(t, "stub_tool", response.ToolName)
		assert.Equal(t, "stub_tool", response.BasicInfo["name"])
		require.NotNil(t, response.ExtendedInfo)
		assert.Equal(t, "Testing only", response.ExtendedInfo.WhenToUse)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := help.Execute(t.Context(), logger, &sync.Map{}, map[string]any{
			"tool_name": "no_such_tool",
		})
		assert.ErrorContains(t, err, "not found")
	})

	t.Run("missing tool_name", func(t *testing.T) {
		_, err := help.Execute(t.Context(), logger, &sync.Map{}, map[string]any{})
		assert.ErrorContains(t, err, "tool_name")
	})
}
