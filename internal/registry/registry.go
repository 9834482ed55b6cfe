package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/genaiops/mcp-genai-cost/internal/tools"
)

var (
	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is a set of tool names to disable
	disabledTools = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger

	// cache is the shared cache instance
	cache *sync.Map
)

// Init initialises the registry and shared resources
func Init(l *logrus.Logger) {
	logger = l
	cache = &sync.Map{}

	parseDisabledTools()
}

// parseDisabledTools parses the DISABLED_TOOLS environment variable
func parseDisabledTools() {
	disabledTools = make(map[string]bool)

	disabledEnv := os.Getenv("DISABLED_TOOLS")
	if disabledEnv == "" {
		return
	}

	for tool := range strings.SplitSeq(disabledEnv, ",") {
		tool = strings.TrimSpace(tool)
		if tool != "" {
			disabledTools[tool] = true
			if logger != nil {
				logger.WithField("tool", tool).Debug("Tool disabled")
			}
		}
	}

	if logger != nil && len(disabledTools) > 0 {
		logger.WithField("count", len(disabledTools)).Debug("Parsed disabled tools from environment")
	}
}

// requiresEnablement checks if a tool requires enablement via ENABLE_ADDITIONAL_TOOLS.
// When adding new tools that should be disabled by default, add their names to the additionalTools list.
func requiresEnablement(toolName string) bool {
	additionalTools := []string{
		"list_fis_actions",
		"validate_fis_template",
	}

	normalisedToolName := strings.ToLower(strings.ReplaceAll(toolName, "_", "-"))

	for _, tool := range additionalTools {
		normalisedAdditionalTool := strings.ToLower(strings.ReplaceAll(tool, "_", "-"))
		if normalisedToolName == normalisedAdditionalTool {
			return true
		}
	}
	return false
}

// ShouldRegisterTool checks if a tool should be registered based on:
// 1. DISABLED_TOOLS - explicit disable, highest priority
// 2. Tool's enablement requirement
// 3. ENABLE_ADDITIONAL_TOOLS (explicit enable)
func ShouldRegisterTool(toolName string) bool {
	if disabledTools[toolName] {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool disabled via environment variable")
		}
		return false
	}

	if requiresEnablement(toolName) {
		enabled := isToolEnabled(toolName)
		if logger != nil {
			if enabled {
				logger.WithField("tool", toolName).Debug("Tool enabled via ENABLE_ADDITIONAL_TOOLS")
			} else {
				logger.WithField("tool", toolName).Debug("Tool requires enablement but is not enabled")
			}
		}
		return enabled
	}

	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool enabled by default")
	}
	return true
}

// Register adds a tool implementation to the registry if it should be registered
func Register(tool tools.Tool) {
	if toolRegistry == nil {
		toolRegistry = make(map[string]tools.Tool)
	}

	toolName := tool.Definition().Name

	if !ShouldRegisterTool(toolName) {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool not registered (disabled or requires enablement)")
		}
		return
	}

	toolRegistry[toolName] = tool
	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool successfully registered")
	}
}

// GetTool retrieves a tool by name, returns false if disabled
func GetTool(name string) (tools.Tool, bool) {
	if disabledTools[name] {
		return nil, false
	}
	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetTools returns all registered tools, excluding disabled ones
func GetTools() map[string]tools.Tool {
	filteredTools := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		filteredTools[name] = tool
	}
	return filteredTools
}

// GetEnabledTools returns all tools that are enabled for MCP server registration
func GetEnabledTools() map[string]tools.Tool {
	filteredTools := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		if requiresEnablement(name) && !isToolEnabled(name) {
			continue
		}
		filteredTools[name] = tool
	}
	return filteredTools
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance
func GetCache() *sync.Map {
	return cache
}

// GetEnabledToolNames returns a sorted list of enabled tool names
func GetEnabledToolNames() []string {
	var names []string
	for name := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of enabled tool names that provide extended help
func GetToolNamesWithExtendedHelp() []string {
	var names []string
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		if requiresEnablement(name) && !isToolEnabled(name) {
			continue
		}
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// isToolEnabled checks if a tool is enabled via the ENABLE_ADDITIONAL_TOOLS environment variable
func isToolEnabled(toolName string) bool {
	enabledTools := os.Getenv("ENABLE_ADDITIONAL_TOOLS")
	if enabledTools == "" {
		return false
	}

	if strings.TrimSpace(strings.ToLower(enabledTools)) == "all" {
		return true
	}

	normalisedToolName := strings.ToLower(strings.ReplaceAll(toolName, "_", "-"))

	for tool := range strings.SplitSeq(enabledTools, ",") {
		normalisedTool := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(tool), "_", "-"))
		if normalisedTool == normalisedToolName {
			return true
		}
	}

	return false
}
