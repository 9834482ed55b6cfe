// Package imports pulls in every tool package so their init functions can
// register with the tool registry.
package imports

import (
	// Standard tools - always available
	_ "github.com/genaiops/mcp-genai-cost/internal/tools/costscan"
	_ "github.com/genaiops/mcp-genai-cost/internal/tools/toolhelp"

	// Additional tools - require ENABLE_ADDITIONAL_TOOLS
	_ "github.com/genaiops/mcp-genai-cost/internal/tools/fisvalidate"
)
