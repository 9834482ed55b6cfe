package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresEnablement(t *testing.T) {
	assert.True(t, requiresEnablement("list_fis_actions"))
	assert.True(t, requiresEnablement("validate_fis_template"))
	assert.True(t, requiresEnablement("list-fis-actions"), "hyphen and underscore forms are equivalent")
	assert.False(t, requiresEnablement("scan_genai_costs"))
	assert.False(t, requiresEnablement("get_tool_help"))
}

func TestShouldRegisterTool(t *testing.T) {
	t.Run("standard tool registers by default", func(t *testing.T) {
		t.Setenv("DISABLED_TOOLS", "")
		t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
		parseDisabledTools()

		assert.True(t, ShouldRegisterTool("scan_genai_costs"))
	})

	t.Run("disabled tools are never registered", func(t *testing.T) {
		t.Setenv("DISABLED_TOOLS", "scan_genai_costs, get_tool_help")
		t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
		parseDisabledTools()
		defer func() {
			t.Setenv("DISABLED_TOOLS", "")
			parseDisabledTools()
		}()

		assert.False(t, ShouldRegisterTool("scan_genai_costs"))
		assert.False(t, ShouldRegisterTool("get_tool_help"))
	})

	t.Run("additional tools need explicit enablement", func(t *testing.T) {
		t.Setenv("DISABLED_TOOLS", "")
		t.Setenv("ENABLE_ADDITIONAL_TOOLS", "")
		parseDisabledTools()

		assert.False(t, ShouldRegisterTool("list_fis_actions"))

		t.Setenv("ENABLE_ADDITIONAL_TOOLS", "list_fis_actions")
		assert.True(t, ShouldRegisterTool("list_fis_actions"))
		assert.False(t, ShouldRegisterTool("validate_fis_template"))
	})

	t.Run("all enables every additional tool", func(t *testing.T) {
		t.Setenv("DISABLED_TOOLS", "")
		t.Setenv("ENABLE_ADDITIONAL_TOOLS", "all")
		parseDisabledTools()

		assert.True(t, ShouldRegisterTool("list_fis_actions"))
		assert.True(t, ShouldRegisterTool("validate_fis_template"))
	})

	t.Run("disable beats enable", func(t *testing.T) {
		t.Setenv("DISABLED_TOOLS", "validate_fis_template")
		t.Setenv("ENABLE_ADDITIONAL_TOOLS", "all")
		parseDisabledTools()
		defer func() {
			t.Setenv("DISABLED_TOOLS", "")
			parseDisabledTools()
		}()

		assert.False(t, ShouldRegisterTool("validate_fis_template"))
	})
}

func TestIsToolEnabledNormalisation(t *testing.T) {
	t.Setenv("ENABLE_ADDITIONAL_TOOLS", " List-FIS-Actions , other_tool ")

	assert.True(t, isToolEnabled("list_fis_actions"))
	assert.True(t, isToolEnabled("other-tool"))
	assert.False(t, isToolEnabled("validate_fis_template"))
}
