package filelinks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreate(t *testing.T) {
	t.Setenv("FILE_LINK_SCHEME", "")
	assert.Equal(t, "vscode://file//repo/agent.py:42", Create("/repo/agent.py", 42))
}

func TestCreateFileScheme(t *testing.T) {
	t.Setenv("FILE_LINK_SCHEME", "file")
	assert.Equal(t, "file:///repo/agent.py", Create("/repo/agent.py", 7))
}

func TestCreateResolvesRelativePaths(t *testing.T) {
	t.Setenv("FILE_LINK_SCHEME", "")
	link := Create("agent.py", 1)
	assert.Contains(t, link, "vscode://file/")
	assert.NotContains(t, link, "vscode://file/agent.py", "relative paths should be absolutised")
}
