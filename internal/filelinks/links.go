// Package filelinks maps (file, line) pairs to clickable URIs for findings.
package filelinks

import (
	"fmt"
	"os"
	"path/filepath"
)

// Create returns a clickable link for a file location. The default scheme
// opens the file at the right line in VS Code; setting FILE_LINK_SCHEME=file
// produces a plain file:// URI instead.
func Create(file string, line int) string {
	abs := file
	if !filepath.IsAbs(abs) {
		if resolved, err := filepath.Abs(abs); err == nil {
			abs = resolved
		}
	}

	if os.Getenv("FILE_LINK_SCHEME") == "file" {
		return "file://" + abs
	}
	return fmt.Sprintf("vscode://file/%s:%d", abs, line)
}
