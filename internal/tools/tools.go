// Package tools implements the agent's callable tools: shell and file
// operations, code execution, document and image manipulation, PDF
// conversion, web research, GitHub automation, and video script packages.
package tools

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex-agent/apex/internal/config"
	"github.com/apex-agent/apex/internal/files"
)

// maxOutputChars caps command and page output before it reaches the model.
const maxOutputChars = 8000

// Deps carries shared dependencies into tool constructors.
type Deps struct {
	Cfg       *config.Config
	Workspace *files.Store
	HTTP      *http.Client
}

func (d *Deps) httpClient() *http.Client {
	if d.HTTP != nil {
		return d.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// middleTruncate keeps the head and tail of long output, like build logs
// where both the start and the final error matter.
func middleTruncate(s string, maxChars int) string {
	if len(s) <= maxChars {
		return s
	}
	half := maxChars / 2
	return s[:half] +
		fmt.Sprintf("\n\n... [%d chars truncated] ...\n\n", len(s)-maxChars) +
		s[len(s)-half:]
}

// withSuffix swaps a file's extension.
func withSuffix(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// withStemSuffix appends a marker to the file stem, keeping the extension.
// "photo.jpg" + "_resized" → "photo_resized.jpg".
func withStemSuffix(path, marker string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + marker + ext
}

// ensureParent creates the parent directory of a target file.
func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
