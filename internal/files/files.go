// Package files manages the agent workspace: incoming uploads land here
// under collision-free names, and tools read and write their outputs here.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store is a directory-backed file store.
type Store struct {
	root string
}

// NewStore creates the workspace directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root is empty")
	}
	if err := os.MkdirAll(filepath.Join(root, "uploads"), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the workspace root directory.
func (s *Store) Root() string { return s.root }

// SaveUpload writes an incoming attachment under uploads/ with a short
// unique prefix so repeated uploads of the same name never collide.
// Returns the absolute path of the stored file.
func (s *Store) SaveUpload(name string, r io.Reader) (string, error) {
	name = SanitizeName(name)
	prefix := uuid.NewString()[:8]
	path := filepath.Join(s.root, "uploads", prefix+"_"+name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Resolve turns a possibly-relative path into an absolute path inside the
// workspace and rejects traversal outside it.
func (s *Store) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	if path != rootAbs && !strings.HasPrefix(path, rootAbs+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the workspace", path)
	}
	return path, nil
}

// SanitizeName strips directory components and characters that are not
// safe in a filename.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	out := sb.String()
	if out == "" || out == "." || out == ".." {
		out = "file"
	}
	return out
}
