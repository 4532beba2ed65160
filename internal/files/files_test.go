package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveUpload(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	path, err := s.SaveUpload("report.docx", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "content" {
		t.Errorf("content = %q", data)
	}
	if !strings.HasSuffix(path, "_report.docx") {
		t.Errorf("path %q missing original name suffix", path)
	}
	if filepath.Dir(path) != filepath.Join(s.Root(), "uploads") {
		t.Errorf("upload stored outside uploads/: %q", path)
	}
}

func TestSaveUpload_NoCollision(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p1, err := s.SaveUpload("same.txt", strings.NewReader("one"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := s.SaveUpload("same.txt", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}
	if p1 == p2 {
		t.Error("repeated uploads of the same name must not collide")
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	s, err := NewStore(root)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Resolve("notes/todo.txt")
	if err != nil {
		t.Fatalf("Resolve relative: %v", err)
	}
	if got != filepath.Join(root, "notes", "todo.txt") {
		t.Errorf("Resolve = %q", got)
	}

	if _, err := s.Resolve("../outside.txt"); err == nil {
		t.Error("Resolve must reject traversal outside the workspace")
	}
	if _, err := s.Resolve("/etc/passwd"); err == nil {
		t.Error("Resolve must reject absolute paths outside the workspace")
	}
	if _, err := s.Resolve(""); err == nil {
		t.Error("Resolve must reject empty paths")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.docx", "report.docx"},
		{"../../etc/passwd", "passwd"},
		{"my file (1).txt", "my_file__1_.txt"},
		{"", "file"},
		{"..", "file"},
	}
	for _, tc := range tests {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
