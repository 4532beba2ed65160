package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/apex-agent/apex/internal/files"
	"github.com/apex-agent/apex/internal/registry"
)

const (
	defaultCommandTimeout = 120 * time.Second
	maxListEntries        = 100
)

// blockedPatterns are commands the shell tool refuses outright.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rm\s+(-r|-f|-rf|--recursive|--force)\s+/`),
	regexp.MustCompile(`(?i):\(\)\s*\{`), // fork bomb
	regexp.MustCompile(`(?i)(bash|sh|zsh)\s+-i`),
	regexp.MustCompile(`(?i)curl.*\|\s*(bash|sh|zsh|python|perl)`),
	regexp.MustCompile(`(?i)wget.*\|\s*(bash|sh|zsh|python|perl)`),
	regexp.MustCompile(`(?i)\bnc\s+-[el]`),
	regexp.MustCompile(`(?i)\bsocat\b.*\bexec\b`),
	regexp.MustCompile(`(?i)/dev/tcp/`),
	regexp.MustCompile(`(?i)mkfs`),
	regexp.MustCompile(`(?i)dd\s+if=.*of=/dev/`),
	regexp.MustCompile(`(?i)\breboot\b|\bshutdown\b|\bhalt\b|\bpoweroff\b`),
}

// IsCommandAllowed validates a command against the blocklist.
// Returns (allowed, reason).
func IsCommandAllowed(cmd string) (bool, string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return false, "empty command"
	}
	for _, p := range blockedPatterns {
		if p.MatchString(cmd) {
			return false, fmt.Sprintf("blocked: %s", p.String())
		}
	}
	return true, ""
}

// shellTool runs shell commands and file operations inside the workspace.
type shellTool struct {
	ws *files.Store
}

func (t *shellTool) Name() string { return "shell_execute" }
func (t *shellTool) Description() string {
	return "Run shell commands and file operations in the agent workspace. " +
		"Actions: run_command, write_file, read_file, list_directory, system_info, git_clone, git_init_and_push. " +
		"Commands are checked against a safety blocklist."
}

func (t *shellTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action":          map[string]any{"type": "string", "description": "Action: run_command, write_file, read_file, list_directory, system_info, git_clone, git_init_and_push"},
			"command":         map[string]any{"type": "string", "description": "Shell command (for run_command)"},
			"path":            map[string]any{"type": "string", "description": "File or directory path, relative to the workspace"},
			"content":         map[string]any{"type": "string", "description": "File content (for write_file)"},
			"timeout_seconds": map[string]any{"type": "integer", "description": "Max execution time for run_command (default 120)"},
			"repo_url":        map[string]any{"type": "string", "description": "Repository URL (for git_clone)"},
			"remote_url":      map[string]any{"type": "string", "description": "Remote URL (for git_init_and_push)"},
			"commit_message":  map[string]any{"type": "string", "description": "Commit message (default 'initial commit')"},
			"branch":          map[string]any{"type": "string", "description": "Branch name (default main)"},
		},
		"required": []string{"action"},
	}
}

func (t *shellTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	action := registry.GetString(args, "action")
	switch action {
	case "run_command":
		return t.runCommand(ctx, args)
	case "write_file":
		return t.writeFile(args)
	case "read_file":
		return t.readFile(args)
	case "list_directory":
		return t.listDirectory(args)
	case "system_info":
		return t.systemInfo(), nil
	case "git_clone":
		return t.gitClone(ctx, args)
	case "git_init_and_push":
		return t.gitInitAndPush(ctx, args)
	default:
		return "", fmt.Errorf("unknown action %q (expected run_command, write_file, read_file, list_directory, system_info, git_clone, git_init_and_push)", action)
	}
}

func (t *shellTool) runCommand(ctx context.Context, args map[string]any) (string, error) {
	command := registry.GetString(args, "command")
	if allowed, reason := IsCommandAllowed(command); !allowed {
		return "", fmt.Errorf("command rejected: %s", reason)
	}

	dir := t.ws.Root()
	if p := registry.GetString(args, "path"); p != "" {
		resolved, err := t.ws.Resolve(p)
		if err != nil {
			return "", err
		}
		dir = resolved
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create working directory: %w", err)
	}

	timeout := defaultCommandTimeout
	if sec := registry.GetInt(args, "timeout_seconds", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start).Round(10 * time.Millisecond)

	result := middleTruncate(strings.TrimSpace(string(out)), maxOutputChars)
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s", timeout)
	}
	if err != nil {
		if result == "" {
			result = err.Error()
		}
		return fmt.Sprintf("Command failed (%s):\n%s", elapsed, result), nil
	}
	if result == "" {
		result = "(no output)"
	}
	return fmt.Sprintf("Command succeeded (%s):\n%s", elapsed, result), nil
}

func (t *shellTool) writeFile(args map[string]any) (string, error) {
	path, err := t.ws.Resolve(registry.GetString(args, "path"))
	if err != nil {
		return "", err
	}
	if err := ensureParent(path); err != nil {
		return "", fmt.Errorf("create parent directory: %w", err)
	}
	content := registry.GetString(args, "content")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("✅ Wrote %d bytes to %s", len(content), path), nil
}

func (t *shellTool) readFile(args map[string]any) (string, error) {
	path, err := t.ws.Resolve(registry.GetString(args, "path"))
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return middleTruncate(string(data), maxOutputChars), nil
}

func (t *shellTool) listDirectory(args map[string]any) (string, error) {
	p := registry.GetString(args, "path")
	if p == "" {
		p = "."
	}
	path, err := t.ws.Resolve(p)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("list directory: %w", err)
	}

	// Directories first, then files, each alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Directory: %s\n", path)
	for i, e := range entries {
		if i >= maxListEntries {
			fmt.Fprintf(&sb, "… and %d more items\n", len(entries)-maxListEntries)
			break
		}
		if e.IsDir() {
			fmt.Fprintf(&sb, "📁 %s\n", e.Name())
			continue
		}
		info, err := e.Info()
		if err != nil {
			fmt.Fprintf(&sb, "📄 %s\n", e.Name())
			continue
		}
		fmt.Fprintf(&sb, "📄 %s  (%d bytes)\n", e.Name(), info.Size())
	}
	return sb.String(), nil
}

// probedTools are CLI programs the agent commonly drives.
var probedTools = []string{
	"git", "node", "npm", "npx", "python3", "pip3",
	"docker", "curl", "wget", "make", "gcc", "soffice",
}

func (t *shellTool) systemInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Workspace: %s\n", t.ws.Root())
	sb.WriteString("Available tools:\n")
	for _, tool := range probedTools {
		_, err := exec.LookPath(tool)
		fmt.Fprintf(&sb, "  %s: %v\n", tool, err == nil)
	}
	return sb.String()
}

func (t *shellTool) gitClone(ctx context.Context, args map[string]any) (string, error) {
	repoURL := registry.GetString(args, "repo_url")
	if repoURL == "" {
		return "", fmt.Errorf("repo_url is required for git_clone")
	}
	target := registry.GetString(args, "path")
	if target == "" {
		name := strings.TrimSuffix(filepath.Base(strings.TrimRight(repoURL, "/")), ".git")
		target = name
	}
	return t.runCommand(ctx, map[string]any{
		"command": fmt.Sprintf("git clone %s %s", repoURL, target),
	})
}

func (t *shellTool) gitInitAndPush(ctx context.Context, args map[string]any) (string, error) {
	remote := registry.GetString(args, "remote_url")
	if remote == "" {
		return "", fmt.Errorf("remote_url is required for git_init_and_push")
	}
	dir := registry.GetString(args, "path")
	if dir == "" {
		return "", fmt.Errorf("path is required for git_init_and_push")
	}
	branch := registry.GetString(args, "branch")
	if branch == "" {
		branch = "main"
	}
	message := registry.GetString(args, "commit_message")
	if message == "" {
		message = "initial commit"
	}

	commands := []string{
		"git init",
		fmt.Sprintf("git checkout -b %s", branch),
		"git add .",
		fmt.Sprintf("git commit -m %q", message),
		fmt.Sprintf("git remote add origin %s", remote),
		fmt.Sprintf("git push -u origin %s", branch),
	}

	var sb strings.Builder
	for _, cmd := range commands {
		out, err := t.runCommand(ctx, map[string]any{"command": cmd, "path": dir})
		if err != nil {
			return "", fmt.Errorf("%s: %w", cmd, err)
		}
		fmt.Fprintf(&sb, "$ %s\n%s\n\n", cmd, out)
		// "already exists" and "nothing to commit" are harmless.
		if strings.Contains(out, "Command failed") &&
			!strings.Contains(out, "already exists") &&
			!strings.Contains(out, "nothing to commit") {
			return sb.String(), nil
		}
	}
	return sb.String(), nil
}
