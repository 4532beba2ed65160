package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/apex-agent/apex/internal/registry"
)

const sandboxMaxOutput = 50 * 1024 // 50KB

// CodeRunner executes a Python snippet and returns its combined output.
type CodeRunner interface {
	Run(ctx context.Context, code string, timeout time.Duration) (string, error)
}

// codeTool runs Python code through a CodeRunner.
type codeTool struct {
	runner         CodeRunner
	defaultTimeout time.Duration
}

func (t *codeTool) Name() string { return "execute_code" }
func (t *codeTool) Description() string {
	return "Execute Python code in a sandbox and return stdout/stderr. " +
		"Use for calculations, data processing, and script verification."
}

func (t *codeTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":            map[string]any{"type": "string", "description": "Python code to execute"},
			"timeout_seconds": map[string]any{"type": "integer", "description": "Max execution time (default 30)"},
		},
		"required": []string{"code"},
	}
}

func (t *codeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	code := registry.GetString(args, "code")
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("code is empty")
	}

	timeout := t.defaultTimeout
	if sec := registry.GetInt(args, "timeout_seconds", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	out, err := t.runner.Run(ctx, code, timeout)
	if err != nil {
		return "", err
	}
	if out == "" {
		out = "(no output)"
	}
	return out, nil
}

// sandboxRunner executes code inside a long-running container via the
// Docker exec API.
type sandboxRunner struct {
	cli       *client.Client
	container string
}

// newSandboxRunner connects to the local Docker daemon. Returns an error
// when the daemon is unreachable so callers can fall back to a subprocess.
func newSandboxRunner(ctx context.Context, containerName string) (*sandboxRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker ping: %w", err)
	}
	return &sandboxRunner{cli: cli, container: containerName}, nil
}

func (r *sandboxRunner) Run(ctx context.Context, code string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCfg := container.ExecOptions{
		Cmd:          []string{"python3", "-c", code},
		AttachStdout: true,
		AttachStderr: true,
	}
	execResp, err := r.cli.ContainerExecCreate(ctx, r.container, execCfg)
	if err != nil {
		return "", fmt.Errorf("exec create failed: %w", err)
	}

	attachResp, err := r.cli.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", fmt.Errorf("exec attach failed: %w", err)
	}
	defer attachResp.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return "", fmt.Errorf("reading exec output: %w", err)
	}

	inspectResp, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return "", fmt.Errorf("exec inspect failed: %w", err)
	}

	return formatRunOutput(stdout.String(), stderr.String(), inspectResp.ExitCode), nil
}

// subprocessRunner executes code with the host python3 via a temp file.
// Used when no sandbox container is configured.
type subprocessRunner struct{}

func (subprocessRunner) Run(ctx context.Context, code string, timeout time.Duration) (string, error) {
	f, err := os.CreateTemp("", "apex-code-*.py")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return "", fmt.Errorf("write code: %w", err)
	}
	f.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "python3", f.Name())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("execution timed out after %s", timeout)
	}

	exitCode := 0
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if runErr != nil {
		return "", fmt.Errorf("run python3: %w", runErr)
	}

	return formatRunOutput(stdout.String(), stderr.String(), exitCode), nil
}

func formatRunOutput(stdout, stderr string, exitCode int) string {
	var sb strings.Builder
	if stdout != "" {
		sb.WriteString(strings.TrimRight(capOutput(stdout), "\n"))
	}
	if stderr != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[stderr] ")
		sb.WriteString(capOutput(stderr))
	}
	if exitCode != 0 {
		fmt.Fprintf(&sb, "\n\nExit code: %d", exitCode)
	}
	return strings.TrimSpace(sb.String())
}

func capOutput(s string) string {
	if len(s) > sandboxMaxOutput {
		return s[:sandboxMaxOutput] + "\n... (truncated at 50KB)"
	}
	return s
}
