package registry

import (
	"context"
	"strings"
	"testing"
)

type panicTool struct{}

func (t *panicTool) Name() string        { return "panic_tool" }
func (t *panicTool) Description() string { return "always panics" }
func (t *panicTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (t *panicTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	panic("boom")
}

type bigTool struct{ size int }

func (t *bigTool) Name() string        { return "big_tool" }
func (t *bigTool) Description() string { return "returns a huge payload" }
func (t *bigTool) InputSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (t *bigTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	return strings.Repeat("x", t.size), nil
}

func newTestDispatcher(tools ...Tool) *Dispatcher {
	r := NewRegistry()
	for _, tool := range tools {
		r.Register(tool)
	}
	return NewDispatcher(r, nil)
}

func TestDispatch_Success(t *testing.T) {
	d := newTestDispatcher(&echoTool{name: "echo", desc: "echoes"})

	out := d.Dispatch(context.Background(), "echo", map[string]any{"text": "world"})
	if out.Failed {
		t.Fatal("Dispatch failed for healthy tool")
	}
	if out.Payload != "echo: world" {
		t.Errorf("payload: got %q", out.Payload)
	}
	if out.Render() != "echo: world" {
		t.Errorf("render: got %q", out.Render())
	}
}

func TestDispatch_UnknownTool(t *testing.T) {
	d := newTestDispatcher()

	out := d.Dispatch(context.Background(), "no_such_tool", nil)
	if !out.Failed {
		t.Fatal("Dispatch must fail for unknown tool")
	}
	if !strings.Contains(out.Payload, "Unknown tool: no_such_tool") {
		t.Errorf("payload: got %q", out.Payload)
	}
	if !strings.HasPrefix(out.Render(), "❌") {
		t.Errorf("rendered failure missing marker: %q", out.Render())
	}
}

func TestDispatch_ToolError(t *testing.T) {
	d := newTestDispatcher(&failTool{})

	out := d.Dispatch(context.Background(), "fail_tool", nil)
	if !out.Failed {
		t.Fatal("Dispatch must fail when the tool errors")
	}
	if !strings.Contains(out.Payload, "intentional failure") {
		t.Errorf("payload: got %q", out.Payload)
	}
	rendered := out.Render()
	if !strings.HasPrefix(rendered, "❌ Tool execution error:") {
		t.Errorf("rendered: got %q", rendered)
	}
}

func TestDispatch_PanicRecovery(t *testing.T) {
	d := newTestDispatcher(&panicTool{})

	out := d.Dispatch(context.Background(), "panic_tool", nil)
	if !out.Failed {
		t.Fatal("Dispatch must fail when the tool panics")
	}
	if !strings.Contains(out.Payload, "boom") {
		t.Errorf("payload: got %q", out.Payload)
	}
}

func TestRender_Truncation(t *testing.T) {
	d := newTestDispatcher(&bigTool{size: maxResultLen + 500})

	out := d.Dispatch(context.Background(), "big_tool", nil)
	if out.Failed {
		t.Fatal("big_tool must succeed")
	}
	rendered := out.Render()
	if !strings.HasSuffix(rendered, "... (truncated)") {
		t.Error("rendered output missing truncation marker")
	}
	if len(rendered) > maxResultLen+len("\n... (truncated)") {
		t.Errorf("rendered length %d exceeds cap", len(rendered))
	}
	// Payload itself stays untruncated.
	if len(out.Payload) != maxResultLen+500 {
		t.Errorf("payload length %d, want %d", len(out.Payload), maxResultLen+500)
	}
}

func TestRender_NoDoubleMarker(t *testing.T) {
	out := Outcome{Payload: "❌ already marked", Failed: true}
	if got := out.Render(); got != "❌ already marked" {
		t.Errorf("render: got %q", got)
	}
}

func TestArgKeys_Deterministic(t *testing.T) {
	args := map[string]any{"zeta": 1, "alpha": 2, "mid": 3}
	want := "alpha,mid,zeta"
	for i := 0; i < 10; i++ {
		if got := argKeys(args); got != want {
			t.Fatalf("argKeys: got %q, want %q", got, want)
		}
	}
	if got := argKeys(nil); got != "(none)" {
		t.Errorf("argKeys(nil): got %q", got)
	}
}
