package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/apex-agent/apex/internal/metrics"
)

// maxResultLen caps the rendered tool result before it is fed back to
// the model. Oversized outputs blow up the context window.
const maxResultLen = 30000

// Outcome is the result of dispatching one tool call. Dispatch never
// returns an error: failures are carried as data so the model can see
// them and adjust.
type Outcome struct {
	Payload string
	Failed  bool
}

// Render formats the outcome for the model. Failures carry a visible
// marker, and everything is truncated to maxResultLen.
func (o Outcome) Render() string {
	s := o.Payload
	if o.Failed && !strings.HasPrefix(s, "❌") {
		s = "❌ " + s
	}
	if len(s) > maxResultLen {
		s = s[:maxResultLen] + "\n... (truncated)"
	}
	return s
}

// Dispatcher resolves tool calls against a registry and converts every
// failure mode into a renderable Outcome.
type Dispatcher struct {
	reg *Registry
	log *slog.Logger
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{reg: reg, log: log}
}

// Dispatch executes one tool call. Unknown tools, tool errors, and tool
// panics all come back as failed Outcomes, never as errors or panics.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tool panicked",
				slog.String("tool", name),
				slog.Any("panic", r))
			out = Outcome{
				Payload: fmt.Sprintf("Tool execution error: panic in %s: %v", name, r),
				Failed:  true,
			}
		}
	}()

	tool, ok := d.reg.Get(name)
	if !ok {
		d.log.Warn("unknown tool requested", slog.String("tool", name))
		metrics.ToolCalls.WithLabelValues(name, "unknown").Inc()
		return Outcome{
			Payload: fmt.Sprintf("Unknown tool: %s", name),
			Failed:  true,
		}
	}

	// Only argument keys are logged. Values may hold user content.
	d.log.Info("dispatching tool",
		slog.String("tool", name),
		slog.String("args", argKeys(args)))

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)
	metrics.ToolDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		d.log.Warn("tool failed",
			slog.String("tool", name),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
		metrics.ToolCalls.WithLabelValues(name, "error").Inc()
		return Outcome{
			Payload: fmt.Sprintf("Tool execution error: %v", err),
			Failed:  true,
		}
	}

	d.log.Info("tool completed",
		slog.String("tool", name),
		slog.Duration("elapsed", elapsed),
		slog.Int("result_len", len(result)))
	metrics.ToolCalls.WithLabelValues(name, "ok").Inc()
	return Outcome{Payload: result}
}

// argKeys renders the argument key set in sorted order.
func argKeys(args map[string]any) string {
	if len(args) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}
