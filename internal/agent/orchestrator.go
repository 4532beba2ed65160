package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/apex-agent/apex/internal/metrics"
	"github.com/apex-agent/apex/internal/provider"
	"github.com/apex-agent/apex/internal/registry"
)

const (
	// defaultMaxRounds caps model invocations per submitted turn.
	defaultMaxRounds = 10

	maxRoundsMessage = "⚠️ I hit the limit of tool rounds for this request. " +
		"The work done so far is preserved in the conversation — ask me to continue if needed."
	unexpectedStopMessage = "⚠️ The model stopped unexpectedly. Please try again or rephrase the request."
)

// Orchestrator drives one conversation: it holds the append-only message
// history and runs the model/tool round loop for each submitted turn.
type Orchestrator struct {
	provider   provider.Provider
	registry   *registry.Registry
	dispatcher *registry.Dispatcher
	system     string
	maxRounds  int
	log        *slog.Logger

	mu      sync.Mutex
	history []provider.Message
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRounds overrides the per-turn round cap.
func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithSystemPrompt overrides the default system prompt.
func WithSystemPrompt(s string) Option {
	return func(o *Orchestrator) { o.system = s }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// New creates an orchestrator over a model provider and a tool registry.
func New(p provider.Provider, reg *registry.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider:  p,
		registry:  reg,
		system:    SystemPrompt(),
		maxRounds: defaultMaxRounds,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.dispatcher = registry.NewDispatcher(reg, o.log)
	return o
}

// SubmitTurn appends one user turn to the conversation and runs the round
// loop until the model produces a final answer. fileRef, when non-empty,
// is a local path to a file the user attached; the model is told about it
// via an annotation on the user message.
//
// On a transport error the user turn stays in the history and the error is
// returned; a later SubmitTurn continues from the same state.
func (o *Orchestrator) SubmitTurn(ctx context.Context, text, fileRef string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if fileRef != "" {
		text = text + "\n\n[Uploaded file available at: " + fileRef + "]"
	}
	o.history = append(o.history, provider.TextMessage(provider.RoleUser, text))

	if hint := RouteHint(text); hint != "" {
		o.log.Debug("task route detected", slog.String("route", hint))
	}

	tools := o.registry.ToAPITools()

	for round := 1; round <= o.maxRounds; round++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		resp, err := o.provider.Invoke(ctx, o.history, o.system, tools)
		if err != nil {
			metrics.ModelCalls.WithLabelValues("error").Inc()
			return "", fmt.Errorf("model call failed (round %d): %w", round, err)
		}
		metrics.ModelCalls.WithLabelValues("ok").Inc()

		switch resp.StopReason {
		case provider.StopToolUse:
			calls := resp.ToolCalls()
			if len(calls) == 0 {
				// Malformed: tool_use stop with no tool_use blocks.
				o.log.Warn("tool_use stop without tool calls", slog.Int("round", round))
				return unexpectedStopMessage, nil
			}

			o.history = append(o.history, provider.Message{
				Role:    provider.RoleAssistant,
				Content: resp.Content,
			})
			o.history = append(o.history, o.runToolCalls(ctx, calls, round))

		case provider.StopEndTurn:
			if len(resp.Content) == 0 {
				// An assistant message with no content blocks would be
				// rejected by the API on the next call, so keep it out
				// of the history.
				o.log.Warn("empty end_turn response", slog.Int("round", round))
				metrics.RoundsPerTurn.Observe(float64(round))
				return "(no response)", nil
			}
			o.history = append(o.history, provider.Message{
				Role:    provider.RoleAssistant,
				Content: resp.Content,
			})
			answer := strings.TrimSpace(resp.Text())
			if answer == "" {
				answer = "(no response)"
			}
			metrics.RoundsPerTurn.Observe(float64(round))
			return answer, nil

		default:
			// max_tokens, refusal, future reasons: surface without
			// recording a partial assistant turn.
			o.log.Warn("unexpected stop reason",
				slog.String("stop_reason", resp.StopReason),
				slog.Int("round", round))
			return unexpectedStopMessage, nil
		}
	}

	o.log.Warn("max tool rounds reached", slog.Int("max_rounds", o.maxRounds))
	return maxRoundsMessage, nil
}

// runToolCalls dispatches all tool calls of one assistant turn concurrently
// and assembles their results into a single user message. Result blocks
// keep the emission order of the tool_use blocks, correlated by call ID.
func (o *Orchestrator) runToolCalls(ctx context.Context, calls []provider.ContentBlock, round int) provider.Message {
	results := make([]provider.ContentBlock, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call provider.ContentBlock) {
			defer wg.Done()
			o.log.Info("executing tool",
				slog.String("tool", call.Name),
				slog.String("call_id", call.ID),
				slog.Int("round", round))
			out := o.dispatcher.Dispatch(ctx, call.Name, call.Input)
			results[i] = provider.ContentBlock{
				Type:      provider.BlockToolResult,
				ToolUseID: call.ID,
				Content:   out.Render(),
			}
		}(i, call)
	}
	wg.Wait()

	return provider.Message{Role: provider.RoleUser, Content: results}
}

// Reset discards the conversation history.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = nil
}

// History returns a copy of the conversation so far.
func (o *Orchestrator) History() []provider.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]provider.Message, len(o.history))
	copy(out, o.history)
	return out
}

// Len returns the number of messages in the history.
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.history)
}
