package provider

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	retryMaxAttempts = 2
	retryBaseDelay   = 1 * time.Second
	retryMaxDelay    = 30 * time.Second
)

// resilient wraps a primary Provider with transient-error retries and an
// optional fallback model tried after the primary is exhausted.
type resilient struct {
	primary  Provider
	fallback Provider
	policy   retrypolicy.RetryPolicy[*Response]
}

// NewFromEnv creates a Provider from environment variables. Transient API
// errors (429/5xx/overload) are retried with backoff. If APEX_FALLBACK_MODEL
// is set, that model is tried once after the primary fails.
func NewFromEnv() Provider {
	primary := NewAnthropic()

	var fallback Provider
	if m := os.Getenv("APEX_FALLBACK_MODEL"); m != "" && m != primary.Model() {
		fallback = primary.WithModel(m)
		slog.Info("fallback model configured", slog.String("model", m))
	}

	return &resilient{
		primary:  primary,
		fallback: fallback,
		policy:   newRetryPolicy(),
	}
}

func newRetryPolicy() retrypolicy.RetryPolicy[*Response] {
	return retrypolicy.NewBuilder[*Response]().
		HandleIf(func(_ *Response, err error) bool { return isTransient(err) }).
		WithBackoff(retryBaseDelay, retryMaxDelay).
		WithMaxRetries(retryMaxAttempts).
		Build()
}

// Invoke tries the primary provider with retries; on failure tries the
// fallback model once (also with retries).
func (r *resilient) Invoke(ctx context.Context, messages []Message, system string, tools []ToolDefinition) (*Response, error) {
	resp, err := failsafe.With(r.policy).Get(func() (*Response, error) {
		return r.primary.Invoke(ctx, messages, system, tools)
	})
	if err == nil {
		return resp, nil
	}

	if r.fallback == nil || ctx.Err() != nil {
		return nil, err
	}

	slog.Warn("primary model failed, trying fallback",
		slog.String("error", err.Error()),
		slog.Bool("auth_error", isAuthError(err)))

	resp, fbErr := failsafe.With(r.policy).Get(func() (*Response, error) {
		return r.fallback.Invoke(ctx, messages, system, tools)
	})
	if fbErr != nil {
		return nil, fbErr
	}
	return resp, nil
}

// isTransient returns true if err is an APIError worth retrying.
func isTransient(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.IsTransient()
}

// isAuthError returns true if err is a 401 or 403 APIError.
func isAuthError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.IsAuth()
}
