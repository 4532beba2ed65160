package provider

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a structured error from the model API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
	Raw        string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("model API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model API error %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// IsAuth returns true for 401/403 authentication errors.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRateLimit returns true for 429 quota/rate-limit errors.
func (e *APIError) IsRateLimit() bool {
	return e.StatusCode == 429
}

// IsOverloaded returns true when the API reports temporary overload.
func (e *APIError) IsOverloaded() bool {
	return e.StatusCode == 529 || e.Type == "overloaded_error"
}

// IsServerError returns true for 5xx server errors.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsTransient returns true if the error is worth retrying.
func (e *APIError) IsTransient() bool {
	return e.IsRateLimit() || e.IsOverloaded() || e.IsServerError()
}

// parseAPIError parses a non-200 HTTP response body into an APIError.
func parseAPIError(statusCode int, body []byte) *APIError {
	ae := &APIError{
		StatusCode: statusCode,
		Raw:        string(body),
	}

	// Standard format: {"type":"error","error":{"type":"...","message":"..."}}
	var wire struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wire) == nil && wire.Error.Message != "" {
		ae.Type = wire.Error.Type
		ae.Message = wire.Error.Message
		return ae
	}

	// Fallback: first line of body, capped.
	s := strings.TrimSpace(string(body))
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		s = s[:idx]
	}
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	ae.Message = s
	return ae
}
