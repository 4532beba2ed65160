package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAnthropic(url string) *Anthropic {
	a := NewAnthropic()
	a.baseURL = url
	a.apiKey = "test-key"
	a.model = "test-model"
	return a
}

func TestInvokeTextResponse(t *testing.T) {
	var gotVersion, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "hello"}},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	a := newTestAnthropic(srv.URL)
	resp, err := a.Invoke(context.Background(), []Message{TextMessage(RoleUser, "hi")}, "", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.StopReason != StopEndTurn {
		t.Errorf("stop_reason = %q, want end_turn", resp.StopReason)
	}
	if resp.Text() != "hello" {
		t.Errorf("text = %q, want hello", resp.Text())
	}
	if gotVersion != anthropicVersion {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
}

func TestInvokeToolUseResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "let me check"},
				{"type": "tool_use", "id": "call_1", "name": "shell_execute", "input": map[string]any{"command": "ls"}},
			},
			"stop_reason": "tool_use",
		})
	}))
	defer srv.Close()

	a := newTestAnthropic(srv.URL)
	resp, err := a.Invoke(context.Background(), []Message{TextMessage(RoleUser, "list files")}, "system", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.StopReason != StopToolUse {
		t.Errorf("stop_reason = %q, want tool_use", resp.StopReason)
	}
	calls := resp.ToolCalls()
	if len(calls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "shell_execute" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
	if calls[0].Input["command"] != "ls" {
		t.Errorf("input = %v", calls[0].Input)
	}
}

func TestInvokeRequestBody(t *testing.T) {
	var got messageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "ok"}},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	a := newTestAnthropic(srv.URL)
	tools := []ToolDefinition{{Name: "read_file", Description: "reads", InputSchema: map[string]any{"type": "object"}}}
	_, err := a.Invoke(context.Background(), []Message{TextMessage(RoleUser, "hi")}, "be helpful", tools)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	if got.System != "be helpful" {
		t.Errorf("system = %q", got.System)
	}
	if len(got.Tools) != 1 || got.Tools[0].Name != "read_file" {
		t.Errorf("tools = %+v", got.Tools)
	}
}

func TestInvokeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	a := newTestAnthropic(srv.URL)
	_, err := a.Invoke(context.Background(), []Message{TextMessage(RoleUser, "hi")}, "", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	ae, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if !ae.IsAuth() {
		t.Errorf("IsAuth() = false for status %d", ae.StatusCode)
	}
	if ae.Type != "authentication_error" {
		t.Errorf("type = %q", ae.Type)
	}
	if ae.IsTransient() {
		t.Error("auth error must not be transient")
	}
}

func TestInvokeNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream connect error\nsecond line"))
	}))
	defer srv.Close()

	a := newTestAnthropic(srv.URL)
	_, err := a.Invoke(context.Background(), []Message{TextMessage(RoleUser, "hi")}, "", nil)
	ae, ok := err.(*APIError)
	if !ok {
		t.Fatalf("error type %T, want *APIError", err)
	}
	if ae.Message != "upstream connect error" {
		t.Errorf("message = %q", ae.Message)
	}
	if !ae.IsTransient() {
		t.Error("502 must be transient")
	}
}

func TestAPIErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		errType   string
		transient bool
	}{
		{429, "rate_limit_error", true},
		{529, "overloaded_error", true},
		{500, "api_error", true},
		{400, "invalid_request_error", false},
		{401, "authentication_error", false},
	}
	for _, c := range cases {
		ae := &APIError{StatusCode: c.status, Type: c.errType}
		if ae.IsTransient() != c.transient {
			t.Errorf("status %d: IsTransient() = %v, want %v", c.status, ae.IsTransient(), c.transient)
		}
	}
}

func TestWithModelClones(t *testing.T) {
	a := newTestAnthropic("http://example.invalid")
	b := a.WithModel("other-model")
	if a.Model() == b.Model() {
		t.Error("WithModel must not mutate the receiver")
	}
	if b.Model() != "other-model" {
		t.Errorf("model = %q", b.Model())
	}
}
