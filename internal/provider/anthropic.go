package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

const (
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"

	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-6"
	defaultMaxTokens = 8096
)

// Anthropic is a Messages-API HTTP provider.
type Anthropic struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewAnthropic creates a provider from environment variables.
// APEX_API_KEY — API key (required for real calls)
// APEX_API_URL (default https://api.anthropic.com)
// APEX_MODEL (default claude-sonnet-4-6)
// APEX_MAX_TOKENS (default 8096)
func NewAnthropic() *Anthropic {
	baseURL := os.Getenv("APEX_API_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := os.Getenv("APEX_MODEL")
	if model == "" {
		model = defaultModel
	}
	maxTokens := defaultMaxTokens
	if v := os.Getenv("APEX_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxTokens = n
		}
	}
	return &Anthropic{
		baseURL:   baseURL,
		apiKey:    os.Getenv("APEX_API_KEY"),
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the configured model identifier.
func (a *Anthropic) Model() string { return a.model }

// WithModel returns a copy of the provider that targets a different model.
// The HTTP client is shared.
func (a *Anthropic) WithModel(model string) *Anthropic {
	clone := *a
	clone.model = model
	return &clone
}

// messageRequest is the Messages API request body.
type messageRequest struct {
	Model     string           `json:"model"`
	MaxTokens int              `json:"max_tokens"`
	System    string           `json:"system,omitempty"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

// messageResponse is the subset of the Messages API response we consume.
type messageResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// Invoke sends one Messages API request and returns the parsed response.
func (a *Anthropic) Invoke(ctx context.Context, messages []Message, system string, tools []ToolDefinition) (*Response, error) {
	body := messageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  messages,
		Tools:     tools,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+messagesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("anthropic-version", anthropicVersion)
	if a.apiKey != "" {
		req.Header.Set("x-api-key", a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, data)
	}

	var result messageResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Content) == 0 && result.StopReason == "" {
		return nil, fmt.Errorf("empty model response body")
	}

	return &Response{
		Content:    result.Content,
		StopReason: result.StopReason,
	}, nil
}
