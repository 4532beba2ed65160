package tools

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/apex-agent/apex/internal/registry"
)

const (
	searchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	defaultSearchURL = "https://html.duckduckgo.com/html/"
	fetchMaxChars    = 6000
)

// forumDomains are community sites the forum_search tool targets.
var forumDomains = []string{
	"reddit.com",
	"stackoverflow.com",
	"stackexchange.com",
	"news.ycombinator.com",
	"dev.to",
	"medium.com",
	"github.com",
	"github.io",
	"hashnode.dev",
	"community.atlassian.com",
	"discuss.python.org",
	"forums.swift.org",
}

// searchResult is one hit from the DuckDuckGo HTML endpoint.
type searchResult struct {
	Title   string
	URL     string
	Snippet string
}

// searcher scrapes the DuckDuckGo HTML endpoint. No API key required.
type searcher struct {
	client  *http.Client
	baseURL string
}

func newSearcher(client *http.Client) *searcher {
	return &searcher{client: client, baseURL: defaultSearchURL}
}

var (
	// The HTML endpoint wraps each hit in result__a / result__snippet
	// anchors. Attribute order is stable enough for a scrape.
	resultLinkRe    = regexp.MustCompile(`<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	resultSnippetRe = regexp.MustCompile(`class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe           = regexp.MustCompile(`<[^>]+>`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

func (s *searcher) search(ctx context.Context, query string, limit int) ([]searchResult, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", searchUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	links := resultLinkRe.FindAllStringSubmatch(string(body), -1)
	snippets := resultSnippetRe.FindAllStringSubmatch(string(body), -1)

	var results []searchResult
	for i, m := range links {
		if len(results) >= limit {
			break
		}
		r := searchResult{
			Title: cleanText(m[2], 200),
			URL:   decodeResultURL(m[1]),
		}
		if i < len(snippets) {
			r.Snippet = cleanText(snippets[i][1], 800)
		}
		if r.URL != "" {
			results = append(results, r)
		}
	}
	return results, nil
}

// decodeResultURL unwraps DuckDuckGo's redirect links (//duckduckgo.com/l/?uddg=...).
func decodeResultURL(raw string) string {
	raw = html.UnescapeString(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" && strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// cleanText strips tags, unescapes entities, and collapses whitespace.
func cleanText(s string, maxChars int) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if len(s) > maxChars {
		return s[:maxChars] + "…"
	}
	return s
}

// fetchPage downloads a URL and returns its cleaned text content.
func fetchPage(ctx context.Context, client *http.Client, pageURL string, maxChars int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text") && !strings.Contains(contentType, "json") {
		return fmt.Sprintf("[Binary content at %s — cannot display as text]", pageURL), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return cleanText(string(body), maxChars), nil
}

// --- web_search ---

type webSearchTool struct {
	search *searcher
	client *http.Client
}

func (t *webSearchTool) Name() string { return "web_search" }
func (t *webSearchTool) Description() string {
	return "Search the web via DuckDuckGo. Returns titles, URLs, and snippets; " +
		"the top results include fetched page content."
}

func (t *webSearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":         map[string]any{"type": "string", "description": "Search query"},
			"num_results":   map[string]any{"type": "integer", "description": "Number of results (default 10)"},
			"fetch_content": map[string]any{"type": "boolean", "description": "Fetch page body for the top 3 results (default true)"},
		},
		"required": []string{"query"},
	}
}

func (t *webSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := registry.GetString(args, "query")
	if query == "" {
		return "", fmt.Errorf("query is empty")
	}
	limit := registry.GetInt(args, "num_results", 10)

	results, err := t.search.search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("⚠️ No search results found for: %s", query), nil
	}

	fetchContent := true
	if v := registry.GetBoolPtr(args, "fetch_content"); v != nil {
		fetchContent = *v
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Web Search Results — %q\n\n", query)
	for i, r := range results {
		snippet := r.Snippet
		if fetchContent && i < 3 {
			if page, err := fetchPage(ctx, t.client, r.URL, 1500); err == nil && page != "" {
				snippet = page
			}
		}
		if snippet == "" {
			snippet = "(no snippet)"
		}
		fmt.Fprintf(&sb, "### %d. %s\n**URL:** %s\n%s\n\n", i+1, r.Title, r.URL, snippet)
	}
	return strings.TrimSpace(sb.String()), nil
}

// --- forum_search ---

type forumSearchTool struct {
	search *searcher
}

func (t *forumSearchTool) Name() string { return "forum_search" }
func (t *forumSearchTool) Description() string {
	return "Search developer forums and community sites: Reddit, Stack Overflow, " +
		"Hacker News, dev.to, Medium, GitHub."
}

func (t *forumSearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":       map[string]any{"type": "string", "description": "Search query"},
			"num_results": map[string]any{"type": "integer", "description": "Number of results (default 10)"},
		},
		"required": []string{"query"},
	}
}

func (t *forumSearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := registry.GetString(args, "query")
	if query == "" {
		return "", fmt.Errorf("query is empty")
	}
	limit := registry.GetInt(args, "num_results", 10)

	sites := make([]string, 0, 6)
	for _, d := range forumDomains[:6] {
		sites = append(sites, "site:"+d)
	}
	enhanced := fmt.Sprintf("%s (%s)", query, strings.Join(sites, " OR "))

	results, err := t.search.search(ctx, enhanced, limit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("⚠️ No forum results found for: %s", query), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Forum & Community Results — %q\n\n", query)
	for i, r := range results {
		snippet := r.Snippet
		if snippet == "" {
			snippet = "(no snippet)"
		}
		fmt.Fprintf(&sb, "### %d. %s\n**URL:** %s\n%s\n\n", i+1, r.Title, r.URL, snippet)
	}
	return strings.TrimSpace(sb.String()), nil
}

// --- deep_research ---

type deepResearchTool struct {
	search *searcher
}

func (t *deepResearchTool) Name() string { return "deep_research" }
func (t *deepResearchTool) Description() string {
	return "Research a topic by running several targeted sub-queries (general, " +
		"tutorials, best practices, known issues, community threads) and merging " +
		"the unique results into one report."
}

func (t *deepResearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{"type": "string", "description": "Topic to research"},
		},
		"required": []string{"topic"},
	}
}

func (t *deepResearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	topic := registry.GetString(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("topic is empty")
	}

	subQueries := []string{
		topic,
		topic + " tutorial guide how-to",
		topic + " best practices tips",
		topic + " problems issues solutions",
		topic + " reddit stackoverflow community",
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Deep Research Report: %s\n\n", topic)
	seen := map[string]bool{}

	for _, q := range subQueries {
		results, err := t.search.search(ctx, q, 5)
		if err != nil || len(results) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "## Query: %q\n\n", q)
		added := 0
		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			fmt.Fprintf(&sb, "**%s**\n%s\n%s\n\n", r.Title, r.URL, r.Snippet)
			added++
			if added >= 3 {
				break
			}
		}
	}

	fmt.Fprintf(&sb, "---\n*Total unique sources gathered: %d*", len(seen))
	return sb.String(), nil
}

// --- fetch_url ---

type fetchURLTool struct {
	client *http.Client
}

func (t *fetchURLTool) Name() string { return "fetch_url" }
func (t *fetchURLTool) Description() string {
	return "Fetch a web page and return its cleaned text content."
}

func (t *fetchURLTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":       map[string]any{"type": "string", "description": "URL to fetch"},
			"max_chars": map[string]any{"type": "integer", "description": "Maximum characters to return (default 6000)"},
		},
		"required": []string{"url"},
	}
}

func (t *fetchURLTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	pageURL := registry.GetString(args, "url")
	if pageURL == "" {
		return "", fmt.Errorf("url is empty")
	}
	maxChars := registry.GetInt(args, "max_chars", fetchMaxChars)
	return fetchPage(ctx, t.client, pageURL, maxChars)
}
