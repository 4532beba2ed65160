package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func ddgResultHTML(title, target, snippet string) string {
	wrapped := "//duckduckgo.com/l/?uddg=" + url.QueryEscape(target) + "&rut=abc"
	return fmt.Sprintf(
		`<div class="result"><h2 class="result__title">`+
			`<a rel="nofollow" class="result__a" href="%s">%s</a></h2>`+
			`<a class="result__snippet" href="%s">%s</a></div>`,
		wrapped, title, wrapped, snippet)
}

func newTestSearcher(t *testing.T, handler http.HandlerFunc) (*searcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s := newSearcher(srv.Client())
	s.baseURL = srv.URL
	return s, srv
}

func TestSearcherParsesResults(t *testing.T) {
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.FormValue("q") != "golang slog" {
			t.Errorf("query = %q", r.FormValue("q"))
		}
		fmt.Fprint(w, "<html><body>")
		fmt.Fprint(w, ddgResultHTML("Structured logging", "https://go.dev/blog/slog", "The slog package&hellip;"))
		fmt.Fprint(w, ddgResultHTML("slog handler guide", "https://example.com/guide", "Writing <b>handlers</b>"))
		fmt.Fprint(w, "</body></html>")
	})

	results, err := s.search(context.Background(), "golang slog", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://go.dev/blog/slog" {
		t.Errorf("URL = %q, want unwrapped redirect", results[0].URL)
	}
	if results[0].Title != "Structured logging" {
		t.Errorf("Title = %q", results[0].Title)
	}
	if results[1].Snippet != "Writing handlers" {
		t.Errorf("Snippet = %q, want tags stripped", results[1].Snippet)
	}
}

func TestSearcherLimit(t *testing.T) {
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 10; i++ {
			fmt.Fprint(w, ddgResultHTML(fmt.Sprintf("r%d", i), fmt.Sprintf("https://e.com/%d", i), "s"))
		}
	})

	results, err := s.search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestWebSearchToolFormatting(t *testing.T) {
	s, srv := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ddgResultHTML("Hit", "https://example.com/page", "a snippet"))
	})
	tool := &webSearchTool{search: s, client: srv.Client()}

	out, err := tool.Execute(context.Background(), map[string]any{
		"query":         "anything",
		"fetch_content": false,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"Web Search Results", "### 1. Hit", "https://example.com/page", "a snippet"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWebSearchToolNoResults(t *testing.T) {
	s, srv := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>no hits</body></html>")
	})
	tool := &webSearchTool{search: s, client: srv.Client()}

	out, err := tool.Execute(context.Background(), map[string]any{"query": "zxqv"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "⚠️ No search results") {
		t.Errorf("out = %q", out)
	}
}

func TestForumSearchAddsSiteFilters(t *testing.T) {
	var gotQuery string
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotQuery = r.FormValue("q")
		fmt.Fprint(w, ddgResultHTML("Thread", "https://reddit.com/r/golang/1", "discussion"))
	})
	tool := &forumSearchTool{search: s}

	out, err := tool.Execute(context.Background(), map[string]any{"query": "context cancellation"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(gotQuery, "site:reddit.com") || !strings.Contains(gotQuery, "site:stackoverflow.com") {
		t.Errorf("query = %q, want site filters", gotQuery)
	}
	if !strings.Contains(out, "Forum & Community Results") {
		t.Errorf("out = %q", out)
	}
}

func TestDeepResearchDeduplicates(t *testing.T) {
	calls := 0
	s, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Every sub-query returns the same URL plus one unique hit.
		fmt.Fprint(w, ddgResultHTML("Common", "https://example.com/common", "seen everywhere"))
		fmt.Fprint(w, ddgResultHTML("Unique", fmt.Sprintf("https://example.com/u%d", calls), "fresh"))
	})
	tool := &deepResearchTool{search: s}

	out, err := tool.Execute(context.Background(), map[string]any{"topic": "go generics"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls != 5 {
		t.Errorf("sub-queries = %d, want 5", calls)
	}
	if got := strings.Count(out, "https://example.com/common"); got != 1 {
		t.Errorf("common URL appears %d times, want 1", got)
	}
	if !strings.Contains(out, "Total unique sources gathered: 6") {
		t.Errorf("out footer wrong:\n%s", out)
	}
}

func TestFetchURLTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Hello</h1><p>world   again</p></body></html>")
	}))
	defer srv.Close()
	tool := &fetchURLTool{client: srv.Client()}

	out, err := tool.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "Hello world again" {
		t.Errorf("out = %q, want cleaned text", out)
	}
}

func TestFetchURLBinaryContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x89, 0x50, 0x4e})
	}))
	defer srv.Close()
	tool := &fetchURLTool{client: srv.Client()}

	out, err := tool.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "Binary content") {
		t.Errorf("out = %q", out)
	}
}

func TestFetchURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	tool := &fetchURLTool{client: srv.Client()}

	_, err := tool.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want status error", err)
	}
}
