package tools

import (
	"context"
	"strings"
	"testing"
)

func TestReelBriefDefaults(t *testing.T) {
	tool := &videoTool{}

	out, err := tool.Execute(context.Background(), map[string]any{
		"format": "instagram_reel",
		"topic":  "morning routines",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{
		"Instagram Reel Brief: morning routines",
		"Duration: 30s",
		"vertical 9:16",
		"Main content (9-22s)",
		"30 relevant hashtags",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("brief missing %q:\n%s", want, out)
		}
	}
}

func TestReelBriefWithoutHashtags(t *testing.T) {
	tool := &videoTool{}

	out, err := tool.Execute(context.Background(), map[string]any{
		"format":           "instagram_reel",
		"topic":            "go concurrency",
		"duration_seconds": 60,
		"tone":             "professional",
		"include_hashtags": false,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(out, "hashtags") {
		t.Error("hashtag line present despite include_hashtags=false")
	}
	if !strings.Contains(out, "Duration: 60s") || !strings.Contains(out, "professional") {
		t.Errorf("out = %q", out)
	}
}

func TestYoutubeBrief(t *testing.T) {
	tool := &videoTool{}

	out, err := tool.Execute(context.Background(), map[string]any{
		"format":         "youtube_video",
		"topic":          "building a CLI in Go",
		"length_minutes": 15,
		"style":          "tutorial",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{
		"YouTube Video Brief: building a CLI in Go",
		"Length: 15 min",
		"Complete 15-minute script with timestamps",
		"5 SEO-optimized title options",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("brief missing %q:\n%s", want, out)
		}
	}
}

func TestVideoUnknownFormat(t *testing.T) {
	tool := &videoTool{}

	_, err := tool.Execute(context.Background(), map[string]any{
		"format": "tiktok",
		"topic":  "x",
	})
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("err = %v", err)
	}
}

func TestVideoEmptyTopic(t *testing.T) {
	tool := &videoTool{}

	_, err := tool.Execute(context.Background(), map[string]any{"format": "instagram_reel"})
	if err == nil {
		t.Fatal("expected error for empty topic")
	}
}
