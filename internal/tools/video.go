package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex-agent/apex/internal/registry"
)

// videoTool builds content briefs for short-form and long-form video. The
// brief goes back to the model, which then writes the actual script from it.
type videoTool struct{}

func (t *videoTool) Name() string { return "create_video_content" }
func (t *videoTool) Description() string {
	return "Build a structured content brief for video production. " +
		"Formats: instagram_reel (15-90s vertical) and youtube_video (long-form package). " +
		"Returns a brief to expand into a full script."
}

func (t *videoTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format":           map[string]any{"type": "string", "description": "Format: instagram_reel or youtube_video"},
			"topic":            map[string]any{"type": "string", "description": "Topic or subject of the video"},
			"duration_seconds": map[string]any{"type": "integer", "description": "Reel duration: 15, 30, 60, or 90 (default 30)"},
			"length_minutes":   map[string]any{"type": "integer", "description": "YouTube video length in minutes (default 10)"},
			"niche":            map[string]any{"type": "string", "description": "Content niche: tech, business, lifestyle, education (default general)"},
			"tone":             map[string]any{"type": "string", "description": "Tone: engaging, professional, funny, motivational (default engaging)"},
			"style":            map[string]any{"type": "string", "description": "YouTube style: tutorial, vlog, review, explainer, storytime (default tutorial)"},
			"audience":         map[string]any{"type": "string", "description": "Target audience (default general)"},
			"include_hashtags": map[string]any{"type": "boolean", "description": "Include hashtag suggestions for reels (default true)"},
		},
		"required": []string{"format", "topic"},
	}
}

func (t *videoTool) Execute(_ context.Context, args map[string]any) (string, error) {
	topic := registry.GetString(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("topic is empty")
	}

	switch format := registry.GetString(args, "format"); format {
	case "instagram_reel":
		return reelBrief(topic, args), nil
	case "youtube_video":
		return youtubeBrief(topic, args), nil
	default:
		return "", fmt.Errorf("unknown format %q (expected instagram_reel or youtube_video)", format)
	}
}

func reelBrief(topic string, args map[string]any) string {
	duration := registry.GetInt(args, "duration_seconds", 30)
	niche := registry.GetString(args, "niche")
	if niche == "" {
		niche = "general"
	}
	tone := registry.GetString(args, "tone")
	if tone == "" {
		tone = "engaging"
	}
	hashtags := true
	if v := registry.GetBoolPtr(args, "include_hashtags"); v != nil {
		hashtags = *v
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Instagram Reel Brief: %s\n\n", topic)
	fmt.Fprintf(&sb, "Duration: %ds | Niche: %s | Tone: %s | Format: vertical 9:16\n\n", duration, niche, tone)
	sb.WriteString("## Structure\n")
	fmt.Fprintf(&sb, "- Hook (0-3s): attention-grabbing opener about %s\n", topic)
	sb.WriteString("- Intro (4-8s): introduce the value of this video\n")
	fmt.Fprintf(&sb, "- Main content (9-%ds): core content about %s\n", duration-8, topic)
	sb.WriteString("- CTA (last 5s): call to action\n")
	sb.WriteString("- Music: trending audio from the Reels library\n\n")
	sb.WriteString("## Now write the full script\n")
	fmt.Fprintf(&sb, "Produce a complete %d-second %s Reel script about %q for a %s audience:\n",
		duration, tone, topic, niche)
	sb.WriteString("1. Hook line (first 3 seconds)\n")
	sb.WriteString("2. Full voiceover script with timestamps\n")
	sb.WriteString("3. Text overlay suggestions for each segment\n")
	sb.WriteString("4. Visual / B-roll ideas for each segment\n")
	sb.WriteString("5. Instagram caption (150-200 words)\n")
	if hashtags {
		sb.WriteString("6. 30 relevant hashtags\n")
	}
	return sb.String()
}

func youtubeBrief(topic string, args map[string]any) string {
	length := registry.GetInt(args, "length_minutes", 10)
	style := registry.GetString(args, "style")
	if style == "" {
		style = "tutorial"
	}
	audience := registry.GetString(args, "audience")
	if audience == "" {
		audience = "general"
	}
	niche := registry.GetString(args, "niche")
	if niche == "" {
		niche = "technology"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# YouTube Video Brief: %s\n\n", topic)
	fmt.Fprintf(&sb, "Length: %d min | Style: %s | Audience: %s | Niche: %s\n\n", length, style, audience, niche)
	sb.WriteString("## Deliverables\n")
	sb.WriteString("- 5 SEO-optimized title options\n")
	sb.WriteString("- Full video description with keywords\n")
	fmt.Fprintf(&sb, "- Complete %d-minute script with timestamps\n", length)
	sb.WriteString("- Chapter markers with timestamps\n")
	sb.WriteString("- 30 SEO tags\n")
	sb.WriteString("- 3 thumbnail concept descriptions\n")
	sb.WriteString("- End screen suggestions\n")
	sb.WriteString("- Pinned comment template\n\n")
	sb.WriteString("## Now write the full package\n")
	fmt.Fprintf(&sb, "Produce every deliverable above, in full detail, for a %d-minute %s about %q targeting %s in the %s niche.\n",
		length, style, topic, audience, niche)
	return sb.String()
}
