package telegram

import (
	"fmt"
	"regexp"
	"strings"
)

// Telegram HTML supports only a small tag set; everything the model emits
// as markdown is converted here, with a plain-text fallback when the HTML
// send is rejected.

var (
	reHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	reQuoteBlock = regexp.MustCompile(`(?m)(^&gt;[ \t]?.*$\n?)+`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reBoldItalic = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	reBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldU      = regexp.MustCompile(`__(.+?)__`)
	reItalic     = regexp.MustCompile(`\*([^*\n]+)\*`)
	reItalicU    = regexp.MustCompile(`_([^_\n]+)_`)
	reStrike     = regexp.MustCompile(`~~(.+?)~~`)
	reBullet     = regexp.MustCompile(`(?m)^[-*]\s+`)
	reRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reFence      = regexp.MustCompile("```([\\w]*)\\n?([\\s\\S]*?)```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
)

func sanitizeUTF8(text string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(text, ""), "\x00", "")
}

func escapeHTML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}

// codeSpan is a fenced block or inline code lifted out of the text before
// markdown conversion so its content survives untouched.
type codeSpan struct {
	lang   string
	code   string
	inline bool
}

// renderHTML converts model markdown to Telegram-flavored HTML.
func renderHTML(text string) string {
	if text == "" {
		return ""
	}

	// Lift code out first; placeholders use NUL bytes the model never emits.
	var spans []codeSpan
	text = reFence.ReplaceAllStringFunc(text, func(m string) string {
		sub := reFence.FindStringSubmatch(m)
		spans = append(spans, codeSpan{lang: sub[1], code: sub[2]})
		return fmt.Sprintf("\x00S%d\x00", len(spans)-1)
	})
	text = reInlineCode.ReplaceAllStringFunc(text, func(m string) string {
		sub := reInlineCode.FindStringSubmatch(m)
		spans = append(spans, codeSpan{code: sub[1], inline: true})
		return fmt.Sprintf("\x00S%d\x00", len(spans)-1)
	})

	text = escapeHTML(text)
	text = reHeading.ReplaceAllString(text, "<b>$1</b>")
	text = reQuoteBlock.ReplaceAllStringFunc(text, quoteToHTML)
	text = reRule.ReplaceAllString(text, "———")
	text = reLink.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = reBoldItalic.ReplaceAllString(text, "<b><i>$1</i></b>")
	text = reBold.ReplaceAllString(text, "<b>$1</b>")
	text = reBoldU.ReplaceAllString(text, "<b>$1</b>")
	text = reStrike.ReplaceAllString(text, "<s>$1</s>")
	text = reBullet.ReplaceAllString(text, "• ") // before single-* italic
	text = reItalic.ReplaceAllString(text, "<i>$1</i>")
	text = reItalicU.ReplaceAllString(text, "<i>$1</i>")

	for i, s := range spans {
		placeholder := fmt.Sprintf("\x00S%d\x00", i)
		escaped := escapeHTML(s.code)
		var rendered string
		switch {
		case s.inline:
			rendered = "<code>" + escaped + "</code>"
		case s.lang != "":
			rendered = `<pre><code class="language-` + s.lang + `">` + escaped + "</code></pre>"
		default:
			rendered = "<pre><code>" + escaped + "</code></pre>"
		}
		text = strings.ReplaceAll(text, placeholder, rendered)
	}

	return repairNesting(text)
}

func quoteToHTML(block string) string {
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimPrefix(line, "&gt; ")
		lines[i] = strings.TrimPrefix(line, "&gt;")
	}
	return "<blockquote>" + strings.Join(lines, "\n") + "</blockquote>\n"
}

// renderPlain strips markdown for the plain-text fallback path.
func renderPlain(text string) string {
	text = regexp.MustCompile("(?m)^```\\w*\n?").ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "```", "")
	for _, re := range []*regexp.Regexp{reBoldItalic, reBold, reBoldU, reStrike, reInlineCode} {
		text = re.ReplaceAllString(text, "$1")
	}
	text = regexp.MustCompile(`\*(.+?)\*`).ReplaceAllString(text, "$1")
	text = regexp.MustCompile(`_(.+?)_`).ReplaceAllString(text, "$1")
	text = regexp.MustCompile(`(?m)^#{1,6}\s+`).ReplaceAllString(text, "")
	text = regexp.MustCompile(`(?m)^[-*+]\s`).ReplaceAllString(text, "- ")
	text = regexp.MustCompile(`(?m)^>\s?`).ReplaceAllString(text, "")
	text = reLink.ReplaceAllString(text, "$1 ($2)")
	return text
}

// isTrackedTag reports whether a tag is one of the formatting tags
// Telegram accepts, which are the only ones we balance.
func isTrackedTag(name string) bool {
	switch name {
	case "b", "i", "s", "u", "a", "code", "pre", "blockquote":
		return true
	}
	return false
}

func tagName(tag string) string {
	inner := strings.TrimSuffix(tag[1:len(tag)-1], "/")
	inner = strings.TrimPrefix(inner, "/")
	if sp := strings.IndexByte(inner, ' '); sp > 0 {
		inner = inner[:sp]
	}
	return inner
}

// repairNesting rebalances tags that the regex conversion may have
// interleaved, e.g. "<b>x<i>y</b>z</i>" becomes "<b>x<i>y</i></b><i>z</i>".
func repairNesting(html string) string {
	var out strings.Builder
	out.Grow(len(html))
	var stack []string

	i := 0
	for i < len(html) {
		if html[i] != '<' {
			out.WriteByte(html[i])
			i++
			continue
		}
		end := strings.IndexByte(html[i:], '>')
		if end < 0 {
			out.WriteString(html[i:])
			break
		}
		end += i
		tag := html[i : end+1]
		i = end + 1

		if len(tag) < 3 {
			out.WriteString(tag)
			continue
		}

		if tag[1] == '/' {
			stack = closeTag(tag, stack, &out)
			continue
		}
		out.WriteString(tag)
		if isTrackedTag(tagName(tag)) {
			stack = append(stack, tag)
		}
	}

	for k := len(stack) - 1; k >= 0; k-- {
		out.WriteString("</" + tagName(stack[k]) + ">")
	}
	return out.String()
}

// closeTag closes the matching opener, temporarily closing and reopening
// anything opened after it. Unmatched closers are dropped.
func closeTag(tag string, stack []string, out *strings.Builder) []string {
	name := tagName(tag)
	match := -1
	for k := len(stack) - 1; k >= 0; k-- {
		if tagName(stack[k]) == name {
			match = k
			break
		}
	}
	if match < 0 {
		return stack
	}

	for k := len(stack) - 1; k > match; k-- {
		out.WriteString("</" + tagName(stack[k]) + ">")
	}
	out.WriteString(tag)
	for k := match + 1; k < len(stack); k++ {
		out.WriteString(stack[k])
	}
	return append(stack[:match:match], stack[match+1:]...)
}

// splitMessage chunks text under Telegram's message limit, keeping HTML
// valid across boundaries by closing open tags at the end of a chunk and
// reopening them at the start of the next.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var raw []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			raw = append(raw, strings.TrimRight(text, "\n"))
			break
		}
		cut := strings.LastIndex(text[:maxLen], "\n")
		if cut <= 0 {
			cut = maxLen
		}
		raw = append(raw, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}

	var carried []string
	chunks := make([]string, 0, len(raw))
	for _, chunk := range raw {
		if len(carried) > 0 {
			chunk = strings.Join(carried, "") + chunk
		}
		carried = openTagsAtEnd(chunk)
		for k := len(carried) - 1; k >= 0; k-- {
			chunk += "</" + tagName(carried[k]) + ">"
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// openTagsAtEnd returns the tracked opening tags still unclosed at the end
// of an HTML fragment, in opening order.
func openTagsAtEnd(html string) []string {
	var stack []string
	i := 0
	for {
		lt := strings.IndexByte(html[i:], '<')
		if lt < 0 {
			break
		}
		lt += i
		gt := strings.IndexByte(html[lt:], '>')
		if gt < 0 {
			break
		}
		gt += lt
		tag := html[lt : gt+1]
		i = gt + 1

		if len(tag) < 3 {
			continue
		}
		name := tagName(tag)
		if tag[1] == '/' {
			for k := len(stack) - 1; k >= 0; k-- {
				if tagName(stack[k]) == name {
					stack = append(stack[:k], stack[k+1:]...)
					break
				}
			}
		} else if isTrackedTag(name) {
			stack = append(stack, tag)
		}
	}
	return stack
}
