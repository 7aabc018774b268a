package export

import (
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// Scene content is stored either as raw Draft.js editor state (JSON
// with a "blocks" array) or as plain text pasted or imported by the
// writer. Both render to HTML here.

type draftRaw struct {
	Blocks []draftBlock `json:"blocks"`
}

type draftBlock struct {
	Text              string            `json:"text"`
	Type              string            `json:"type"`
	InlineStyleRanges []draftStyleRange `json:"inlineStyleRanges"`
}

type draftStyleRange struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Style  string `json:"style"`
}

// SceneContentToHTML converts stored scene content to HTML.
func SceneContentToHTML(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") {
		var raw draftRaw
		if err := json.Unmarshal([]byte(trimmed), &raw); err == nil && len(raw.Blocks) > 0 {
			return renderDraftBlocks(raw.Blocks)
		}
	}
	return renderPlainText(content)
}

// renderPlainText renders plain screenplay text as paragraphs split on
// blank lines. Newlines inside a paragraph survive via pre-wrap
// styling.
func renderPlainText(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimRight(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(para))
	}
	return b.String()
}

func renderDraftBlocks(blocks []draftBlock) string {
	var b strings.Builder
	inList := false
	for _, block := range blocks {
		if block.Type == "unordered-list-item" {
			if !inList {
				b.WriteString("<ul>\n")
				inList = true
			}
			fmt.Fprintf(&b, "<li>%s</li>\n", renderBlockText(block))
			continue
		}
		if inList {
			b.WriteString("</ul>\n")
			inList = false
		}

		text := renderBlockText(block)
		switch block.Type {
		case "header-one":
			fmt.Fprintf(&b, "<h2>%s</h2>\n", text)
		case "header-two":
			fmt.Fprintf(&b, "<h3>%s</h3>\n", text)
		case "blockquote":
			fmt.Fprintf(&b, "<blockquote>%s</blockquote>\n", text)
		case "code-block":
			fmt.Fprintf(&b, "<pre>%s</pre>\n", text)
		default:
			if strings.TrimSpace(block.Text) == "" {
				continue
			}
			fmt.Fprintf(&b, "<p>%s</p>\n", text)
		}
	}
	if inList {
		b.WriteString("</ul>\n")
	}
	return b.String()
}

// renderBlockText applies inline style ranges to a block's text. Runs
// of characters with the same style set render as one span.
func renderBlockText(block draftBlock) string {
	runes := []rune(block.Text)
	if len(runes) == 0 {
		return ""
	}
	if len(block.InlineStyleRanges) == 0 {
		return html.EscapeString(block.Text)
	}

	styles := make([]map[string]bool, len(runes))
	for i := range styles {
		styles[i] = map[string]bool{}
	}
	for _, r := range block.InlineStyleRanges {
		for i := r.Offset; i < r.Offset+r.Length && i < len(runes); i++ {
			if i < 0 {
				continue
			}
			styles[i][r.Style] = true
		}
	}

	var b strings.Builder
	start := 0
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && sameStyles(styles[i], styles[start]) {
			continue
		}
		b.WriteString(wrapStyles(html.EscapeString(string(runes[start:i])), styles[start]))
		start = i
	}
	return b.String()
}

func sameStyles(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func wrapStyles(text string, styles map[string]bool) string {
	if len(styles) == 0 {
		return text
	}
	names := make([]string, 0, len(styles))
	for name := range styles {
		names = append(names, name)
	}
	sort.Strings(names)
	for i := len(names) - 1; i >= 0; i-- {
		switch names[i] {
		case "BOLD":
			text = "<strong>" + text + "</strong>"
		case "ITALIC":
			text = "<em>" + text + "</em>"
		case "UNDERLINE":
			text = "<u>" + text + "</u>"
		case "CODE":
			text = "<code>" + text + "</code>"
		}
	}
	return text
}
