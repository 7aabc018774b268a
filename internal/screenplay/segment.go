package screenplay

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"bridge/api/internal/util"
)

// headingPattern matches screenplay scene headings at the start of a
// line: INT., EXT., INT/EXT. or I/E. followed by whitespace and the
// location text. Anchoring at line start keeps the tokens from
// matching inside longer words.
var headingPattern = regexp.MustCompile(`(?m)^(?:INT/EXT\.|I/E\.|INT\.|EXT\.)[ \t]+[^\n]*`)

// Segment splits raw screenplay text into ordered scenes by heading
// detection. Each scene spans from its heading to the next heading's
// offset. Text without any recognizable heading becomes a single
// "Scene 1" holding the input verbatim.
func Segment(text string) []Scene {
	matches := headingPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []Scene{{
			ID:         util.NewID("scene"),
			Title:      "Scene 1",
			Content:    text,
			Characters: []string{},
		}}
	}

	scenes := make([]Scene, 0, len(matches))
	for i, match := range matches {
		start := match[0]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		scenes = append(scenes, Scene{
			ID:         util.NewID("scene"),
			Title:      strings.TrimSpace(text[match[0]:match[1]]),
			Content:    strings.TrimSpace(text[start:end]),
			Characters: []string{},
		})
	}
	return scenes
}

// PlaceholderDocument is the fixed single-scene document substituted
// for uploads that are not plain text. Binary payloads never reach
// Segment.
func PlaceholderDocument() []Scene {
	return []Scene{{
		ID:         util.NewID("scene"),
		Title:      "Imported Document",
		Content:    "This file could not be read as plain text. Paste your screenplay here.",
		Characters: []string{},
	}}
}

// IsPlainText reports whether an uploaded payload can be fed to
// Segment. Payloads with NUL bytes or invalid UTF-8 are treated as
// binary.
func IsPlainText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if !utf8.Valid(data) {
		return false
	}
	return !strings.ContainsRune(string(data), '\x00')
}
