package export

import (
	"html/template"
	"strings"
	"testing"
	"time"
)

func TestSceneContentToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "plain text paragraphs",
			input:    "INT. KITCHEN - DAY\n\nAlice pours coffee.",
			expected: "<p>INT. KITCHEN - DAY</p>\n<p>Alice pours coffee.</p>",
		},
		{
			name:     "plain text escapes html",
			input:    "She says <hello> & waves.",
			expected: "<p>She says &lt;hello&gt; &amp; waves.</p>",
		},
		{
			name:     "draft scene heading block",
			input:    `{"blocks":[{"text":"INT. KITCHEN - DAY","type":"header-one","inlineStyleRanges":[]}],"entityMap":{}}`,
			expected: "<h2>INT. KITCHEN - DAY</h2>",
		},
		{
			name:     "draft character and dialogue",
			input:    `{"blocks":[{"text":"ALICE","type":"header-two","inlineStyleRanges":[]},{"text":"Pour me one too.","type":"blockquote","inlineStyleRanges":[]}],"entityMap":{}}`,
			expected: "<h3>ALICE</h3>\n<blockquote>Pour me one too.</blockquote>",
		},
		{
			name:     "draft bold range",
			input:    `{"blocks":[{"text":"She SLAMS the door.","type":"unstyled","inlineStyleRanges":[{"offset":4,"length":5,"style":"BOLD"}]}],"entityMap":{}}`,
			expected: "<p>She <strong>SLAMS</strong> the door.</p>",
		},
		{
			name:     "draft overlapping styles",
			input:    `{"blocks":[{"text":"quietly","type":"unstyled","inlineStyleRanges":[{"offset":0,"length":7,"style":"ITALIC"},{"offset":0,"length":7,"style":"UNDERLINE"}]}],"entityMap":{}}`,
			expected: "<p><em><u>quietly</u></em></p>",
		},
		{
			name:     "draft list items grouped",
			input:    `{"blocks":[{"text":"Beat one","type":"unordered-list-item","inlineStyleRanges":[]},{"text":"Beat two","type":"unordered-list-item","inlineStyleRanges":[]}],"entityMap":{}}`,
			expected: "<ul>\n<li>Beat one</li>\n<li>Beat two</li>\n</ul>",
		},
		{
			name:     "invalid json treated as plain text",
			input:    "{not actually json",
			expected: "<p>{not actually json</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := strings.TrimSpace(SceneContentToHTML(tt.input))
			expected := strings.TrimSpace(tt.expected)
			if result != expected {
				t.Errorf("SceneContentToHTML() = %q, want %q", result, expected)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Night Train", "Night-Train"},
		{"My Script v1.2", "My-Script-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "screenplay"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},       // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},           // + signs are encoded
		{"special<>", "special%3C%3E"},         // Special chars encoded
		{"normal-text.txt", "normal-text.txt"}, // Unreserved chars pass through
		{"", ""},                               // Empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderScreenplayHTML(t *testing.T) {
	data := TemplateData{
		Title:       "Night Train",
		Description: "A thriller on rails",
		Author:      "Avery",
		UpdatedAt:   time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC),
		Scenes: []TemplateScene{
			{
				Title:       "INT. TRAIN CAR - NIGHT",
				ContentHTML: template.HTML("<p>Alice watches the door.</p>"),
			},
			{
				Title:         "Bridge: Chase → Finale",
				ContentHTML:   template.HTML("<p>A beat.</p>"),
				IsBridgeScene: true,
			},
		},
	}

	html, err := RenderScreenplayHTML(data)
	if err != nil {
		t.Fatalf("RenderScreenplayHTML() error = %v", err)
	}

	if !strings.Contains(html, "Night Train") {
		t.Error("HTML missing title")
	}
	if !strings.Contains(html, "A thriller on rails") {
		t.Error("HTML missing description")
	}
	if !strings.Contains(html, "INT. TRAIN CAR - NIGHT") {
		t.Error("HTML missing scene heading")
	}
	if !strings.Contains(html, "bridge") {
		t.Error("HTML missing bridge scene class")
	}

	// Scene HTML must land unescaped in the output
	if strings.Contains(html, "&lt;p&gt;") {
		t.Error("scene content was escaped - should be rendered as raw HTML")
	}
	if !strings.Contains(html, "<p>Alice watches the door.</p>") {
		t.Error("scene content should contain unescaped <p> tags")
	}
}
