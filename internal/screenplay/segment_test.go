package screenplay

import "testing"

func TestSegmentSplitsOnHeadings(t *testing.T) {
	text := "INT. KITCHEN - DAY\n\nAlice pours coffee.\n\nEXT. GARDEN - LATER\n\nBob waters the roses.\n\nINT/EXT. CAR - NIGHT\n\nThey drive in silence.\n"
	scenes := Segment(text)

	if len(scenes) != 3 {
		t.Fatalf("Segment() len = %d, want 3", len(scenes))
	}
	wantTitles := []string{"INT. KITCHEN - DAY", "EXT. GARDEN - LATER", "INT/EXT. CAR - NIGHT"}
	for i, want := range wantTitles {
		if scenes[i].Title != want {
			t.Fatalf("Segment() title[%d] = %q, want %q", i, scenes[i].Title, want)
		}
	}
	if scenes[0].Content != "INT. KITCHEN - DAY\n\nAlice pours coffee." {
		t.Fatalf("Segment() content[0] = %q", scenes[0].Content)
	}
	if scenes[2].Content != "INT/EXT. CAR - NIGHT\n\nThey drive in silence." {
		t.Fatalf("Segment() content[2] = %q", scenes[2].Content)
	}
}

func TestSegmentRecognizesShortFormHeading(t *testing.T) {
	scenes := Segment("I/E. TRAIN - DAWN\n\nThe whistle blows.")
	if len(scenes) != 1 {
		t.Fatalf("Segment() len = %d, want 1", len(scenes))
	}
	if scenes[0].Title != "I/E. TRAIN - DAWN" {
		t.Fatalf("Segment() title = %q", scenes[0].Title)
	}
}

func TestSegmentIgnoresMidLineAndEmbeddedTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"mid line", "She said INT. HOUSE was her favorite heading."},
		{"embedded word", "PRINT. RESULTS - the report goes out."},
		{"no trailing space", "INT.HOUSE - DAY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenes := Segment(tt.text)
			if len(scenes) != 1 {
				t.Fatalf("Segment() len = %d, want 1", len(scenes))
			}
			if scenes[0].Title != "Scene 1" {
				t.Fatalf("Segment() title = %q, want fallback", scenes[0].Title)
			}
			if scenes[0].Content != tt.text {
				t.Fatalf("Segment() content = %q, want verbatim input", scenes[0].Content)
			}
		})
	}
}

func TestSegmentFallbackKeepsWhitespaceVerbatim(t *testing.T) {
	text := "  \n\nsome notes without headings\n\n"
	scenes := Segment(text)
	if len(scenes) != 1 {
		t.Fatalf("Segment() len = %d, want 1", len(scenes))
	}
	if scenes[0].Content != text {
		t.Fatalf("Segment() content = %q, want untouched input", scenes[0].Content)
	}
}

func TestSegmentLeadingProseBeforeFirstHeading(t *testing.T) {
	text := "FADE IN:\n\nINT. OFFICE - DAY\n\nPapers everywhere."
	scenes := Segment(text)
	if len(scenes) != 1 {
		t.Fatalf("Segment() len = %d, want 1", len(scenes))
	}
	if scenes[0].Title != "INT. OFFICE - DAY" {
		t.Fatalf("Segment() title = %q", scenes[0].Title)
	}
	if scenes[0].Content != "INT. OFFICE - DAY\n\nPapers everywhere." {
		t.Fatalf("Segment() content = %q", scenes[0].Content)
	}
}

func TestSegmentAssignsDistinctIDs(t *testing.T) {
	scenes := Segment("INT. A - DAY\nx\nEXT. B - DAY\ny")
	if scenes[0].ID == scenes[1].ID || scenes[0].ID == "" {
		t.Fatalf("Segment() ids = %q, %q", scenes[0].ID, scenes[1].ID)
	}
}

func TestIsPlainText(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, true},
		{"ascii", []byte("INT. HOUSE - DAY"), true},
		{"utf8", []byte("café EXT. RUE - NUIT"), true},
		{"nul byte", []byte("PK\x00\x04"), false},
		{"invalid utf8", []byte{0xff, 0xfe, 0x00}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPlainText(tt.data); got != tt.want {
				t.Fatalf("IsPlainText(%q) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}
