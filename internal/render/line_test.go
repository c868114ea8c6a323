package render

import (
	"strings"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Line
	}{
		{"blank", "   ", Line{Kind: KindBlank}},
		{"empty", "", Line{Kind: KindBlank}},
		{"bold header", "**Key Issues**", Line{Kind: KindBoldHeader, Text: "Key Issues"}},
		{"bold header trimmed", "  **SWOT Analysis**  ", Line{Kind: KindBoldHeader, Text: "SWOT Analysis"}},
		{"labeled bullet", "* **Risk**: High", Line{Kind: KindLabeledBullet, Label: "Risk", Text: "High"}},
		{"labeled bullet dash", "- **Strength**: Strong brand", Line{Kind: KindLabeledBullet, Label: "Strength", Text: "Strong brand"}},
		{"labeled bullet glyph", "• **Threat**: New entrants", Line{Kind: KindLabeledBullet, Label: "Threat", Text: "New entrants"}},
		{"labeled bullet colon inside", "* **Weakness:** Thin margins", Line{Kind: KindLabeledBullet, Label: "Weakness", Text: "Thin margins"}},
		{"labeled bullet empty body", "* **Risk**:", Line{Kind: KindLabeledBullet, Label: "Risk", Text: ""}},
		{"label without colon falls to plain bullet", "* **Risk** High", Line{Kind: KindPlainBullet, Text: "**Risk** High"}},
		{"plain bullet", "* Cheaper prices", Line{Kind: KindPlainBullet, Text: "Cheaper prices"}},
		{"plain bullet dash", "- Expansion", Line{Kind: KindPlainBullet, Text: "Expansion"}},
		{"numbered header", "1. What happened?", Line{Kind: KindNumberedHeader, Text: "1. What happened?"}},
		{"numbered header multi digit", "12. Recommendation", Line{Kind: KindNumberedHeader, Text: "12. Recommendation"}},
		{"number without space is paragraph", "1.5 percent growth", Line{Kind: KindParagraph, Text: "1.5 percent growth"}},
		{"paragraph", "This is a paragraph.", Line{Kind: KindParagraph, Text: "This is a paragraph."}},
		{"bold with trailing text is paragraph", "**Note** read this", Line{Kind: KindParagraph, Text: "**Note** read this"}},
		{"emphasis with no space is not a bullet", "*italic*", Line{Kind: KindParagraph, Text: "*italic*"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.in); got != tc.want {
				t.Fatalf("Classify(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestClassify_BoldHeaderBeforeNumberedHeader(t *testing.T) {
	// A bold numbered line is claimed by the earlier BoldHeader rule.
	got := Classify("**1. Background**")
	if got.Kind != KindBoldHeader || got.Text != "1. Background" {
		t.Fatalf("expected bold header, got %+v", got)
	}
}

func TestParse_BlankLinesAreNotCollapsed(t *testing.T) {
	lines := Parse("first\n\n\n\nsecond")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	blanks := 0
	for _, ln := range lines {
		if ln.Kind == KindBlank {
			blanks++
		}
	}
	if blanks != 3 {
		t.Fatalf("expected 3 blank lines, got %d", blanks)
	}
}

func TestParse_Empty(t *testing.T) {
	if lines := Parse(""); len(lines) != 0 {
		t.Fatalf("expected no lines, got %+v", lines)
	}
}

func TestParse_CRLF(t *testing.T) {
	lines := Parse("**Key Issues**\r\nBody")
	if lines[0].Kind != KindBoldHeader || lines[0].Text != "Key Issues" {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"FAGSU Case!! 2024":              "fagsu-case-2024",
		"Strategic Analysis - Fagsu Ltd": "strategic-analysis---fagsu-ltd",
		"  spaced\t\tout  ":              "-spaced-out-",
		"under_score":                    "under_score",
		"":                               "",
		"Café Strategy":                  "caf-strategy",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlug_Idempotent(t *testing.T) {
	inputs := []string{"FAGSU Case!! 2024", "Ünïcode  Títle", "a--b", "  x  ", "Porter's 5 Forces / BCG"}
	for _, in := range inputs {
		once := Slug(in)
		if twice := Slug(once); twice != once {
			t.Errorf("Slug not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestFileName(t *testing.T) {
	day := time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC)
	if got := FileName("FAGSU Case!! 2024", day); got != "fagsu-case-2024-2024-05-06.pdf" {
		t.Fatalf("unexpected file name %q", got)
	}
	if got := FileName("", day); !strings.HasPrefix(got, "-2024-05-06") {
		t.Fatalf("empty title should start with the date, got %q", got)
	}
}
