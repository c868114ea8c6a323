package render

import (
	"regexp"
	"strings"
)

// Kind identifies how a single content line is laid out.
type Kind int

const (
	KindBlank Kind = iota
	KindBoldHeader
	KindLabeledBullet
	KindPlainBullet
	KindNumberedHeader
	KindParagraph
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindBoldHeader:
		return "bold_header"
	case KindLabeledBullet:
		return "labeled_bullet"
	case KindPlainBullet:
		return "plain_bullet"
	case KindNumberedHeader:
		return "numbered_header"
	case KindParagraph:
		return "paragraph"
	default:
		return "unknown"
	}
}

// Line is one classified content line. Label is only set for
// KindLabeledBullet; Text holds the visible text with markers stripped.
type Line struct {
	Kind  Kind
	Label string
	Text  string
}

var (
	boldHeaderRe     = regexp.MustCompile(`^\*\*([^*]+)\*\*$`)
	labelOutsideRe   = regexp.MustCompile(`^[*\-•]\s+\*\*([^*]+)\*\*:\s*(.*)$`)
	labelInsideRe    = regexp.MustCompile(`^[*\-•]\s+\*\*([^*]+):\*\*\s*(.*)$`)
	plainBulletRe    = regexp.MustCompile(`^[*\-•]\s+(.+)$`)
	numberedHeaderRe = regexp.MustCompile(`^\d+\.\s+\S`)
)

// rules are evaluated in order; the first match wins. KindParagraph is the
// fallback and has no rule.
var rules = []struct {
	kind  Kind
	match func(trimmed string) (Line, bool)
}{
	{KindBlank, func(s string) (Line, bool) {
		return Line{Kind: KindBlank}, s == ""
	}},
	{KindBoldHeader, func(s string) (Line, bool) {
		m := boldHeaderRe.FindStringSubmatch(s)
		if m == nil {
			return Line{}, false
		}
		return Line{Kind: KindBoldHeader, Text: strings.TrimSpace(m[1])}, true
	}},
	{KindLabeledBullet, func(s string) (Line, bool) {
		m := labelOutsideRe.FindStringSubmatch(s)
		if m == nil {
			m = labelInsideRe.FindStringSubmatch(s)
		}
		if m == nil {
			return Line{}, false
		}
		return Line{Kind: KindLabeledBullet, Label: strings.TrimSpace(m[1]), Text: strings.TrimSpace(m[2])}, true
	}},
	{KindPlainBullet, func(s string) (Line, bool) {
		m := plainBulletRe.FindStringSubmatch(s)
		if m == nil {
			return Line{}, false
		}
		return Line{Kind: KindPlainBullet, Text: strings.TrimSpace(m[1])}, true
	}},
	{KindNumberedHeader, func(s string) (Line, bool) {
		if !numberedHeaderRe.MatchString(s) {
			return Line{}, false
		}
		return Line{Kind: KindNumberedHeader, Text: s}, true
	}},
}

// Classify trims the line and assigns it exactly one Kind.
func Classify(raw string) Line {
	s := strings.TrimSpace(raw)
	for _, r := range rules {
		if ln, ok := r.match(s); ok {
			return ln
		}
	}
	return Line{Kind: KindParagraph, Text: s}
}

// Parse splits content on newlines and classifies every line. Blank lines are
// kept so that each one produces its own spacing break.
func Parse(content string) []Line {
	if content == "" {
		return nil
	}
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, Classify(l))
	}
	return lines
}
