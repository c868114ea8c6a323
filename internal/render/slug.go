package render

import (
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// Slug lowercases title, collapses whitespace runs into single hyphens and
// drops every character outside [A-Za-z0-9_-]. Slug(Slug(x)) == Slug(x).
func Slug(title string) string {
	s := strings.ToLower(title)
	s = whitespaceRun.ReplaceAllString(s, "-")
	return unsafeChars.ReplaceAllString(s, "")
}

// FileName is the deterministic output name for title on day. Same title and
// same day always produce the same name.
func FileName(title string, day time.Time) string {
	return Slug(title) + "-" + day.Format(dateLayout) + ".pdf"
}
