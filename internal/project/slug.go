package project

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const idTimeLayout = "20060102-150405"

// Slug lowercases name, strips diacritics and collapses everything outside
// [a-z0-9] to single dashes. An empty result becomes "project".
func Slug(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	dash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "project"
	}
	return s
}

// NewProjectID derives a project id from its name and creation time.
func NewProjectID(name string, now time.Time) string {
	return Slug(name) + "-" + now.UTC().Format(idTimeLayout)
}

// withSuffix disambiguates a colliding project id.
func withSuffix(id string) string {
	return id + "-" + uuid.NewString()[:8]
}
