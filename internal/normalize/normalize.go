// Package normalize prepares content items for embedding.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxChars caps prepared text to stay inside embedding-model input limits.
const MaxChars = 8000

// Prepare builds the text blob that gets embedded for an item: title, then
// summary, then the body with HTML stripped and whitespace collapsed, then
// labeled authors, tags, and source lines. The result is hard-capped at
// MaxChars. Pure and deterministic.
func Prepare(title, content, summary string, authors []string, metadata map[string]string) string {
	parts := make([]string, 0, 6)
	if t := CollapseWhitespace(title); t != "" {
		parts = append(parts, t)
	}
	if s := CollapseWhitespace(summary); s != "" {
		parts = append(parts, s)
	}
	if c := CollapseWhitespace(StripHTML(content)); c != "" {
		parts = append(parts, c)
	}
	if len(authors) > 0 {
		parts = append(parts, "Authors: "+strings.Join(authors, ", "))
	}
	if tags := metadata["tags"]; tags != "" {
		parts = append(parts, "Tags: "+tags)
	}
	if source := metadata["source"]; source != "" {
		parts = append(parts, "Source: "+source)
	}
	return Truncate(strings.Join(parts, "\n"), MaxChars)
}

// StripHTML removes tags from s, keeping the text between them. It is a
// single-pass state walk, not an HTML parser; unclosed tags drop the rest of
// the input, which is acceptable for embedding text.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			// Tag boundaries act as separators so "<p>a</p><p>b</p>"
			// does not fuse words.
			b.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseWhitespace trims s and collapses runs of whitespace to single spaces.
func CollapseWhitespace(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	wasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// Truncate returns s cut to at most max bytes. The cut is hard, not
// word-aware, but backs off to a rune boundary so the result stays valid
// UTF-8.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
