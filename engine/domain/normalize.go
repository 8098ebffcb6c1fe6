package domain

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var norwegianLower = cases.Lower(language.Norwegian)

// LowerNO lowercases text with Norwegian casing rules. Used everywhere user
// text is compared so æ/ø/å fold consistently.
func LowerNO(s string) string {
	return norwegianLower.String(s)
}

// NameKey reduces a display name to its deduplication identity: lowercased,
// with every character outside a-z, 0-9 and æøå stripped. Two producers
// collide at merge time iff their keys are equal, so "Nordmanns Gård" and
// "nordmanns gård!!" are the same producer.
func NameKey(name string) string {
	lower := LowerNO(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9',
			r == 'æ', r == 'ø', r == 'å':
			b.WriteRune(r)
		}
	}
	return b.String()
}

var nameSplit = regexp.MustCompile(`\s{2,}`)

// CleanName undoes loose text extraction that concatenated a description onto
// the name: everything after the first run of 2+ whitespace characters is
// dropped.
func CleanName(name string) string {
	return strings.TrimSpace(nameSplit.Split(name, 2)[0])
}

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
	entities   = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
	)
)

// StripHTML flattens markup to plain text: tags removed, the common named
// entities decoded, whitespace collapsed.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}
	text := htmlTag.ReplaceAllString(html, " ")
	text = entities.Replace(text)
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Truncate cuts s to at most n runes. Descriptions are bounded before they
// reach rendering.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
