package assist

import (
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "at": {}, "is": {}, "are": {}, "it": {}, "this": {},
	"that": {}, "with": {}, "for": {},
}

// Matcher decides which chat messages trigger a description.
type Matcher struct {
	triggers []string
}

// NewMatcher creates a matcher for the given trigger phrases.
func NewMatcher(triggers []string) *Matcher {
	normalized := lo.Uniq(lo.Compact(lo.Map(triggers, func(t string, _ int) string {
		return normalize(t)
	})))
	return &Matcher{triggers: normalized}
}

// Match reports whether text equals one of the trigger phrases, ignoring case
// and surrounding whitespace.
func (m *Matcher) Match(text string) bool {
	return lo.Contains(m.triggers, normalize(text))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Keywords returns the content words of text, last word first, without
// duplicates. "a great big tree" yields [tree big great].
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	words = lo.Filter(words, func(w string, _ int) bool {
		_, stop := stopWords[w]
		return !stop
	})
	slices.Reverse(words)
	return lo.Uniq(words)
}
