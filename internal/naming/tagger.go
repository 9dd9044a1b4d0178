package naming

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const minTagLength = 2

// Tagger suggests tags for document text by looking up its words in a
// vocabulary of known keywords. Whether content tagging is available at all
// is decided once, when the Tagger is built.
type Tagger struct {
	enabled    bool
	vocabulary map[string]struct{}
}

// NewTagger returns a tagger. A disabled tagger always suggests nothing.
func NewTagger(enabled bool, keywords ...string) *Tagger {
	t := &Tagger{enabled: enabled, vocabulary: make(map[string]struct{}, len(keywords))}
	t.add(keywords)
	return t
}

// Enabled reports whether content tagging is available.
func (t *Tagger) Enabled() bool {
	return t != nil && t.enabled
}

// WithVocabulary returns a copy of t that also knows words.
func (t *Tagger) WithVocabulary(words ...string) *Tagger {
	c := &Tagger{enabled: t.enabled, vocabulary: make(map[string]struct{}, len(t.vocabulary)+len(words))}
	for w := range t.vocabulary {
		c.vocabulary[w] = struct{}{}
	}
	c.add(words)
	return c
}

func (t *Tagger) add(words []string) {
	for _, w := range NormalizeTags(words) {
		if len(w) >= minTagLength && w != TagPlaceholder {
			t.vocabulary[w] = struct{}{}
		}
	}
}

// ParseTags returns the sorted set of vocabulary words found in text.
func (t *Tagger) ParseTags(text string) []string {
	if !t.Enabled() || len(t.vocabulary) == 0 {
		return []string{}
	}
	lower := cases.Lower(language.Und)
	words := strings.FieldsFunc(norm.NFC.String(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	found := make([]string, 0)
	for _, w := range words {
		w = lower.String(w)
		if _, ok := t.vocabulary[w]; ok {
			found = append(found, w)
		}
	}
	slices.Sort(found)
	return slices.Compact(found)
}
