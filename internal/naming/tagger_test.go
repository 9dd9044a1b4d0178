package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagger_ParseTags(t *testing.T) {
	tagger := NewTagger(true, "IKEA", "amazon", "tax")
	got := tagger.ParseTags("Your IKEA order. Ikea Deutschland GmbH; delivery by Amazon.")
	assert.Equal(t, []string{"amazon", "ikea"}, got)
}

func TestTagger_Disabled(t *testing.T) {
	tagger := NewTagger(false, "ikea")
	assert.False(t, tagger.Enabled())
	assert.Empty(t, tagger.ParseTags("ikea ikea ikea"))

	var nilTagger *Tagger
	assert.False(t, nilTagger.Enabled())
	assert.Empty(t, nilTagger.ParseTags("ikea"))
}

func TestTagger_WithVocabulary(t *testing.T) {
	base := NewTagger(true, "bill")
	extended := base.WithVocabulary("Strom", TagPlaceholder, "x")

	assert.Equal(t, []string{"bill", "strom"}, extended.ParseTags("Strom bill x pdfarchiver tag"))
	assert.Equal(t, []string{"bill"}, base.ParseTags("Strom bill"))
}

func TestTagger_EmptyVocabulary(t *testing.T) {
	assert.Equal(t, []string{}, NewTagger(true).ParseTags("anything at all"))
}
