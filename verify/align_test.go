package verify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qafax/qafax/document"
)

func pagedDocument(pages ...[]string) *document.Document {
	doc := &document.Document{}
	for i, lines := range pages {
		doc.Pages = append(doc.Pages, document.Page{Index: i, TextLines: lines})
	}
	return doc
}

func pairContents(pairs []PagePair) [][2]string {
	out := make([][2]string, len(pairs))
	for i, pair := range pairs {
		out[i] = [2]string{
			strings.Join(pair.Reference.TextLines, "|"),
			strings.Join(pair.Candidate.TextLines, "|"),
		}
	}
	return out
}

func TestAlignIdentity(t *testing.T) {
	reference := pagedDocument([]string{"alpha"}, []string{"beta"}, []string{"gamma"})
	candidate := pagedDocument([]string{"alpha"}, []string{"beta"}, []string{"gamma"})

	pairs, warnings := Align(reference, candidate, AlignOptions{})

	require.Len(t, pairs, 3)
	assert.Empty(t, warnings)
	for i, pair := range pairs {
		assert.Equal(t, i, pair.Index)
		assert.Equal(t, 1.0, pair.Confidence, "pair %d", i)
		assert.Equal(t, pair.Reference.TextLines, pair.Candidate.TextLines)
	}
}

func TestAlignRecoversPermutation(t *testing.T) {
	reference := pagedDocument([]string{"alpha"}, []string{"beta"}, []string{"gamma"})
	candidate := pagedDocument([]string{"beta"}, []string{"gamma"}, []string{"alpha"})

	pairs, warnings := Align(reference, candidate, AlignOptions{})

	require.Len(t, pairs, 3)
	assert.Empty(t, warnings)
	assert.Equal(t, [][2]string{
		{"alpha", "alpha"},
		{"beta", "beta"},
		{"gamma", "gamma"},
	}, pairContents(pairs))
}

func TestAlignLowConfidenceWarns(t *testing.T) {
	reference := pagedDocument([]string{"alpha"}, []string{"beta"})
	candidate := pagedDocument([]string{"zeta"}, []string{"theta"})

	pairs, warnings := Align(reference, candidate, AlignOptions{LowConfidenceThreshold: 0.95})

	require.Len(t, pairs, 2)
	found := false
	for _, warning := range warnings {
		if strings.Contains(warning, "low alignment confidence") {
			found = true
		}
	}
	assert.True(t, found, "expected a low-confidence warning, got %v", warnings)
}

func TestAlignResolverOverride(t *testing.T) {
	reference := pagedDocument([]string{"aaa"}, []string{"bbb"})
	candidate := pagedDocument([]string{"zzz"})

	var sawSuggestions []int
	resolver := func(candIndex int, suggested []int) (int, bool) {
		sawSuggestions = suggested
		return 1, true
	}

	pairs, warnings := Align(reference, candidate, AlignOptions{Resolver: resolver})

	require.Len(t, pairs, 1)
	assert.Equal(t, 1, pairs[0].Reference.Index)
	assert.NotEmpty(t, sawSuggestions)
	found := false
	for _, warning := range warnings {
		if strings.Contains(warning, "manual alignment override") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAlignResolverDeclinedKeepsAutomaticChoice(t *testing.T) {
	reference := pagedDocument([]string{"aaa"}, []string{"bbb"})
	candidate := pagedDocument([]string{"zzz"})

	resolver := func(candIndex int, suggested []int) (int, bool) {
		return 0, false
	}

	pairs, warnings := Align(reference, candidate, AlignOptions{Resolver: resolver})

	require.Len(t, pairs, 1)
	found := false
	for _, warning := range warnings {
		if strings.Contains(warning, "low alignment confidence") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAlignCountMismatch(t *testing.T) {
	t.Run("missing candidate pages", func(t *testing.T) {
		reference := pagedDocument([]string{"alpha"}, []string{"beta"}, []string{"gamma"})
		candidate := pagedDocument([]string{"alpha"})

		pairs, warnings := Align(reference, candidate, AlignOptions{})

		require.Len(t, pairs, 1)
		assert.Equal(t, "alpha", pairs[0].Reference.TextLines[0])

		joined := strings.Join(warnings, "\n")
		assert.Contains(t, joined, "unmatched page(s)")
		assert.Contains(t, joined, "page count mismatch")
	})

	t.Run("extra candidate pages", func(t *testing.T) {
		reference := pagedDocument([]string{"alpha"})
		candidate := pagedDocument([]string{"alpha"}, []string{"extra"})

		pairs, warnings := Align(reference, candidate, AlignOptions{})

		require.Len(t, pairs, 1)
		joined := strings.Join(warnings, "\n")
		assert.Contains(t, joined, "extra page at index 1")
		assert.Contains(t, joined, "page count mismatch")
	})
}

func TestAlignDegeneratePairByIndex(t *testing.T) {
	t.Run("no candidate pages", func(t *testing.T) {
		reference := pagedDocument([]string{"alpha"}, []string{"beta"})
		candidate := &document.Document{}

		pairs, warnings := Align(reference, candidate, AlignOptions{})

		assert.Empty(t, pairs)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "page count mismatch")
	})

	t.Run("equal counts pair positionally without warnings", func(t *testing.T) {
		reference := &document.Document{}
		candidate := &document.Document{}
		pairs, warnings := Align(reference, candidate, AlignOptions{})
		assert.Empty(t, pairs)
		assert.Empty(t, warnings)
	})
}

func TestAlignPixelPages(t *testing.T) {
	refGrid := [][]uint8{{0, 0}, {255, 255}}
	candGrid := [][]uint8{{0, 0}, {255, 255}}
	otherGrid := [][]uint8{{255, 255}, {0, 0}}

	reference := &document.Document{Pages: []document.Page{
		{Index: 0, Pixels: refGrid},
		{Index: 1, Pixels: otherGrid},
	}}
	candidate := &document.Document{Pages: []document.Page{
		{Index: 0, Pixels: otherGrid},
		{Index: 1, Pixels: candGrid},
	}}

	pairs, warnings := Align(reference, candidate, AlignOptions{})

	require.Len(t, pairs, 2)
	assert.Empty(t, warnings)
	assert.Equal(t, refGrid, pairs[0].Reference.Pixels)
	assert.Equal(t, candGrid, pairs[0].Candidate.Pixels)
	assert.Equal(t, otherGrid, pairs[1].Reference.Pixels)
}
