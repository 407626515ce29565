package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qafax/qafax/document"
)

func textDocument(lines ...string) *document.Document {
	return &document.Document{
		Pages: []document.Page{{Index: 0, TextLines: lines}},
	}
}

func TestCompareSequences(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		c := CompareSequences([]string{"a", "b"}, []string{"a", "b"})
		assert.Equal(t, 2, c.TotalLines)
		assert.Equal(t, 2, c.MatchingLines)
		assert.Equal(t, 1.0, c.MatchRatio())
		assert.Equal(t, 0.0, c.MismatchRatio())
	})

	t.Run("shorter candidate pads with empty lines", func(t *testing.T) {
		c := CompareSequences([]string{"a", "b", "c"}, []string{"a"})
		assert.Equal(t, 3, c.TotalLines)
		assert.Equal(t, 1, c.MatchingLines)
		assert.Equal(t, 2, c.MismatchCount())
	})

	t.Run("both empty", func(t *testing.T) {
		c := CompareSequences(nil, nil)
		assert.Equal(t, 1.0, c.MatchRatio())
		assert.Equal(t, 0.0, c.MismatchRatio())
	})

	t.Run("mismatch samples are capped and 1-based", func(t *testing.T) {
		ref := make([]string, 20)
		for i := range ref {
			ref[i] = "x"
		}
		c := CompareSequences(ref, nil)
		require.Len(t, c.Mismatched, maxMismatchSamples)
		assert.Equal(t, 1, c.Mismatched[0].Line)
		assert.Equal(t, "x", c.Mismatched[0].Reference)
		assert.Equal(t, "", c.Mismatched[0].Candidate)
	})
}

func TestLinesMetric(t *testing.T) {
	cfg := DefaultLinesConfig()

	t.Run("identical documents pass with ratio zero", func(t *testing.T) {
		ref := textDocument("one", "two", "three")
		result := Lines(ref, textDocument("one", "two", "three"), cfg)
		assert.Equal(t, StatusPass, result.Status)
		require.NotNil(t, result.Value)
		assert.Equal(t, 0.0, *result.Value)
	})

	t.Run("half mismatch fails", func(t *testing.T) {
		ref := textDocument("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
		cand := textDocument("a", "b", "c", "d", "e")
		result := Lines(ref, cand, cfg)
		assert.Equal(t, StatusFail, result.Status)
		assert.Equal(t, 0.5, *result.Value)
	})

	t.Run("ratio exactly at warn boundary warns", func(t *testing.T) {
		// 1 mismatch in 10 lines = exactly the default warn ratio.
		ref := textDocument("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
		cand := textDocument("a", "b", "c", "d", "e", "f", "g", "h", "i", "X")
		result := Lines(ref, cand, cfg)
		assert.Equal(t, StatusWarn, result.Status)
		assert.Equal(t, 0.1, *result.Value)
	})

	t.Run("ratio exactly at fail boundary fails", func(t *testing.T) {
		// 3 mismatches in 10 lines = exactly the default fail ratio.
		ref := textDocument("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
		cand := textDocument("a", "b", "c", "d", "e", "f", "g", "X", "X", "X")
		result := Lines(ref, cand, cfg)
		assert.Equal(t, StatusFail, result.Status)
		assert.InDelta(t, 0.3, *result.Value, 1e-9)
	})

	t.Run("no text at all warns", func(t *testing.T) {
		result := Lines(&document.Document{}, &document.Document{}, cfg)
		assert.Equal(t, StatusWarn, result.Status)
		assert.Equal(t, "no text lines to compare", result.Detail)
	})
}
