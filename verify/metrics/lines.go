package metrics

import (
	"fmt"

	"github.com/qafax/qafax/document"
)

// maxMismatchSamples caps how many mismatched line triples a comparison
// retains for reporting.
const maxMismatchSamples = 10

// Mismatch is one differing line position, 1-based for report output.
type Mismatch struct {
	Line      int    `json:"line"`
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
}

// LineComparison is a positional comparison of two line sequences padded
// to equal length with empty lines.
type LineComparison struct {
	TotalLines    int
	MatchingLines int
	Mismatched    []Mismatch
}

// MismatchCount returns the number of differing positions.
func (c LineComparison) MismatchCount() int {
	return c.TotalLines - c.MatchingLines
}

// MatchRatio returns the fraction of matching positions, 1.0 for two
// empty sequences.
func (c LineComparison) MatchRatio() float64 {
	if c.TotalLines == 0 {
		return 1.0
	}
	return float64(c.MatchingLines) / float64(c.TotalLines)
}

// MismatchRatio returns the fraction of differing positions, 0.0 for two
// empty sequences.
func (c LineComparison) MismatchRatio() float64 {
	if c.TotalLines == 0 {
		return 0.0
	}
	return float64(c.MismatchCount()) / float64(c.TotalLines)
}

// CompareSequences compares two line sequences position by position. The
// shorter sequence is padded with empty lines, so dropped trailing lines
// count as mismatches.
func CompareSequences(reference, candidate []string) LineComparison {
	total := len(reference)
	if len(candidate) > total {
		total = len(candidate)
	}
	comparison := LineComparison{TotalLines: total}
	for i := 0; i < total; i++ {
		var refLine, candLine string
		if i < len(reference) {
			refLine = reference[i]
		}
		if i < len(candidate) {
			candLine = candidate[i]
		}
		if refLine == candLine {
			comparison.MatchingLines++
		} else if len(comparison.Mismatched) < maxMismatchSamples {
			comparison.Mismatched = append(comparison.Mismatched, Mismatch{
				Line:      i + 1,
				Reference: refLine,
				Candidate: candLine,
			})
		}
	}
	return comparison
}

// CompareDocuments compares the concatenated text lines of two documents.
func CompareDocuments(reference, candidate *document.Document) LineComparison {
	return CompareSequences(reference.Lines(), candidate.Lines())
}

// LinesConfig holds the mismatch-ratio thresholds. Both boundaries are
// inclusive: a ratio exactly at WarnRatio is WARN, exactly at FailRatio
// is FAIL.
type LinesConfig struct {
	WarnRatio float64
	FailRatio float64
}

// DefaultLinesConfig returns the stock thresholds.
func DefaultLinesConfig() LinesConfig {
	return LinesConfig{WarnRatio: 0.1, FailRatio: 0.3}
}

// Lines scores positional text fidelity between the aligned documents.
// Two documents with no text at all produce WARN: nothing to compare is
// itself suspicious.
func Lines(reference, candidate *document.Document, cfg LinesConfig) Result {
	comparison := CompareDocuments(reference, candidate)
	if comparison.TotalLines == 0 {
		return Result{
			Name:   NameLines,
			Value:  Float(0.0),
			Status: StatusWarn,
			Detail: "no text lines to compare",
		}
	}

	ratio := comparison.MismatchRatio()
	status := StatusPass
	switch {
	case ratio >= cfg.FailRatio:
		status = StatusFail
	case ratio >= cfg.WarnRatio:
		status = StatusWarn
	}
	return Result{
		Name:   NameLines,
		Value:  Float(ratio),
		Status: status,
		Detail: fmt.Sprintf("mismatched=%d total=%d warn=%.2f fail=%.2f",
			comparison.MismatchCount(), comparison.TotalLines, cfg.WarnRatio, cfg.FailRatio),
	}
}
