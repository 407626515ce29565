// Package verify aligns candidate pages to reference pages, runs the
// metric suite over the aligned pair, and derives a PASS/WARN/FAIL
// verdict under a policy. Nothing here raises for quality problems;
// anomalies become warnings so a run always yields a verdict.
package verify

import (
	"fmt"
	"sort"

	"github.com/qafax/qafax/document"
	"github.com/qafax/qafax/internal/util"
	"github.com/qafax/qafax/verify/metrics"
)

// DefaultLowConfidenceThreshold flags page matches scoring below it.
const DefaultLowConfidenceThreshold = 0.6

// contentWeight and orderWeight blend page content similarity with
// positional displacement. Content dominates so that reordered pages
// still find their counterpart.
const (
	contentWeight = 0.8
	orderWeight   = 0.2
)

// PagePair is an aligned reference/candidate page with a confidence
// score. Index is the pair's position after sorting by reference order.
type PagePair struct {
	Index      int
	Reference  *document.Page
	Candidate  *document.Page
	Confidence float64
}

// Resolver lets an execution context override a low-confidence match.
// It receives the candidate page index and reference suggestions in
// descending score order, and returns a reference index plus true to
// override. The CLI wires an interactive prompt here; batch runs leave
// it nil.
type Resolver func(candIndex int, suggested []int) (int, bool)

// AlignOptions tunes the aligner. Zero values mean defaults.
type AlignOptions struct {
	LowConfidenceThreshold float64
	Resolver               Resolver
}

// Align pairs candidate pages with reference pages by content similarity.
// It never fails: every anomaly is returned as a warning.
func Align(reference, candidate *document.Document, opts AlignOptions) ([]PagePair, []string) {
	threshold := opts.LowConfidenceThreshold
	if threshold == 0 {
		threshold = DefaultLowConfidenceThreshold
	}

	if len(reference.Pages) == 0 || len(candidate.Pages) == 0 {
		pairs := pairByIndex(reference, candidate)
		var warnings []string
		if reference.PageCount() != candidate.PageCount() {
			warnings = append(warnings, fmt.Sprintf(
				"page count mismatch (ref=%d, cand=%d); extra pages ignored",
				reference.PageCount(), candidate.PageCount()))
		}
		return pairs, warnings
	}

	similarity := similarityMatrix(reference.Pages, candidate.Pages)
	unmatched := make(map[int]bool, len(reference.Pages))
	for i := range reference.Pages {
		unmatched[i] = true
	}

	var pairs []PagePair
	var warnings []string

	for candIndex := range candidate.Pages {
		if len(unmatched) == 0 {
			warnings = append(warnings, fmt.Sprintf(
				"candidate has extra page at index %d; no reference counterpart available", candIndex))
			break
		}

		chosenRef := bestUnmatched(similarity, unmatched, candIndex)
		chosenScore := similarity[chosenRef][candIndex]

		if chosenScore < threshold {
			overridden := false
			if opts.Resolver != nil {
				suggested := topSuggestions(similarity, unmatched, candIndex, 3)
				if refIndex, ok := opts.Resolver(candIndex, suggested); ok && unmatched[refIndex] {
					chosenRef = refIndex
					chosenScore = similarity[chosenRef][candIndex]
					overridden = true
					warnings = append(warnings, fmt.Sprintf(
						"manual alignment override: candidate page %d -> reference page %d", candIndex, chosenRef))
				}
			}
			if !overridden {
				warnings = append(warnings, fmt.Sprintf(
					"low alignment confidence for candidate page %d (score=%.2f)", candIndex, chosenScore))
			}
		}

		pairs = append(pairs, PagePair{
			Reference:  &reference.Pages[chosenRef],
			Candidate:  &candidate.Pages[candIndex],
			Confidence: chosenScore,
		})
		delete(unmatched, chosenRef)
	}

	if len(unmatched) > 0 {
		indices := make([]int, 0, len(unmatched))
		for i := range unmatched {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		warnings = append(warnings, fmt.Sprintf(
			"reference has %d unmatched page(s): %v", len(indices), indices))
	}

	if reference.PageCount() != candidate.PageCount() {
		warnings = append(warnings, fmt.Sprintf(
			"page count mismatch (ref=%d, cand=%d); alignment limited to %d pair(s)",
			reference.PageCount(), candidate.PageCount(), len(pairs)))
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Reference.Index < pairs[j].Reference.Index
	})
	for i := range pairs {
		pairs[i].Index = i
	}

	return pairs, warnings
}

// pairByIndex matches pages positionally with full confidence. Used when
// either side lacks page decomposition entirely.
func pairByIndex(reference, candidate *document.Document) []PagePair {
	count := util.MinInt(len(reference.Pages), len(candidate.Pages))
	pairs := make([]PagePair, 0, count)
	for i := 0; i < count; i++ {
		pairs = append(pairs, PagePair{
			Index:      i,
			Reference:  &reference.Pages[i],
			Candidate:  &candidate.Pages[i],
			Confidence: 1.0,
		})
	}
	return pairs
}

// bestUnmatched returns the unmatched reference index with the highest
// similarity to the candidate page, lowest index winning ties so the
// result is deterministic.
func bestUnmatched(similarity [][]float64, unmatched map[int]bool, candIndex int) int {
	best := -1
	bestScore := -1.0
	for refIndex := 0; refIndex < len(similarity); refIndex++ {
		if !unmatched[refIndex] {
			continue
		}
		if score := similarity[refIndex][candIndex]; score > bestScore {
			best = refIndex
			bestScore = score
		}
	}
	return best
}

// topSuggestions returns up to n unmatched reference indices in
// descending score order for a resolver prompt.
func topSuggestions(similarity [][]float64, unmatched map[int]bool, candIndex, n int) []int {
	var available []int
	for refIndex := range unmatched {
		available = append(available, refIndex)
	}
	sort.Slice(available, func(i, j int) bool {
		si := similarity[available[i]][candIndex]
		sj := similarity[available[j]][candIndex]
		if si != sj {
			return si > sj
		}
		return available[i] < available[j]
	})
	if len(available) > n {
		available = available[:n]
	}
	return available
}

func similarityMatrix(referencePages, candidatePages []document.Page) [][]float64 {
	matrix := make([][]float64, len(referencePages))
	for refIndex := range referencePages {
		row := make([]float64, len(candidatePages))
		for candIndex := range candidatePages {
			row[candIndex] = pageSimilarity(
				&referencePages[refIndex], &candidatePages[candIndex],
				refIndex, candIndex, len(referencePages), len(candidatePages))
		}
		matrix[refIndex] = row
	}
	return matrix
}

// pageSimilarity blends text and pixel signals into a content score, then
// biases it toward in-order matches. Pages with no signal at all score a
// neutral 0.5 and rely on ordering.
func pageSimilarity(reference, candidate *document.Page, refIndex, candIndex, totalRef, totalCand int) float64 {
	var scores []float64

	if len(reference.TextLines) > 0 || len(candidate.TextLines) > 0 {
		scores = append(scores, metrics.CompareSequences(reference.TextLines, candidate.TextLines).MatchRatio())
	}
	if reference.HasPixels() && candidate.HasPixels() {
		if score, ok := imageSimilarity(reference.Pixels, candidate.Pixels); ok {
			scores = append(scores, score)
		}
	}
	if len(scores) == 0 {
		scores = append(scores, 0.5)
	}

	var content float64
	for _, s := range scores {
		content += s
	}
	content /= float64(len(scores))

	denominator := util.MaxInt(util.MaxInt(totalRef, totalCand), 1)
	penalty := float64(util.AbsInt(refIndex-candIndex)) / float64(denominator)
	orderScore := 1.0 - util.Clamp01(penalty)

	return util.Clamp01(content*contentWeight + orderScore*orderWeight)
}

// imageSimilarity scores the mean absolute difference of the overlapping
// region, mapped so identical grids score 1.
func imageSimilarity(reference, candidate [][]uint8) (float64, bool) {
	height := util.MinInt(len(reference), len(candidate))
	if height == 0 {
		return 0, false
	}
	width := util.MinInt(len(reference[0]), len(candidate[0]))
	if width == 0 {
		return 0, false
	}

	var sum float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sum += util.AbsFloat64(float64(reference[y][x]) - float64(candidate[y][x]))
		}
	}
	mae := sum / float64(height*width)
	return util.Clamp01(1.0 - mae/255.0), true
}
