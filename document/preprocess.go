package document

import (
	"encoding/json"
	"fmt"
)

// PreprocessOptions controls the per-page normalization applied before
// metric computation.
type PreprocessOptions struct {
	DPI       int
	Grayscale bool
	Deskew    bool
	Denoise   bool
}

// DefaultPreprocessOptions are used when a policy omits the preprocess
// section entirely.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{DPI: 300, Grayscale: true, Deskew: true, Denoise: true}
}

// preprocessPayload mirrors the "preprocess" object of a policy document.
type preprocessPayload struct {
	DPI       *int  `json:"dpi"`
	Grayscale *bool `json:"grayscale"`
	Deskew    *bool `json:"deskew"`
	Denoise   *bool `json:"denoise"`
}

// PreprocessOptionsFromJSON parses a policy's preprocess section, filling
// defaults for omitted fields. A nil payload yields the defaults.
func PreprocessOptionsFromJSON(payload json.RawMessage) (PreprocessOptions, error) {
	options := DefaultPreprocessOptions()
	if len(payload) == 0 {
		return options, nil
	}
	var p preprocessPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return options, err
	}
	if p.DPI != nil {
		options.DPI = *p.DPI
	}
	if p.Grayscale != nil {
		options.Grayscale = *p.Grayscale
	}
	if p.Deskew != nil {
		options.Deskew = *p.Deskew
	}
	if p.Denoise != nil {
		options.Denoise = *p.Denoise
	}
	return options, nil
}

// PreprocessReport records what ran and what was skipped.
type PreprocessReport struct {
	Applied  []string
	Warnings []string
}

// Preprocess normalizes the pixel pages of a document in place. Text-only
// pages pass through untouched. Pixel pages without a declared DPI inherit
// the configured one.
func Preprocess(doc *Document, options PreprocessOptions) *PreprocessReport {
	report := &PreprocessReport{}
	for i := range doc.Pages {
		page := &doc.Pages[i]
		if !page.HasPixels() {
			continue
		}
		if options.Deskew {
			// Rotation is measured by the skew metric instead of corrected
			// here; flag the page so reports show the gap.
			page.Warnings = append(page.Warnings, "deskew-not-implemented")
		}
		if options.Denoise {
			page.Pixels = boxFilter(page.Pixels)
			report.Applied = append(report.Applied, fmt.Sprintf("page %d: denoise", page.Index))
		}
		if page.DPI == 0 {
			page.DPI = options.DPI
		}
	}
	return report
}

// boxFilter applies a 3x3 mean filter with edge-replicated borders.
func boxFilter(pixels [][]uint8) [][]uint8 {
	height := len(pixels)
	width := len(pixels[0])
	out := make([][]uint8, height)
	for y := 0; y < height; y++ {
		out[y] = make([]uint8, width)
		for x := 0; x < width; x++ {
			var sum int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sum += int(pixels[clampIndex(y+dy, height)][clampIndex(x+dx, width)])
				}
			}
			out[y][x] = uint8(sum / 9)
		}
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
