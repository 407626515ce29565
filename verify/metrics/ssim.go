package metrics

import (
	"fmt"
	"math"

	"github.com/qafax/qafax/document"
)

// SSIMConfig holds the structural-similarity acceptance threshold.
// InWarnSet controls how a missing value is reported.
type SSIMConfig struct {
	Threshold float64
	InWarnSet bool
}

// PSNRConfig holds the minimum acceptable peak signal-to-noise ratio in
// decibels.
type PSNRConfig struct {
	MinDB     float64
	InWarnSet bool
}

// SSIMAndPSNR scores pixel fidelity across the aligned page pairs. Pairs
// without pixel data on both sides fall back to the textual match ratio,
// with a perfect text match treated as infinite PSNR. Both values are nil
// only when neither document has pages.
func SSIMAndPSNR(reference, candidate *document.Document, caps Capabilities, ssimCfg SSIMConfig, psnrCfg PSNRConfig) (Result, Result) {
	ssim, psnr, method := ssimPSNRValues(reference, candidate, caps)

	ssimResult := Result{
		Name:   NameSSIM,
		Value:  ssim,
		Status: statusForOptional(ssim, ssimCfg.InWarnSet, func(v float64) bool { return v >= ssimCfg.Threshold }),
		Detail: fmt.Sprintf("threshold=%.2f method=%s", ssimCfg.Threshold, method),
	}
	psnrResult := Result{
		Name:  NamePSNR,
		Value: psnr,
		Status: statusForOptional(psnr, psnrCfg.InWarnSet, func(v float64) bool {
			return math.IsInf(v, 1) || v >= psnrCfg.MinDB
		}),
		Detail: fmt.Sprintf("min=%.1fdB method=%s", psnrCfg.MinDB, method),
	}
	return ssimResult, psnrResult
}

func ssimPSNRValues(reference, candidate *document.Document, caps Capabilities) (*float64, *float64, string) {
	if reference.PageCount() == 0 || candidate.PageCount() == 0 {
		return nil, nil, "empty"
	}

	pairs := reference.PageCount()
	if candidate.PageCount() < pairs {
		pairs = candidate.PageCount()
	}

	var ssimValues, psnrValues []float64
	method := "text"
	for i := 0; i < pairs; i++ {
		refPage := &reference.Pages[i]
		candPage := &candidate.Pages[i]
		if caps.HasPixelSupport() && refPage.HasPixels() && candPage.HasPixels() {
			ssimValues = append(ssimValues, pixelSSIM(refPage.Pixels, candPage.Pixels))
			psnrValues = append(psnrValues, pixelPSNR(refPage.Pixels, candPage.Pixels))
			method = "image"
			continue
		}
		match := CompareSequences(refPage.TextLines, candPage.TextLines).MatchRatio()
		ssimValues = append(ssimValues, match)
		if match == 1.0 {
			psnrValues = append(psnrValues, math.Inf(1))
		} else {
			psnrValues = append(psnrValues, 0.0)
		}
	}

	return Float(mean(ssimValues)), Float(mean(psnrValues)), method
}

// pixelSSIM is a single-window structural similarity approximation over
// the overlapping region of two grayscale grids.
func pixelSSIM(ref, cand [][]uint8) float64 {
	height, width := overlap(ref, cand)
	if height == 0 || width == 0 {
		return 0.0
	}

	n := float64(height * width)
	var sumRef, sumCand float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sumRef += float64(ref[y][x])
			sumCand += float64(cand[y][x])
		}
	}
	muRef := sumRef / n
	muCand := sumCand / n

	var varRef, varCand, covar float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dr := float64(ref[y][x]) - muRef
			dc := float64(cand[y][x]) - muCand
			varRef += dr * dr
			varCand += dc * dc
			covar += dr * dc
		}
	}
	varRef /= n
	varCand /= n
	covar /= n

	const l = 255.0
	c1 := (0.01 * l) * (0.01 * l)
	c2 := (0.03 * l) * (0.03 * l)
	numerator := (2*muRef*muCand + c1) * (2*covar + c2)
	denominator := (muRef*muRef + muCand*muCand + c1) * (varRef + varCand + c2)
	if denominator == 0 {
		return 1.0
	}
	return math.Max(math.Min(numerator/denominator, 1.0), -1.0)
}

// pixelPSNR is the peak signal-to-noise ratio over the overlapping region,
// +Inf for identical content.
func pixelPSNR(ref, cand [][]uint8) float64 {
	height, width := overlap(ref, cand)
	if height == 0 || width == 0 {
		return 0.0
	}

	var sumSq float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := float64(ref[y][x]) - float64(cand[y][x])
			sumSq += d * d
		}
	}
	mse := sumSq / float64(height*width)
	if mse == 0 {
		return math.Inf(1)
	}
	return 20 * math.Log10(255.0/math.Sqrt(mse))
}

// overlap returns the dimensions both grids share.
func overlap(a, b [][]uint8) (height, width int) {
	height = len(a)
	if len(b) < height {
		height = len(b)
	}
	if height == 0 {
		return 0, 0
	}
	width = len(a[0])
	if len(b[0]) < width {
		width = len(b[0])
	}
	return height, width
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
