package metrics

import (
	"fmt"
	"math"

	"github.com/qafax/qafax/document"
)

// SkewConfig holds the maximum tolerated absolute page rotation in
// degrees.
type SkewConfig struct {
	MaxDegrees float64
}

// Skew estimates the candidate's page rotation from intensity moments and
// averages it across pixel pages. Documents without pixel data score 0.
func Skew(candidate *document.Document, caps Capabilities, cfg SkewConfig) Result {
	value := estimateSkewDegrees(candidate, caps)
	status := StatusPass
	if math.Abs(value) > cfg.MaxDegrees {
		status = StatusFail
	}
	return Result{
		Name:   NameSkew,
		Value:  Float(value),
		Status: status,
		Detail: fmt.Sprintf("max=%.2fdeg", cfg.MaxDegrees),
	}
}

func estimateSkewDegrees(doc *document.Document, caps Capabilities) float64 {
	if !caps.HasPixelSupport() {
		return 0.0
	}
	var angles []float64
	for i := range doc.Pages {
		page := &doc.Pages[i]
		if !page.HasPixels() {
			continue
		}
		angles = append(angles, pageSkewDegrees(page.Pixels))
	}
	if len(angles) == 0 {
		return 0.0
	}
	return mean(angles)
}

// pageSkewDegrees derives an orientation angle from the second-order
// central moments of the intensity mass distribution.
func pageSkewDegrees(pixels [][]uint8) float64 {
	var total, sumX, sumY float64
	for y, row := range pixels {
		for x, v := range row {
			w := float64(v)
			total += w
			sumX += float64(x) * w
			sumY += float64(y) * w
		}
	}
	if total == 0 {
		return 0.0
	}
	meanX := sumX / total
	meanY := sumY / total

	var mu11, mu20, mu02 float64
	for y, row := range pixels {
		for x, v := range row {
			w := float64(v)
			dx := float64(x) - meanX
			dy := float64(y) - meanY
			mu11 += dx * dy * w
			mu20 += dx * dx * w
			mu02 += dy * dy * w
		}
	}
	mu11 /= total
	mu20 /= total
	mu02 /= total

	angle := 0.5 * math.Atan2(2*mu11, mu20-mu02)
	return angle * 180.0 / math.Pi
}
