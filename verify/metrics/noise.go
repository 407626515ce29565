package metrics

import (
	"fmt"

	"github.com/qafax/qafax/document"
	"github.com/qafax/qafax/internal/util"
)

// NoiseConfig holds the noise index above which the candidate is flagged.
// Noise only ever warns; a noisy page can still be legible.
type NoiseConfig struct {
	WarnAbove float64
}

// Noise estimates how noisy the candidate is. With pixel data the index is
// the mean adjacent-pixel gradient normalized to [0,1]; otherwise it is the
// byte-transition rate of the raw content.
func Noise(candidate *document.Document, caps Capabilities, cfg NoiseConfig) Result {
	value, method := noiseIndex(candidate, caps)
	status := StatusPass
	if value > cfg.WarnAbove {
		status = StatusWarn
	}
	return Result{
		Name:   NameNoise,
		Value:  Float(value),
		Status: status,
		Detail: fmt.Sprintf("warn=%.2f method=%s", cfg.WarnAbove, method),
	}
}

func noiseIndex(doc *document.Document, caps Capabilities) (float64, string) {
	if caps.HasPixelSupport() {
		var values []float64
		for i := range doc.Pages {
			page := &doc.Pages[i]
			if !page.HasPixels() {
				continue
			}
			values = append(values, util.Clamp01(gradientEnergy(page.Pixels)/255.0))
		}
		if len(values) > 0 {
			return mean(values), "gradient"
		}
	}
	return byteTransitionRate(doc.Content), "bytes"
}

// byteTransitionRate is the fraction of adjacent raw bytes that differ.
func byteTransitionRate(content []byte) float64 {
	if len(content) < 2 {
		return 0.0
	}
	transitions := 0
	for i := 1; i < len(content); i++ {
		if content[i] != content[i-1] {
			transitions++
		}
	}
	return float64(transitions) / float64(len(content)-1)
}

// gradientEnergy averages the absolute horizontal and vertical adjacent
// pixel differences over a grid.
func gradientEnergy(pixels [][]uint8) float64 {
	height := len(pixels)
	width := len(pixels[0])

	var sumX float64
	countX := 0
	for y := 0; y < height; y++ {
		for x := 1; x < width; x++ {
			sumX += util.AbsFloat64(float64(pixels[y][x]) - float64(pixels[y][x-1]))
			countX++
		}
	}

	var sumY float64
	countY := 0
	for y := 1; y < height; y++ {
		for x := 0; x < width; x++ {
			sumY += util.AbsFloat64(float64(pixels[y][x]) - float64(pixels[y-1][x]))
			countY++
		}
	}

	var meanX, meanY float64
	if countX > 0 {
		meanX = sumX / float64(countX)
	}
	if countY > 0 {
		meanY = sumY / float64(countY)
	}
	return (meanX + meanY) / 2.0
}
