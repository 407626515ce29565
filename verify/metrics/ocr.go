package metrics

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/qafax/qafax/document"
)

// OCRConfig holds the text-legibility requirements. Required forces a
// verdict-relevant status even when no text was decoded.
type OCRConfig struct {
	Required    bool
	MinAccuracy float64
	InWarnSet   bool
}

// OCR approximates recognition accuracy as the ratio of alphanumeric
// runes to total runes in the candidate's raw content. Undecodable or
// empty content yields no value: WARN when OCR is required, SKIP
// otherwise.
func OCR(candidate *document.Document, caps Capabilities, cfg OCRConfig) Result {
	if !caps.HasOCRSupport() {
		return Result{
			Name:   NameOCR,
			Status: statusForOptional(nil, cfg.InWarnSet, nil),
			Detail: "ocr support disabled",
		}
	}

	accuracy, detected, total := ocrAccuracy(candidate.Content)
	if total == 0 {
		status := StatusSkip
		if cfg.Required {
			status = StatusWarn
		}
		return Result{Name: NameOCR, Status: status, Detail: "no decodable text"}
	}

	status := StatusPass
	if accuracy < cfg.MinAccuracy {
		status = StatusWarn
		if cfg.Required {
			status = StatusFail
		}
	}
	return Result{
		Name:   NameOCR,
		Value:  Float(accuracy),
		Status: status,
		Detail: fmt.Sprintf("detected=%d total=%d min=%.2f", detected, total, cfg.MinAccuracy),
	}
}

// ocrAccuracy counts alphanumeric coverage over valid UTF-8 content.
// Invalid UTF-8 is treated as undecodable, mirroring a failed OCR pass on
// binary input.
func ocrAccuracy(content []byte) (accuracy float64, detected, total int) {
	if !utf8.Valid(content) {
		return 0.0, 0, 0
	}
	for _, r := range string(content) {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			detected++
		}
	}
	if total == 0 {
		return 1.0, 0, 0
	}
	return float64(detected) / float64(total), detected, total
}
