package metrics

import (
	"fmt"

	"github.com/qafax/qafax/document"
)

// MTFConfig holds the minimum acceptable sharpness proxy value.
type MTFConfig struct {
	MTF50Min  float64
	InWarnSet bool
}

// MTF approximates edge sharpness as the mean gradient energy of the
// candidate's pixel pages, normalized to [0,1]. The value is nil when no
// pixel data exists; sharpness cannot be judged from text.
func MTF(candidate *document.Document, caps Capabilities, cfg MTFConfig) Result {
	value := mtfProxy(candidate, caps)
	return Result{
		Name:   NameMTF,
		Value:  value,
		Status: statusForOptional(value, cfg.InWarnSet, func(v float64) bool { return v >= cfg.MTF50Min }),
		Detail: fmt.Sprintf("min=%.2f", cfg.MTF50Min),
	}
}

func mtfProxy(doc *document.Document, caps Capabilities) *float64 {
	if !caps.HasPixelSupport() {
		return nil
	}
	var values []float64
	for i := range doc.Pages {
		page := &doc.Pages[i]
		if !page.HasPixels() {
			continue
		}
		values = append(values, gradientEnergy(page.Pixels)/255.0)
	}
	if len(values) == 0 {
		return nil
	}
	return Float(mean(values))
}
