package verify

import (
	"encoding/json"

	"github.com/qafax/qafax/document"
	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/verify/metrics"
)

// Policy holds the metric thresholds and the verdict sets for one
// verification run. Immutable once parsed.
type Policy struct {
	SSIMThreshold float64
	PSNRMinDB     float64
	SkewMaxDeg    float64
	NoiseWarn     float64
	Lines         metrics.LinesConfig
	MTF50Min      float64
	OCRRequired   bool
	OCRMinAcc     float64
	BarcodeReq    bool

	// Hard names the metrics whose FAIL fails the run; empty means every
	// FAIL is fatal. Warn names the metrics whose WARN or SKIP downgrades
	// the verdict to WARN.
	Hard []string
	Warn []string

	Preprocess document.PreprocessOptions
	SHA256     string
}

type policyPayload struct {
	SSIMThreshold         *float64 `json:"ssimThreshold"`
	PSNRMinDB             *float64 `json:"psnrMinDb"`
	SkewMaxDeg            *float64 `json:"skewMaxDeg"`
	NoiseWarn             *float64 `json:"noiseWarn"`
	LineMismatchWarnRatio *float64 `json:"lineMismatchWarnRatio"`
	LineMismatchFailRatio *float64 `json:"lineMismatchFailRatio"`
	MTF                   struct {
		MTF50Min *float64 `json:"mtf50Min"`
	} `json:"mtf"`
	OCR struct {
		Required    *bool    `json:"required"`
		MinAccuracy *float64 `json:"minAccuracy"`
	} `json:"ocr"`
	Barcode struct {
		Required *bool `json:"required"`
	} `json:"barcode"`
	Policy struct {
		Hard []string `json:"hard"`
		Warn []string `json:"warn"`
	} `json:"policy"`
	Preprocess json.RawMessage `json:"preprocess"`
}

// DefaultPolicy returns the stock thresholds used when a policy document
// omits fields.
func DefaultPolicy() *Policy {
	return &Policy{
		SSIMThreshold: 0.7,
		PSNRMinDB:     18.0,
		SkewMaxDeg:    1.0,
		NoiseWarn:     0.8,
		Lines:         metrics.DefaultLinesConfig(),
		MTF50Min:      0.35,
		OCRMinAcc:     0.95,
		Preprocess:    document.DefaultPreprocessOptions(),
	}
}

// ParsePolicy builds a Policy from a raw JSON config document and the
// content hash computed by the config loader.
func ParsePolicy(payload json.RawMessage, sha256 string) (*Policy, error) {
	var p policyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}

	policy := DefaultPolicy()
	policy.SHA256 = sha256
	if p.SSIMThreshold != nil {
		policy.SSIMThreshold = *p.SSIMThreshold
	}
	if p.PSNRMinDB != nil {
		policy.PSNRMinDB = *p.PSNRMinDB
	}
	if p.SkewMaxDeg != nil {
		policy.SkewMaxDeg = *p.SkewMaxDeg
	}
	if p.NoiseWarn != nil {
		policy.NoiseWarn = *p.NoiseWarn
	}
	if p.LineMismatchWarnRatio != nil {
		policy.Lines.WarnRatio = *p.LineMismatchWarnRatio
	}
	if p.LineMismatchFailRatio != nil {
		policy.Lines.FailRatio = *p.LineMismatchFailRatio
	}
	if p.MTF.MTF50Min != nil {
		policy.MTF50Min = *p.MTF.MTF50Min
	}
	if p.OCR.Required != nil {
		policy.OCRRequired = *p.OCR.Required
	}
	if p.OCR.MinAccuracy != nil {
		policy.OCRMinAcc = *p.OCR.MinAccuracy
	}
	if p.Barcode.Required != nil {
		policy.BarcodeReq = *p.Barcode.Required
	}
	policy.Hard = p.Policy.Hard
	policy.Warn = p.Policy.Warn

	preprocess, err := document.PreprocessOptionsFromJSON(p.Preprocess)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err.Error())
	}
	policy.Preprocess = preprocess

	return policy, nil
}

// InHardSet reports whether a FAIL on the named metric fails the run.
func (p *Policy) InHardSet(name string) bool {
	if len(p.Hard) == 0 {
		return true
	}
	return contains(p.Hard, name)
}

// InWarnSet reports whether a WARN or SKIP on the named metric downgrades
// the verdict.
func (p *Policy) InWarnSet(name string) bool {
	return contains(p.Warn, name)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (p *Policy) ssimConfig() metrics.SSIMConfig {
	return metrics.SSIMConfig{Threshold: p.SSIMThreshold, InWarnSet: p.InWarnSet(metrics.NameSSIM)}
}

func (p *Policy) psnrConfig() metrics.PSNRConfig {
	return metrics.PSNRConfig{MinDB: p.PSNRMinDB, InWarnSet: p.InWarnSet(metrics.NamePSNR)}
}

func (p *Policy) skewConfig() metrics.SkewConfig {
	return metrics.SkewConfig{MaxDegrees: p.SkewMaxDeg}
}

func (p *Policy) noiseConfig() metrics.NoiseConfig {
	return metrics.NoiseConfig{WarnAbove: p.NoiseWarn}
}

func (p *Policy) mtfConfig() metrics.MTFConfig {
	return metrics.MTFConfig{MTF50Min: p.MTF50Min, InWarnSet: p.InWarnSet(metrics.NameMTF)}
}

func (p *Policy) ocrConfig() metrics.OCRConfig {
	return metrics.OCRConfig{
		Required:    p.OCRRequired,
		MinAccuracy: p.OCRMinAcc,
		InWarnSet:   p.InWarnSet(metrics.NameOCR),
	}
}

func (p *Policy) barcodeConfig() metrics.BarcodeConfig {
	return metrics.BarcodeConfig{Required: p.BarcodeReq, InWarnSet: p.InWarnSet(metrics.NameBarcode)}
}
