// Package metrics implements the individual quality checks run against an
// aligned reference/candidate document pair. Each metric is a pure function
// of the two documents and its policy fragment; a metric that lacks the
// capability or data it needs degrades to SKIP or WARN instead of failing.
package metrics

import (
	"encoding/json"
	"math"
)

// Status is a metric or verdict outcome.
type Status string

const (
	StatusPass Status = "PASS"
	StatusWarn Status = "WARN"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// Metric names in their fixed evaluation order. Reports rely on this
// ordering being stable across runs.
const (
	NameLines     = "LINES"
	NameSSIM      = "SSIM"
	NamePSNR      = "PSNR"
	NameSkew      = "SKEW"
	NameNoise     = "NOISE"
	NameMTF       = "MTF"
	NameOCR       = "OCR"
	NameBarcode   = "BARCODE"
	NameAlignment = "ALIGNMENT"
)

// Order lists every pairwise metric in evaluation order. ALIGNMENT is not
// listed; the pipeline appends it only when alignment produced warnings.
var Order = []string{
	NameLines, NameSSIM, NamePSNR, NameSkew, NameNoise, NameMTF, NameOCR, NameBarcode,
}

// Result is the outcome of one metric. Value is nil when the metric had
// nothing to measure.
type Result struct {
	Name   string   `json:"name"`
	Value  *float64 `json:"value"`
	Status Status   `json:"status"`
	Detail string   `json:"detail,omitempty"`
}

// resultJSON substitutes string markers for non-finite values, which
// encoding/json refuses to emit as numbers. PSNR is +Inf on identical
// pixel content, so this path is routine, not exceptional.
type resultJSON struct {
	Name   string      `json:"name"`
	Value  interface{} `json:"value"`
	Status Status      `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Name: r.Name, Status: r.Status, Detail: r.Detail}
	if r.Value != nil {
		switch {
		case math.IsInf(*r.Value, 1):
			out.Value = "+Inf"
		case math.IsInf(*r.Value, -1):
			out.Value = "-Inf"
		case math.IsNaN(*r.Value):
			out.Value = "NaN"
		default:
			out.Value = *r.Value
		}
	}
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Name = in.Name
	r.Status = in.Status
	r.Detail = in.Detail
	r.Value = nil
	switch v := in.Value.(type) {
	case float64:
		r.Value = &v
	case string:
		var f float64
		switch v {
		case "+Inf":
			f = math.Inf(1)
		case "-Inf":
			f = math.Inf(-1)
		case "NaN":
			f = math.NaN()
		default:
			return nil
		}
		r.Value = &f
	}
	return nil
}

// Float wraps a value for a Result. Metric code reads better with a named
// constructor than with local pointer temporaries.
func Float(v float64) *float64 {
	return &v
}

// statusForOptional applies the shared convention for threshold metrics:
// a missing value is WARN when the metric participates in the policy's
// warn-set and SKIP otherwise; a present value is judged by ok.
func statusForOptional(value *float64, inWarnSet bool, ok func(float64) bool) Status {
	if value == nil {
		if inWarnSet {
			return StatusWarn
		}
		return StatusSkip
	}
	if ok(*value) {
		return StatusPass
	}
	return StatusFail
}
