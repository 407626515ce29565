package metrics

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/qafax/qafax/document"
)

// barcodeTokens is the marker vocabulary the proxy scans for. Test sheets
// embed these strings next to the real symbols.
var barcodeTokens = []string{"QR", "BARCODE", "CODE128", "CODE39"}

// BarcodeConfig controls whether a missing marker fails the run.
type BarcodeConfig struct {
	Required  bool
	InWarnSet bool
}

// Barcode scans the candidate's decoded text for known marker tokens.
// Any hit is PASS; no hit is FAIL when the policy requires a marker and
// WARN otherwise.
func Barcode(candidate *document.Document, caps Capabilities, cfg BarcodeConfig) Result {
	if !caps.HasBarcodeSupport() {
		return Result{
			Name:   NameBarcode,
			Status: statusForOptional(nil, cfg.InWarnSet, nil),
			Detail: "barcode support disabled",
		}
	}

	tokens := detectBarcodeTokens(candidate.Content)
	if len(tokens) > 0 {
		return Result{
			Name:   NameBarcode,
			Value:  Float(float64(len(tokens))),
			Status: StatusPass,
			Detail: strings.Join(tokens, ", "),
		}
	}

	status := StatusWarn
	if cfg.Required {
		status = StatusFail
	}
	return Result{Name: NameBarcode, Status: status, Detail: "no marker tokens found"}
}

func detectBarcodeTokens(content []byte) []string {
	if !utf8.Valid(content) {
		return nil
	}
	text := strings.ToUpper(string(content))
	var found []string
	for _, token := range barcodeTokens {
		if strings.Contains(text, token) {
			found = append(found, token)
		}
	}
	sort.Strings(found)
	return found
}
