package metrics

// Capabilities reports which optional decode facilities the runtime has.
// Metrics branch on these instead of probing for libraries, so a test can
// exercise degraded paths by substituting a provider with nothing enabled.
type Capabilities interface {
	HasPixelSupport() bool
	HasOCRSupport() bool
	HasBarcodeSupport() bool
}

type staticCapabilities struct {
	pixel, ocr, barcode bool
}

func (c staticCapabilities) HasPixelSupport() bool   { return c.pixel }
func (c staticCapabilities) HasOCRSupport() bool     { return c.ocr }
func (c staticCapabilities) HasBarcodeSupport() bool { return c.barcode }

// FullCapabilities enables every optional facility. This is the normal
// production provider: pixel decode, OCR proxy, and barcode proxy are all
// built in.
func FullCapabilities() Capabilities {
	return staticCapabilities{pixel: true, ocr: true, barcode: true}
}

// NoCapabilities disables everything; every capability-gated metric
// degrades to its fallback or SKIP path.
func NoCapabilities() Capabilities {
	return staticCapabilities{}
}
