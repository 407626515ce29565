package metrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qafax/qafax/document"
)

func TestResultJSONRoundTrip(t *testing.T) {
	t.Run("finite value", func(t *testing.T) {
		data, err := json.Marshal(Result{Name: NameSSIM, Value: Float(0.92), Status: StatusPass})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"SSIM","value":0.92,"status":"PASS"}`, string(data))
	})

	t.Run("positive infinity", func(t *testing.T) {
		data, err := json.Marshal(Result{Name: NamePSNR, Value: Float(math.Inf(1)), Status: StatusPass})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"PSNR","value":"+Inf","status":"PASS"}`, string(data))

		var back Result
		require.NoError(t, json.Unmarshal(data, &back))
		require.NotNil(t, back.Value)
		assert.True(t, math.IsInf(*back.Value, 1))
	})

	t.Run("nil value", func(t *testing.T) {
		data, err := json.Marshal(Result{Name: NameMTF, Status: StatusSkip})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"MTF","value":null,"status":"SKIP"}`, string(data))

		var back Result
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Nil(t, back.Value)
	})
}

func TestSkewMetric(t *testing.T) {
	cfg := SkewConfig{MaxDegrees: 1.0}

	t.Run("no pixel data scores zero", func(t *testing.T) {
		result := Skew(textDocument("hello"), FullCapabilities(), cfg)
		assert.Equal(t, 0.0, *result.Value)
		assert.Equal(t, StatusPass, result.Status)
	})

	t.Run("symmetric mass scores zero", func(t *testing.T) {
		doc := pixelDocument(grid([]uint8{100, 100}, []uint8{100, 100}))
		result := Skew(doc, FullCapabilities(), cfg)
		assert.InDelta(t, 0.0, *result.Value, 1e-9)
	})

	t.Run("diagonal mass fails the tolerance", func(t *testing.T) {
		doc := pixelDocument(grid(
			[]uint8{255, 0, 0},
			[]uint8{0, 255, 0},
			[]uint8{0, 0, 255},
		))
		result := Skew(doc, FullCapabilities(), cfg)
		assert.InDelta(t, 45.0, *result.Value, 1e-6)
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("pixel support disabled scores zero", func(t *testing.T) {
		doc := pixelDocument(grid([]uint8{255, 0}, []uint8{0, 255}))
		result := Skew(doc, NoCapabilities(), cfg)
		assert.Equal(t, 0.0, *result.Value)
	})
}

func TestNoiseMetric(t *testing.T) {
	cfg := NoiseConfig{WarnAbove: 0.8}

	t.Run("flat pixel page is quiet", func(t *testing.T) {
		doc := pixelDocument(grid([]uint8{40, 40}, []uint8{40, 40}))
		result := Noise(doc, FullCapabilities(), cfg)
		assert.Equal(t, 0.0, *result.Value)
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Detail, "method=gradient")
	})

	t.Run("byte fallback counts transitions", func(t *testing.T) {
		doc := &document.Document{Content: []byte("ababab")}
		result := Noise(doc, FullCapabilities(), cfg)
		assert.Equal(t, 1.0, *result.Value)
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Detail, "method=bytes")
	})

	t.Run("uniform bytes are quiet", func(t *testing.T) {
		doc := &document.Document{Content: []byte("aaaaaa")}
		result := Noise(doc, FullCapabilities(), cfg)
		assert.Equal(t, 0.0, *result.Value)
	})

	t.Run("tiny content scores zero", func(t *testing.T) {
		doc := &document.Document{Content: []byte("a")}
		result := Noise(doc, FullCapabilities(), cfg)
		assert.Equal(t, 0.0, *result.Value)
	})
}

func TestMTFMetric(t *testing.T) {
	cfg := MTFConfig{MTF50Min: 0.35}

	t.Run("sharp checkerboard passes", func(t *testing.T) {
		doc := pixelDocument(grid(
			[]uint8{0, 255, 0, 255},
			[]uint8{255, 0, 255, 0},
			[]uint8{0, 255, 0, 255},
		))
		result := MTF(doc, FullCapabilities(), cfg)
		require.NotNil(t, result.Value)
		assert.Equal(t, 1.0, *result.Value)
		assert.Equal(t, StatusPass, result.Status)
	})

	t.Run("flat page fails", func(t *testing.T) {
		doc := pixelDocument(grid([]uint8{128, 128}, []uint8{128, 128}))
		result := MTF(doc, FullCapabilities(), cfg)
		assert.Equal(t, 0.0, *result.Value)
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("no pixels skips", func(t *testing.T) {
		result := MTF(textDocument("text only"), FullCapabilities(), cfg)
		assert.Nil(t, result.Value)
		assert.Equal(t, StatusSkip, result.Status)
	})

	t.Run("no pixels warns when in warn set", func(t *testing.T) {
		result := MTF(textDocument("text only"), FullCapabilities(), MTFConfig{MTF50Min: 0.35, InWarnSet: true})
		assert.Equal(t, StatusWarn, result.Status)
	})
}

func TestOCRMetric(t *testing.T) {
	cfg := OCRConfig{MinAccuracy: 0.95}

	t.Run("clean alphanumeric text passes", func(t *testing.T) {
		doc := &document.Document{Content: []byte("abc123")}
		result := OCR(doc, FullCapabilities(), cfg)
		assert.Equal(t, 1.0, *result.Value)
		assert.Equal(t, StatusPass, result.Status)
	})

	t.Run("low coverage warns when optional", func(t *testing.T) {
		doc := &document.Document{Content: []byte("a !!! ???")}
		result := OCR(doc, FullCapabilities(), cfg)
		assert.Equal(t, StatusWarn, result.Status)
	})

	t.Run("low coverage fails when required", func(t *testing.T) {
		doc := &document.Document{Content: []byte("a !!! ???")}
		result := OCR(doc, FullCapabilities(), OCRConfig{Required: true, MinAccuracy: 0.95})
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("empty content skips when optional", func(t *testing.T) {
		result := OCR(&document.Document{}, FullCapabilities(), cfg)
		assert.Nil(t, result.Value)
		assert.Equal(t, StatusSkip, result.Status)
	})

	t.Run("empty content warns when required", func(t *testing.T) {
		result := OCR(&document.Document{}, FullCapabilities(), OCRConfig{Required: true, MinAccuracy: 0.95})
		assert.Equal(t, StatusWarn, result.Status)
	})

	t.Run("binary content is undecodable", func(t *testing.T) {
		doc := &document.Document{Content: []byte{0xff, 0xfe, 0x00}}
		result := OCR(doc, FullCapabilities(), cfg)
		assert.Equal(t, StatusSkip, result.Status)
		assert.Equal(t, "no decodable text", result.Detail)
	})

	t.Run("support disabled skips", func(t *testing.T) {
		doc := &document.Document{Content: []byte("abc")}
		result := OCR(doc, NoCapabilities(), cfg)
		assert.Equal(t, StatusSkip, result.Status)
	})
}

func TestBarcodeMetric(t *testing.T) {
	t.Run("token found passes", func(t *testing.T) {
		doc := &document.Document{Content: []byte("control sheet qr code128 end")}
		result := Barcode(doc, FullCapabilities(), BarcodeConfig{})
		assert.Equal(t, StatusPass, result.Status)
		assert.Equal(t, 2.0, *result.Value)
		assert.Equal(t, "CODE128, QR", result.Detail)
	})

	t.Run("no token warns when optional", func(t *testing.T) {
		doc := &document.Document{Content: []byte("plain page")}
		result := Barcode(doc, FullCapabilities(), BarcodeConfig{})
		assert.Equal(t, StatusWarn, result.Status)
	})

	t.Run("no token fails when required", func(t *testing.T) {
		doc := &document.Document{Content: []byte("plain page")}
		result := Barcode(doc, FullCapabilities(), BarcodeConfig{Required: true})
		assert.Equal(t, StatusFail, result.Status)
	})

	t.Run("support disabled skips", func(t *testing.T) {
		doc := &document.Document{Content: []byte("QR")}
		result := Barcode(doc, NoCapabilities(), BarcodeConfig{})
		assert.Equal(t, StatusSkip, result.Status)
	})
}
