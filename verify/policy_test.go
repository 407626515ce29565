package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qafax/qafax/verify/metrics"
)

func TestParsePolicy(t *testing.T) {
	t.Run("empty object yields defaults", func(t *testing.T) {
		policy, err := ParsePolicy([]byte(`{}`), "hash")
		require.NoError(t, err)

		assert.Equal(t, 0.7, policy.SSIMThreshold)
		assert.Equal(t, 18.0, policy.PSNRMinDB)
		assert.Equal(t, 1.0, policy.SkewMaxDeg)
		assert.Equal(t, 0.8, policy.NoiseWarn)
		assert.Equal(t, 0.1, policy.Lines.WarnRatio)
		assert.Equal(t, 0.3, policy.Lines.FailRatio)
		assert.Equal(t, 0.35, policy.MTF50Min)
		assert.False(t, policy.OCRRequired)
		assert.Equal(t, 0.95, policy.OCRMinAcc)
		assert.False(t, policy.BarcodeReq)
		assert.Equal(t, "hash", policy.SHA256)
		assert.Equal(t, 300, policy.Preprocess.DPI)
	})

	t.Run("overrides", func(t *testing.T) {
		payload := []byte(`{
			"ssimThreshold": 0.9,
			"psnrMinDb": 25,
			"lineMismatchWarnRatio": 0.05,
			"lineMismatchFailRatio": 0.2,
			"mtf": {"mtf50Min": 0.5},
			"ocr": {"required": true, "minAccuracy": 0.99},
			"barcode": {"required": true},
			"policy": {"hard": ["LINES", "SSIM"], "warn": ["NOISE"]},
			"preprocess": {"dpi": 200, "denoise": false}
		}`)
		policy, err := ParsePolicy(payload, "h")
		require.NoError(t, err)

		assert.Equal(t, 0.9, policy.SSIMThreshold)
		assert.Equal(t, 25.0, policy.PSNRMinDB)
		assert.Equal(t, 0.05, policy.Lines.WarnRatio)
		assert.Equal(t, 0.2, policy.Lines.FailRatio)
		assert.Equal(t, 0.5, policy.MTF50Min)
		assert.True(t, policy.OCRRequired)
		assert.Equal(t, 0.99, policy.OCRMinAcc)
		assert.True(t, policy.BarcodeReq)
		assert.Equal(t, []string{"LINES", "SSIM"}, policy.Hard)
		assert.Equal(t, []string{"NOISE"}, policy.Warn)
		assert.Equal(t, 200, policy.Preprocess.DPI)
		assert.False(t, policy.Preprocess.Denoise)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := ParsePolicy([]byte(`{`), "h")
		assert.Error(t, err)
	})
}

func TestPolicySets(t *testing.T) {
	t.Run("empty hard set makes every fail fatal", func(t *testing.T) {
		policy := DefaultPolicy()
		assert.True(t, policy.InHardSet(metrics.NameLines))
		assert.True(t, policy.InHardSet(metrics.NameBarcode))
	})

	t.Run("non-empty hard set is exclusive", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Hard = []string{metrics.NameLines}
		assert.True(t, policy.InHardSet(metrics.NameLines))
		assert.False(t, policy.InHardSet(metrics.NameSSIM))
	})

	t.Run("warn set membership", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Warn = []string{metrics.NameNoise}
		assert.True(t, policy.InWarnSet(metrics.NameNoise))
		assert.False(t, policy.InWarnSet(metrics.NameLines))
	})
}
