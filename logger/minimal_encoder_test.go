package logger

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encodeEntry(t *testing.T, ent zapcore.Entry, fields ...zapcore.Field) string {
	t.Helper()
	enc := newMinimalEncoder()
	buf, err := enc.EncodeEntry(ent, fields)
	require.NoError(t, err)
	return buf.String()
}

func TestEncodeEntry(t *testing.T) {
	ts := time.Date(2026, 3, 14, 13, 4, 35, 0, time.UTC)

	t.Run("formats timestamp and message", func(t *testing.T) {
		out := encodeEntry(t, zapcore.Entry{
			Level:   zapcore.InfoLevel,
			Time:    ts,
			Message: "Run started",
		})
		assert.Contains(t, out, "13:04:35")
		assert.Contains(t, out, "Run started")
		assert.True(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("info level stays quiet", func(t *testing.T) {
		out := encodeEntry(t, zapcore.Entry{Level: zapcore.InfoLevel, Time: ts, Message: "ok"})
		assert.NotContains(t, out, "INFO")
	})

	t.Run("warn level is labelled", func(t *testing.T) {
		out := encodeEntry(t, zapcore.Entry{Level: zapcore.WarnLevel, Time: ts, Message: "page count mismatch"})
		assert.Contains(t, out, "WARN")
	})

	t.Run("verdict tokens are colorized", func(t *testing.T) {
		out := encodeEntry(t, zapcore.Entry{Level: zapcore.InfoLevel, Time: ts, Message: "Verdict FAIL"})
		assert.Contains(t, out, colorFail+"FAIL")
	})

	t.Run("renders selected fields as values", func(t *testing.T) {
		out := encodeEntry(t, zapcore.Entry{Level: zapcore.InfoLevel, Time: ts, Message: "Negotiated"},
			zap.String(FieldRunID, "r_001"),
			zap.Int(FieldBitrate, 28800),
			zap.String(FieldVerdict, "PASS"),
		)
		assert.Contains(t, out, "r_001")
		assert.Contains(t, out, "28800"+colorReset+"bps")
		assert.Contains(t, out, colorPass+"PASS")
	})
}

func TestAbbreviateName(t *testing.T) {
	assert.Equal(t, "v.pipeline", abbreviateName("verify.pipeline"))
	assert.Equal(t, "run", abbreviateName("run"))
	assert.Equal(t, "r.store.sqlite", abbreviateName("run.store.sqlite"))
}
