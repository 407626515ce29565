package logger

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// ANSI codes for the console encoder. Single muted palette (gruvbox-ish);
// QA runs live in terminals long enough that loud colors grate.
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorFg     = "\x1b[38;5;223m" // soft cream
	colorTime   = "\x1b[38;5;108m" // muted cyan-green
	colorName   = "\x1b[38;5;208m" // warm orange
	colorNumber = "\x1b[38;5;175m" // muted purple
	colorPass   = "\x1b[38;5;142m" // muted green
	colorWarn   = "\x1b[38;5;214m" // soft yellow
	colorFail   = "\x1b[38;5;167m" // warm red
	warnBg      = "\x1b[48;5;58m"  // dark yellow background
	failBg      = "\x1b[48;5;88m"  // dark red background
)

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  v.pipeline  Verdict derived  PASS"
type minimalEncoder struct {
	zapcore.Encoder // embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level shown only for WARN/ERROR; INFO stays quiet.
	if ent.Level != zapcore.InfoLevel && ent.Level != zapcore.DebugLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorName)
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorFg)
	final.AppendString(colorizeVerdicts(ent.Message))
	final.AppendString(colorReset)

	if len(fields) > 0 {
		final.AppendString("  ")
		final.AppendString(renderFields(fields))
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return colorBold + warnBg + colorWarn + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + failBg + colorFail + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + failBg + colorFail + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// abbreviateName shortens component names: verify.pipeline -> v.pipeline
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// colorizeVerdicts highlights PASS/WARN/FAIL/SKIP tokens inside messages so
// they stay scannable in long batch logs.
func colorizeVerdicts(msg string) string {
	for token, color := range verdictColors {
		if strings.Contains(msg, token) {
			msg = strings.ReplaceAll(msg, token, color+token+colorReset+colorFg)
		}
	}
	return msg
}

var verdictColors = map[string]string{
	"PASS": colorPass,
	"WARN": colorWarn,
	"FAIL": colorFail,
	"SKIP": colorNumber,
}

// renderFields prints selected structured fields as compact colored values.
// Input: {"run_id": "r_123", "verdict": "PASS", "bitrate": 28800}
// Output: "r_123 PASS 28800bps"
func renderFields(fields []zapcore.Field) string {
	var values []string
	for _, field := range fields {
		switch field.Key {
		case FieldRunID, FieldProfile, FieldMetric:
			if v := fieldValue(field); v != "" {
				values = append(values, colorName+v+colorReset)
			}
		case FieldVerdict, FieldStatus:
			v := fieldValue(field)
			if color, ok := verdictColors[v]; ok {
				values = append(values, color+v+colorReset)
			} else if v != "" {
				values = append(values, v)
			}
		case FieldBitrate:
			if v := fieldValue(field); v != "" {
				values = append(values, colorNumber+v+colorReset+"bps")
			}
		case FieldDurationMS:
			if v := fieldValue(field); v != "" {
				values = append(values, colorNumber+v+colorReset+"ms")
			}
		case FieldCount, FieldFallbackSteps, FieldIteration, FieldSeed:
			if v := fieldValue(field); v != "" {
				values = append(values, colorNumber+v+colorReset)
			}
		}
	}
	return strings.Join(values, " ")
}

// fieldValue extracts a printable value from a zap field.
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.Float64Type:
		return fmt.Sprintf("%g", math.Float64frombits(uint64(field.Integer)))
	case zapcore.Float32Type:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(field.Integer)))
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}
