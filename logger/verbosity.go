package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
//
// Example usage:
//
//	verbosity, _ := cmd.Root().PersistentFlags().GetCount("verbose")
//	logger.Initialize(jsonOutput, verbosity)
const (
	VerbosityUser  = 0 // No flags: verdicts, warnings and errors only
	VerbosityInfo  = 1 // -v: + run progress, config summary, report paths
	VerbosityDebug = 2 // -vv: + per-metric values, alignment scores, timing
	VerbosityTrace = 3 // -vvv: + negotiation event traces, SQL
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels.
//
// Mapping:
//
//	0 (none)  -> WarnLevel  (errors and warnings only)
//	1 (-v)    -> InfoLevel  (+ informational messages)
//	2+ (-vv)  -> DebugLevel (+ debug messages)
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
