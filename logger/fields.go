package logger

// Standard field names for consistent structured logging across qafax.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRunID     = "run_id"
	FieldIteration = "iteration"
	FieldComponent = "component"

	// Verification
	FieldVerdict  = "verdict"
	FieldMetric   = "metric"
	FieldStatus   = "status"
	FieldValue    = "value"
	FieldPage     = "page"
	FieldDocument = "document"

	// Negotiation
	FieldProfile       = "profile"
	FieldSeed          = "seed"
	FieldBitrate       = "bitrate"
	FieldFallbackSteps = "fallback_steps"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"
	FieldSize  = "size"

	// Files and paths
	FieldFile = "file"
	FieldPath = "path"
)
