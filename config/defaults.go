package config

import (
	"github.com/spf13/viper"
)

// Default file permissions for the ~/.qafax directory
const DefaultDirPermissions = 0o755

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "qafax.db")

	// QA config document tree
	v.SetDefault("configs.root", "config")

	// Report output
	v.SetDefault("output.dir", "artifacts")

	// Verification pipeline
	v.SetDefault("verify.workers", 4)
	v.SetDefault("verify.low_confidence_threshold", 0.6)

	// Telemetry server
	v.SetDefault("server.port", 8087)

	// Ingest capture
	v.SetDefault("ingest.pattern", "*")
	v.SetDefault("ingest.stable_polls", 3)
	v.SetDefault("ingest.interval_sec", 1.0)
}
