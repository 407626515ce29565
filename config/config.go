// Package config holds the qafax application configuration.
//
// Two kinds of configuration live here and they are deliberately separate:
//
//   - App config (Config): operator preferences loaded through Viper from
//     qafax.toml / environment. Controls paths, worker counts, ports.
//   - QA config documents (Service): fax profiles and verification policies,
//     JSON files whose raw bytes are content-hashed so every report can name
//     exactly which profile/policy produced it.
package config

// Config represents the core qafax configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Configs  ConfigsConfig  `mapstructure:"configs"`
	Output   OutputConfig   `mapstructure:"output"`
	Verify   VerifyConfig   `mapstructure:"verify"`
	Server   ServerConfig   `mapstructure:"server"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// DatabaseConfig configures the SQLite run history database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ConfigsConfig locates the QA config document tree (profiles/, policies)
type ConfigsConfig struct {
	Root string `mapstructure:"root"`
}

// OutputConfig configures report generation
type OutputConfig struct {
	Dir string `mapstructure:"dir"` // base directory for per-run artifact folders
}

// VerifyConfig configures the verification pipeline
type VerifyConfig struct {
	// Workers bounds the metric evaluation pool. Metrics are independent
	// pure functions, so any value >= 1 is safe; results are reassembled
	// in the fixed metric order regardless.
	Workers int `mapstructure:"workers"`

	// LowConfidenceThreshold is the page alignment score below which a
	// match is flagged (and, interactively, offered for manual override).
	LowConfidenceThreshold float64 `mapstructure:"low_confidence_threshold"`
}

// ServerConfig configures the live telemetry server started by `qafax serve`
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// IngestConfig configures directory capture of received fax artifacts
type IngestConfig struct {
	Pattern     string  `mapstructure:"pattern"`      // glob matched against file names
	StablePolls int     `mapstructure:"stable_polls"` // consecutive equal sizes before a file counts as complete
	IntervalSec float64 `mapstructure:"interval_sec"` // polling interval
}
