// Package report renders run outcomes as JSON, CSV, HTML, and a plain
// text negotiation log under a per-run output directory.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/logger"
	"github.com/qafax/qafax/run"
	"github.com/qafax/qafax/verify/metrics"
)

// Builder generates report artifacts. Each run gets its own directory
// named after the run ID under the base output directory.
type Builder struct {
	baseDir string
}

// NewBuilder creates a builder rooted at baseDir, creating it if needed.
func NewBuilder(baseDir string) (*Builder, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create output directory %s", baseDir)
	}
	return &Builder{baseDir: baseDir}, nil
}

// EnsureRunDirectory creates and returns the directory for a run.
func (b *Builder) EnsureRunDirectory(runID string) (string, error) {
	dir := filepath.Join(b.baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create run directory %s", dir)
	}
	return dir, nil
}

// WriteAll renders every artifact for a run and returns the run
// directory.
func (b *Builder) WriteAll(result *run.Result, telemetry []run.TelemetryEvent) (string, error) {
	dir, err := b.EnsureRunDirectory(result.RunID)
	if err != nil {
		return "", err
	}
	if _, err := b.WriteJSON(dir, result, telemetry); err != nil {
		return dir, err
	}
	if _, err := b.WriteCSV(dir, result); err != nil {
		return dir, err
	}
	if _, err := b.WriteHTML(dir, result); err != nil {
		return dir, err
	}
	if _, err := b.WriteRunLog(dir, result); err != nil {
		return dir, err
	}
	logger.Infow("reports written",
		logger.FieldRunID, result.RunID,
		logger.FieldPath, dir)
	return dir, nil
}

// WriteJSON writes summary.json with run metadata, per-iteration
// details, and the telemetry stream.
func (b *Builder) WriteJSON(runDir string, result *run.Result, telemetry []run.TelemetryEvent) (string, error) {
	path := filepath.Join(runDir, "summary.json")
	if telemetry == nil {
		telemetry = []run.TelemetryEvent{}
	}
	payload := map[string]interface{}{
		"run":        runMetadata(result),
		"iterations": iterationDicts(result),
		"telemetry":  telemetry,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// WriteCSV writes summary.csv with one row per iteration.
func (b *Builder) WriteCSV(runDir string, result *run.Result) (string, error) {
	path := filepath.Join(runDir, "summary.csv")
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"iteration", "verdict", "bitrate", "fallback_steps",
		"policy_hash", "profile_hash", "mismatch_ratio",
	}
	if err := writer.Write(header); err != nil {
		return "", errors.Wrap(err, "write csv header")
	}
	for _, iteration := range result.Iterations {
		verification := iteration.Verification
		mismatch := ""
		if value := findMetricValue(verification.Metrics, metrics.NameLines); value != nil {
			mismatch = strconv.FormatFloat(*value, 'g', -1, 64)
		}
		row := []string{
			strconv.Itoa(iteration.Index),
			string(verification.Verdict),
			strconv.Itoa(iteration.Simulation.FinalBitrate),
			strconv.Itoa(iteration.Simulation.FallbackSteps),
			verification.PolicyHash,
			verification.ProfileHash,
			mismatch,
		}
		if err := writer.Write(row); err != nil {
			return "", errors.Wrapf(err, "write csv row %d", iteration.Index)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", errors.Wrap(err, "flush csv")
	}
	return path, nil
}

// WriteRunLog writes run.log, a human-readable header plus the full
// negotiation trace of every iteration.
func (b *Builder) WriteRunLog(runDir string, result *run.Result) (string, error) {
	path := filepath.Join(runDir, "run.log")
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	fmt.Fprintf(file, "Run ID: %s\n", result.RunID)
	fmt.Fprintf(file, "Started: %s\n", result.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(file, "Profile: %s (%s)\n", result.Profile.Name, result.Profile.Standard)
	fmt.Fprintf(file, "Policy: %s\n", result.PolicyName)
	fmt.Fprintf(file, "Iterations: %d\n", len(result.Iterations))
	fmt.Fprintf(file, "Seed: %d\n", result.Options.Seed)
	fmt.Fprintf(file, "Verdict: %s\n\n", result.Verdict)

	for _, iteration := range result.Iterations {
		fmt.Fprintf(file, "Iteration %d: verdict=%s bitrate=%d\n",
			iteration.Index, iteration.Verification.Verdict, iteration.Simulation.FinalBitrate)
		for _, event := range iteration.Simulation.Events {
			fmt.Fprintf(file, "  [%0.3f] %s %s :: %s\n",
				event.Timestamp, event.Phase, event.Event, event.Detail)
		}
		fmt.Fprintln(file)
	}
	return path, nil
}

func runMetadata(result *run.Result) map[string]interface{} {
	return map[string]interface{}{
		"id":        result.RunID,
		"startedAt": result.StartedAt,
		"profile": map[string]interface{}{
			"name":       result.Profile.Name,
			"hash":       result.Profile.ConfigSHA256,
			"standard":   result.Profile.Standard,
			"maxBitrate": result.Profile.MaxBitrate,
			"ecm": map[string]interface{}{
				"enabled":    result.Profile.ECMEnabled,
				"blockBytes": result.Profile.ECMBlockBytes,
			},
		},
		"policy": map[string]interface{}{
			"name": result.PolicyName,
			"hash": result.Policy.SHA256,
		},
		"iterations": len(result.Iterations),
		"seed":       result.Options.Seed,
		"verdict":    result.Verdict,
		"reference":  result.Options.Reference,
		"candidate":  result.Options.Candidate,
		"host":       result.Host,
	}
}

func iterationDicts(result *run.Result) []map[string]interface{} {
	dicts := make([]map[string]interface{}, 0, len(result.Iterations))
	for _, iteration := range result.Iterations {
		verification := iteration.Verification
		dicts = append(dicts, map[string]interface{}{
			"iteration": iteration.Index,
			"simulation": map[string]interface{}{
				"bitrate":        iteration.Simulation.FinalBitrate,
				"fallback_steps": iteration.Simulation.FallbackSteps,
				"rng_seed":       iteration.Simulation.Seed,
				"events":         iteration.Simulation.Events,
			},
			"verification": map[string]interface{}{
				"verdict":      verification.Verdict,
				"policy_hash":  verification.PolicyHash,
				"profile_hash": verification.ProfileHash,
				"metrics":      verification.Metrics,
				"warnings":     verification.Warnings,
			},
		})
	}
	return dicts
}

func findMetricValue(results []metrics.Result, name string) *float64 {
	for _, result := range results {
		if result.Name == name {
			return result.Value
		}
	}
	return nil
}
