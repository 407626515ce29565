package run

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/db"
	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/fax"
	"github.com/qafax/qafax/logger"
	"github.com/qafax/qafax/verify"
	"github.com/qafax/qafax/verify/metrics"
)

// Options describes one QA run request.
type Options struct {
	RunID          string // generated when empty
	ProfileName    string
	PolicyName     string
	Reference      string
	Candidate      string
	Iterations     int // minimum 1
	Seed           int64
	RequireOCR     bool // force ocr.required on top of the policy
	RequireBarcode bool // force barcode.required on top of the policy
	Workers        int
	LowConfidence  float64
	Resolver       verify.Resolver
}

// IterationResult is one simulate-and-verify cycle.
type IterationResult struct {
	Index        int
	Simulation   *fax.SimulationResult
	Verification *verify.Summary
}

// Result is the complete outcome of a run.
type Result struct {
	RunID      string
	Profile    *fax.Profile
	Policy     *verify.Policy
	PolicyName string
	Options    Options
	Iterations []IterationResult
	Verdict    metrics.Status
	StartedAt  time.Time
	Host       HostInfo
}

// Runner executes runs against a config service, with optional
// persistence.
type Runner struct {
	configs   *config.Service
	store     *db.RunStore
	telemetry *TelemetrySink
}

// NewRunner creates a runner. store may be nil for ephemeral runs.
func NewRunner(configs *config.Service, store *db.RunStore) *Runner {
	return &Runner{
		configs:   configs,
		store:     store,
		telemetry: NewTelemetrySink(),
	}
}

// Telemetry exposes the sink so callers can flush or stream it.
func (r *Runner) Telemetry() *TelemetrySink {
	return r.telemetry
}

// Execute runs iterations of simulate-and-verify and returns the
// aggregate. The context is checked between iterations; a canceled run
// returns what it has alongside the context error.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Reference == "" || opts.Candidate == "" {
		return nil, errors.NewInvalidConfigError("run requires both a reference and a candidate document")
	}
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	profile, err := r.loadProfile(opts.ProfileName)
	if err != nil {
		return nil, err
	}
	policy, err := r.loadPolicy(opts.PolicyName, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      opts.RunID,
		Profile:    profile,
		Policy:     policy,
		PolicyName: opts.PolicyName,
		Options:    opts,
		Verdict:    metrics.StatusPass,
		StartedAt:  time.Now().UTC(),
		Host:       SnapshotHost(),
	}

	pipeline := verify.NewPipeline(policy,
		verify.WithProfileHash(profile.ConfigSHA256),
		verify.WithWorkers(opts.Workers),
		verify.WithLowConfidenceThreshold(opts.LowConfidence),
		verify.WithResolver(opts.Resolver),
	)

	if r.store != nil {
		if err := r.store.CreateRun(&db.RunRecord{
			ID:            opts.RunID,
			ProfileName:   profile.Name,
			ProfileHash:   profile.ConfigSHA256,
			PolicyName:    opts.PolicyName,
			PolicyHash:    policy.SHA256,
			ReferencePath: opts.Reference,
			CandidatePath: opts.Candidate,
			BaseSeed:      opts.Seed,
			HostJSON:      result.Host.JSON(),
			StartedAt:     result.StartedAt,
		}); err != nil {
			return nil, err
		}
	}

	logger.Infow("run started",
		logger.FieldRunID, opts.RunID,
		logger.FieldProfile, profile.Name,
		logger.FieldSeed, opts.Seed,
		logger.FieldCount, opts.Iterations)

	for index := 0; index < opts.Iterations; index++ {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, "run canceled")
		}

		iteration, err := r.runIteration(pipeline, profile, opts, index)
		if err != nil {
			return result, err
		}
		result.Iterations = append(result.Iterations, *iteration)
		result.Verdict = worseVerdict(result.Verdict, iteration.Verification.Verdict)
	}

	if r.store != nil {
		if err := r.store.CompleteRun(opts.RunID, string(result.Verdict), len(result.Iterations)); err != nil {
			return result, err
		}
	}

	logger.Infow("run complete",
		logger.FieldRunID, opts.RunID,
		logger.FieldVerdict, string(result.Verdict),
		logger.FieldCount, len(result.Iterations))
	return result, nil
}

func (r *Runner) runIteration(pipeline *verify.Pipeline, profile *fax.Profile, opts Options, index int) (*IterationResult, error) {
	seed := opts.Seed + int64(index)
	simulation := fax.NewSimulation(profile, seed).Run()
	r.telemetry.Emit("simulation.completed", map[string]interface{}{
		"index":          index,
		"bitrate":        simulation.FinalBitrate,
		"fallback_steps": simulation.FallbackSteps,
	})

	summary, err := pipeline.Verify(opts.Reference, opts.Candidate, simulation)
	if err != nil {
		return nil, errors.Wrapf(err, "iteration %d", index)
	}
	r.telemetry.Emit("verification.completed", map[string]interface{}{
		"index":   index,
		"verdict": string(summary.Verdict),
	})

	logger.Infow("iteration complete",
		logger.FieldIteration, index,
		logger.FieldSeed, seed,
		logger.FieldBitrate, simulation.FinalBitrate,
		logger.FieldFallbackSteps, simulation.FallbackSteps,
		logger.FieldVerdict, string(summary.Verdict))

	if r.store != nil {
		metricsJSON, warningsJSON := marshalIterationDetails(summary)
		if err := r.store.RecordIteration(&db.IterationRecord{
			RunID:         opts.RunID,
			Seq:           index,
			Seed:          seed,
			FinalBitrate:  simulation.FinalBitrate,
			FallbackSteps: simulation.FallbackSteps,
			Verdict:       string(summary.Verdict),
			MetricsJSON:   metricsJSON,
			WarningsJSON:  warningsJSON,
			DurationMS:    summary.Duration.Milliseconds(),
		}); err != nil {
			return nil, err
		}
	}

	return &IterationResult{Index: index, Simulation: simulation, Verification: summary}, nil
}

func (r *Runner) loadProfile(name string) (*fax.Profile, error) {
	if name == "" {
		return nil, errors.NewInvalidConfigError("run requires a profile name")
	}
	loaded, err := r.configs.LoadProfile(name)
	if err != nil {
		return nil, err
	}
	return fax.ParseProfile(loaded.Payload, loaded.SHA256)
}

func (r *Runner) loadPolicy(name string, opts Options) (*verify.Policy, error) {
	if name == "" {
		return nil, errors.NewInvalidConfigError("run requires a policy name")
	}
	loaded, err := r.configs.LoadPolicy(name)
	if err != nil {
		return nil, err
	}
	policy, err := verify.ParsePolicy(loaded.Payload, loaded.SHA256)
	if err != nil {
		return nil, err
	}
	if opts.RequireOCR {
		policy.OCRRequired = true
	}
	if opts.RequireBarcode {
		policy.BarcodeReq = true
	}
	return policy, nil
}

// worseVerdict folds per-iteration verdicts; FAIL dominates WARN which
// dominates PASS.
func worseVerdict(current, next metrics.Status) metrics.Status {
	rank := map[metrics.Status]int{
		metrics.StatusPass: 0,
		metrics.StatusWarn: 1,
		metrics.StatusFail: 2,
	}
	if rank[next] > rank[current] {
		return next
	}
	return current
}

func marshalIterationDetails(summary *verify.Summary) (metricsJSON, warningsJSON string) {
	metricsJSON, warningsJSON = "[]", "[]"
	if data, err := json.Marshal(summary.Metrics); err == nil {
		metricsJSON = string(data)
	}
	if len(summary.Warnings) > 0 {
		if data, err := json.Marshal(summary.Warnings); err == nil {
			warningsJSON = string(data)
		}
	}
	return metricsJSON, warningsJSON
}
