package verify

import (
	"sync"
	"time"

	"github.com/qafax/qafax/document"
	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/fax"
	"github.com/qafax/qafax/logger"
	"github.com/qafax/qafax/verify/metrics"
)

// Summary is the complete outcome of verifying one candidate against one
// reference. All quality anomalies live in Metrics and Warnings; the only
// failure mode of the pipeline itself is an unreadable input file.
type Summary struct {
	Reference   *document.Document
	Candidate   *document.Document
	Pairs       []PagePair
	Metrics     []metrics.Result
	Verdict     metrics.Status
	Warnings    []string
	PolicyHash  string
	ProfileHash string
	Simulation  *fax.SimulationResult
	Duration    time.Duration
}

// Pipeline runs load, preprocess, align, metric evaluation, and verdict
// derivation for document pairs under one policy.
type Pipeline struct {
	policy        *Policy
	profileHash   string
	capabilities  metrics.Capabilities
	loader        document.Loader
	resolver      Resolver
	workers       int
	lowConfidence float64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader substitutes the document loader. Tests use this to feed
// in-memory documents.
func WithLoader(loader document.Loader) Option {
	return func(p *Pipeline) { p.loader = loader }
}

// WithCapabilities substitutes the capability provider.
func WithCapabilities(caps metrics.Capabilities) Option {
	return func(p *Pipeline) { p.capabilities = caps }
}

// WithResolver installs a low-confidence alignment resolver.
func WithResolver(resolver Resolver) Option {
	return func(p *Pipeline) { p.resolver = resolver }
}

// WithLowConfidenceThreshold overrides the alignment confidence floor.
func WithLowConfidenceThreshold(threshold float64) Option {
	return func(p *Pipeline) {
		if threshold > 0 {
			p.lowConfidence = threshold
		}
	}
}

// WithWorkers sets the metric evaluation parallelism.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProfileHash records the fax profile hash on every summary.
func WithProfileHash(hash string) Option {
	return func(p *Pipeline) { p.profileHash = hash }
}

// NewPipeline creates a pipeline for the given policy.
func NewPipeline(policy *Policy, opts ...Option) *Pipeline {
	p := &Pipeline{
		policy:       policy,
		capabilities: metrics.FullCapabilities(),
		loader:       document.NewFileLoader(),
		workers:      4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify loads both documents and scores the candidate against the
// reference. The simulation result is carried through for reporting and
// may be nil for verify-only runs.
func (p *Pipeline) Verify(referencePath, candidatePath string, simulation *fax.SimulationResult) (*Summary, error) {
	started := time.Now()

	reference, err := p.loader.Load(referencePath)
	if err != nil {
		return nil, errors.Wrapf(err, "load reference %s", referencePath)
	}
	candidate, err := p.loader.Load(candidatePath)
	if err != nil {
		return nil, errors.Wrapf(err, "load candidate %s", candidatePath)
	}

	return p.verifyDocuments(reference, candidate, simulation, started)
}

// VerifyDocuments scores already loaded documents. Callers that source
// documents from somewhere other than the filesystem enter here.
func (p *Pipeline) VerifyDocuments(reference, candidate *document.Document, simulation *fax.SimulationResult) (*Summary, error) {
	return p.verifyDocuments(reference, candidate, simulation, time.Now())
}

func (p *Pipeline) verifyDocuments(reference, candidate *document.Document, simulation *fax.SimulationResult, started time.Time) (*Summary, error) {
	document.Preprocess(reference, p.policy.Preprocess)
	document.Preprocess(candidate, p.policy.Preprocess)

	pairs, warnings := Align(reference, candidate, AlignOptions{
		LowConfidenceThreshold: p.lowConfidence,
		Resolver:               p.resolver,
	})
	alignedRef, alignedCand := materialize(reference, candidate, pairs)

	results := p.runMetrics(alignedRef, alignedCand)
	if len(warnings) > 0 {
		results = append(results, metrics.Result{
			Name:   metrics.NameAlignment,
			Value:  metrics.Float(float64(len(warnings))),
			Status: metrics.StatusWarn,
			Detail: warnings[0],
		})
	}

	verdict := p.deriveVerdict(results)
	logger.Infow("verification complete",
		logger.FieldVerdict, string(verdict),
		logger.FieldCount, len(results),
		logger.FieldDurationMS, time.Since(started).Milliseconds())

	return &Summary{
		Reference:   reference,
		Candidate:   candidate,
		Pairs:       pairs,
		Metrics:     results,
		Verdict:     verdict,
		Warnings:    warnings,
		PolicyHash:  p.policy.SHA256,
		ProfileHash: p.profileHash,
		Simulation:  simulation,
		Duration:    time.Since(started),
	}, nil
}

// materialize rebuilds both documents restricted to the aligned pairs, in
// pair order, so every metric sees page i of one side facing page i of
// the other.
func materialize(reference, candidate *document.Document, pairs []PagePair) (*document.Document, *document.Document) {
	alignedRef := &document.Document{
		Path:    reference.Path,
		Content: reference.Content,
		SHA256:  reference.SHA256,
	}
	alignedCand := &document.Document{
		Path:    candidate.Path,
		Content: candidate.Content,
		SHA256:  candidate.SHA256,
	}
	for _, pair := range pairs {
		alignedRef.Pages = append(alignedRef.Pages, *pair.Reference)
		alignedCand.Pages = append(alignedCand.Pages, *pair.Candidate)
	}
	return alignedRef, alignedCand
}

// runMetrics evaluates the metric suite across a bounded worker pool and
// reassembles results in the fixed metric order. Each metric is a pure
// function over the aligned documents, so only the slot assignment needs
// coordination.
func (p *Pipeline) runMetrics(reference, candidate *document.Document) []metrics.Result {
	results := make([]metrics.Result, len(metrics.Order))
	caps := p.capabilities

	tasks := []func(){
		func() {
			results[0] = metrics.Lines(reference, candidate, p.policy.Lines)
		},
		func() {
			results[1], results[2] = metrics.SSIMAndPSNR(reference, candidate, caps, p.policy.ssimConfig(), p.policy.psnrConfig())
		},
		func() {
			results[3] = metrics.Skew(candidate, caps, p.policy.skewConfig())
		},
		func() {
			results[4] = metrics.Noise(candidate, caps, p.policy.noiseConfig())
		},
		func() {
			results[5] = metrics.MTF(candidate, caps, p.policy.mtfConfig())
		},
		func() {
			results[6] = metrics.OCR(candidate, caps, p.policy.ocrConfig())
		},
		func() {
			results[7] = metrics.Barcode(candidate, caps, p.policy.barcodeConfig())
		},
	}

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		sem <- struct{}{}
		go func(run func()) {
			defer wg.Done()
			defer func() { <-sem }()
			run()
		}(task)
	}
	wg.Wait()

	return results
}

// deriveVerdict folds metric statuses into a run verdict. The first FAIL
// on a hard metric decides immediately; WARN and SKIP only matter for
// metrics named in the warn-set.
func (p *Pipeline) deriveVerdict(results []metrics.Result) metrics.Status {
	verdict := metrics.StatusPass
	for _, result := range results {
		switch result.Status {
		case metrics.StatusFail:
			if p.policy.InHardSet(result.Name) {
				return metrics.StatusFail
			}
		case metrics.StatusWarn, metrics.StatusSkip:
			if p.policy.InWarnSet(result.Name) {
				verdict = metrics.StatusWarn
			}
		}
	}
	return verdict
}
