package verify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qafax/qafax/document"
	"github.com/qafax/qafax/verify/metrics"
)

// mapLoader serves in-memory documents keyed by path.
type mapLoader map[string]*document.Document

func (m mapLoader) Load(path string) (*document.Document, error) {
	doc, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no document at %s", path)
	}
	return doc, nil
}

func linesDocument(lines ...string) *document.Document {
	return &document.Document{
		Content: []byte(strings.Join(lines, "\n")),
		Pages:   []document.Page{{Index: 0, TextLines: lines}},
	}
}

func tenLines(prefix string) []string {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return lines
}

func metricByName(t *testing.T, summary *Summary, name string) metrics.Result {
	t.Helper()
	for _, result := range summary.Metrics {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("metric %s not found in %v", name, summary.Metrics)
	return metrics.Result{}
}

func TestPipelineIdenticalDocumentsPass(t *testing.T) {
	lines := tenLines("line")
	loader := mapLoader{
		"ref.txt":  linesDocument(lines...),
		"cand.txt": linesDocument(lines...),
	}
	pipeline := NewPipeline(DefaultPolicy(), WithLoader(loader))

	summary, err := pipeline.Verify("ref.txt", "cand.txt", nil)
	require.NoError(t, err)

	linesResult := metricByName(t, summary, metrics.NameLines)
	assert.Equal(t, 0.0, *linesResult.Value)
	assert.Equal(t, metrics.StatusPass, linesResult.Status)
	assert.Equal(t, metrics.StatusPass, summary.Verdict)
	assert.Empty(t, summary.Warnings)
}

func TestPipelineHalfMissingLinesFail(t *testing.T) {
	loader := mapLoader{
		"ref.txt":  linesDocument(tenLines("line")...),
		"cand.txt": linesDocument(tenLines("line")[:5]...),
	}
	pipeline := NewPipeline(DefaultPolicy(), WithLoader(loader))

	summary, err := pipeline.Verify("ref.txt", "cand.txt", nil)
	require.NoError(t, err)

	linesResult := metricByName(t, summary, metrics.NameLines)
	assert.Equal(t, 0.5, *linesResult.Value)
	assert.Equal(t, metrics.StatusFail, linesResult.Status)
	assert.Equal(t, metrics.StatusFail, summary.Verdict,
		"LINES failure is fatal under an empty hard set")
}

func TestPipelineRealignsBeforeMetrics(t *testing.T) {
	loader := mapLoader{
		"ref.txt": &document.Document{Pages: []document.Page{
			{Index: 0, TextLines: []string{"alpha"}},
			{Index: 1, TextLines: []string{"beta"}},
		}},
		"cand.txt": &document.Document{Pages: []document.Page{
			{Index: 0, TextLines: []string{"beta"}},
			{Index: 1, TextLines: []string{"alpha"}},
		}},
	}
	policy := DefaultPolicy()
	policy.Warn = []string{}
	pipeline := NewPipeline(policy, WithLoader(loader))

	summary, err := pipeline.Verify("ref.txt", "cand.txt", nil)
	require.NoError(t, err)

	linesResult := metricByName(t, summary, metrics.NameLines)
	assert.Equal(t, 0.0, *linesResult.Value, "pages must be compared after realignment")
	assert.Equal(t, metrics.StatusPass, summary.Verdict)
}

func TestPipelineMetricOrderIsStable(t *testing.T) {
	loader := mapLoader{
		"ref.txt":  linesDocument("alpha"),
		"cand.txt": linesDocument("alpha"),
	}
	pipeline := NewPipeline(DefaultPolicy(), WithLoader(loader), WithWorkers(8))

	for i := 0; i < 5; i++ {
		summary, err := pipeline.Verify("ref.txt", "cand.txt", nil)
		require.NoError(t, err)
		names := make([]string, 0, len(summary.Metrics))
		for _, result := range summary.Metrics {
			names = append(names, result.Name)
		}
		assert.Equal(t, metrics.Order, names)
	}
}

func TestPipelineAppendsAlignmentMetricOnWarnings(t *testing.T) {
	loader := mapLoader{
		"ref.txt": &document.Document{Pages: []document.Page{
			{Index: 0, TextLines: []string{"alpha"}},
			{Index: 1, TextLines: []string{"beta"}},
		}},
		"cand.txt": &document.Document{Pages: []document.Page{
			{Index: 0, TextLines: []string{"alpha"}},
		}},
	}
	pipeline := NewPipeline(DefaultPolicy(), WithLoader(loader))

	summary, err := pipeline.Verify("ref.txt", "cand.txt", nil)
	require.NoError(t, err)

	alignment := metricByName(t, summary, metrics.NameAlignment)
	assert.Equal(t, metrics.StatusWarn, alignment.Status)
	assert.Equal(t, float64(len(summary.Warnings)), *alignment.Value)
	assert.NotEmpty(t, summary.Warnings)
}

func TestPipelineLoadFailure(t *testing.T) {
	pipeline := NewPipeline(DefaultPolicy(), WithLoader(mapLoader{}))
	_, err := pipeline.Verify("missing-ref", "missing-cand", nil)
	assert.Error(t, err)
}

func TestDeriveVerdict(t *testing.T) {
	fail := metrics.Result{Name: metrics.NameSSIM, Status: metrics.StatusFail}
	warn := metrics.Result{Name: metrics.NameNoise, Status: metrics.StatusWarn}
	skip := metrics.Result{Name: metrics.NameMTF, Status: metrics.StatusSkip}
	pass := metrics.Result{Name: metrics.NameLines, Status: metrics.StatusPass}

	t.Run("all pass", func(t *testing.T) {
		p := NewPipeline(DefaultPolicy())
		assert.Equal(t, metrics.StatusPass, p.deriveVerdict([]metrics.Result{pass}))
	})

	t.Run("fail under empty hard set is fatal", func(t *testing.T) {
		p := NewPipeline(DefaultPolicy())
		assert.Equal(t, metrics.StatusFail, p.deriveVerdict([]metrics.Result{pass, fail}))
	})

	t.Run("fail on listed hard metric is fatal", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Hard = []string{metrics.NameSSIM}
		p := NewPipeline(policy)
		assert.Equal(t, metrics.StatusFail, p.deriveVerdict([]metrics.Result{fail}))
	})

	t.Run("fail outside a non-empty hard set is ignored", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Hard = []string{metrics.NameLines}
		p := NewPipeline(policy)
		assert.Equal(t, metrics.StatusPass, p.deriveVerdict([]metrics.Result{fail}))
	})

	t.Run("warn in warn set downgrades", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Warn = []string{metrics.NameNoise}
		p := NewPipeline(policy)
		assert.Equal(t, metrics.StatusWarn, p.deriveVerdict([]metrics.Result{pass, warn}))
	})

	t.Run("skip in warn set downgrades", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Warn = []string{metrics.NameMTF}
		p := NewPipeline(policy)
		assert.Equal(t, metrics.StatusWarn, p.deriveVerdict([]metrics.Result{skip}))
	})

	t.Run("warn outside warn set is ignored", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Hard = []string{metrics.NameLines}
		p := NewPipeline(policy)
		assert.Equal(t, metrics.StatusPass, p.deriveVerdict([]metrics.Result{warn, skip}))
	})

	t.Run("fail wins over warn", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.Warn = []string{metrics.NameNoise}
		p := NewPipeline(policy)
		assert.Equal(t, metrics.StatusFail, p.deriveVerdict([]metrics.Result{warn, fail}))
	})
}
