package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/qafax/qafax/errors"
	"github.com/qafax/qafax/run"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Fax QA Report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2rem; color: #0f172a; }
    h1 { margin-bottom: 0.25rem; }
    .chips { margin: 0 0 1rem 0; display: flex; flex-wrap: wrap; gap: 0.5rem; }
    .chip { background: #e0f2fe; color: #0c4a6e; padding: 0.25rem 0.75rem; border-radius: 999px; font-size: 0.9rem; }
    .meta { margin-bottom: 1rem; font-size: 0.9rem; color: #475569; }
    .meta span { display: inline-block; margin-right: 1rem; }
    .iteration { border-top: 1px solid #cbd5f5; padding-top: 1rem; margin-top: 1rem; }
    table { border-collapse: collapse; width: 100%; margin-bottom: 1rem; }
    th, td { border: 1px solid #cbd5f5; padding: 0.5rem; text-align: left; }
    th { background: #f1f5f9; }
    .PASS { color: #166534; }
    .WARN { color: #b45309; }
    .FAIL { color: #b91c1c; }
    .SKIP { color: #475569; }
    .events td { font-family: "Fira Mono", monospace; font-size: 0.85rem; }
  </style>
</head>
<body>
  <h1>Fax QA Report - {{.RunID}}</h1>
  <div class="chips">{{range .Chips}}<span class="chip">{{.}}</span>{{end}}</div>
  <div class="meta">
    <span>Profile: {{.ProfileLabel}}</span>
    <span>Policy: {{.PolicyLabel}}</span>
    <span>Iterations: {{.IterationCount}}</span>
    <span>Seed: {{.Seed}}</span>
    <span>Reference: {{.Reference}}</span>
    <span>Candidate: {{.Candidate}}</span>
  </div>
{{range .Iterations}}  <section class="iteration">
    <h2>Iteration {{.Index}} - <span class="{{.Verdict}}">{{.Verdict}}</span></h2>
    <p>Fallback steps: {{.FallbackSteps}} | RNG seed: {{.Seed}}</p>
    <h3>Verification Metrics</h3>
    <table class="metrics">
      <thead><tr><th>Name</th><th>Value</th><th>Status</th><th>Detail</th></tr></thead>
      <tbody>
{{range .Metrics}}        <tr><td>{{.Name}}</td><td>{{.Value}}</td><td class="{{.Status}}">{{.Status}}</td><td>{{.Detail}}</td></tr>
{{else}}        <tr><td colspan="4">No verification metrics recorded.</td></tr>
{{end}}      </tbody>
    </table>
    <h3>Negotiation Log</h3>
    <table class="events">
      <thead><tr><th>Timestamp</th><th>Phase</th><th>Event</th><th>Detail</th></tr></thead>
      <tbody>
{{range .Events}}        <tr><td>{{printf "%.3f" .Timestamp}}</td><td>{{.Phase}}</td><td>{{.Event}}</td><td>{{.Detail}}</td></tr>
{{else}}        <tr><td colspan="4">No events recorded.</td></tr>
{{end}}      </tbody>
    </table>
  </section>
{{end}}</body>
</html>
`))

type htmlMetric struct {
	Name   string
	Value  string
	Status string
	Detail string
}

type htmlIteration struct {
	Index         int
	Verdict       string
	FallbackSteps int
	Seed          int64
	Metrics       []htmlMetric
	Events        []htmlEvent
}

type htmlEvent struct {
	Timestamp float64
	Phase     string
	Event     string
	Detail    string
}

type htmlPage struct {
	RunID          string
	Chips          []string
	ProfileLabel   string
	PolicyLabel    string
	IterationCount int
	Seed           int64
	Reference      string
	Candidate      string
	Iterations     []htmlIteration
}

// WriteHTML writes report.html, a standalone page with per-iteration
// metric tables and negotiation traces.
func (b *Builder) WriteHTML(runDir string, result *run.Result) (string, error) {
	path := filepath.Join(runDir, "report.html")
	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()

	if err := reportTemplate.Execute(file, buildHTMLPage(result)); err != nil {
		return "", errors.Wrap(err, "render html report")
	}
	return path, nil
}

func buildHTMLPage(result *run.Result) htmlPage {
	page := htmlPage{
		RunID:          result.RunID,
		Chips:          chips(result),
		ProfileLabel:   fmt.Sprintf("%s (%s)", result.Profile.Name, hashPrefix(result.Profile.ConfigSHA256)),
		PolicyLabel:    fmt.Sprintf("%s (%s)", result.PolicyName, hashPrefix(result.Policy.SHA256)),
		IterationCount: len(result.Iterations),
		Seed:           result.Options.Seed,
		Reference:      result.Options.Reference,
		Candidate:      result.Options.Candidate,
	}
	for _, iteration := range result.Iterations {
		section := htmlIteration{
			Index:         iteration.Index,
			Verdict:       string(iteration.Verification.Verdict),
			FallbackSteps: iteration.Simulation.FallbackSteps,
			Seed:          iteration.Simulation.Seed,
		}
		for _, metric := range iteration.Verification.Metrics {
			value := ""
			if metric.Value != nil {
				value = fmt.Sprintf("%g", *metric.Value)
			}
			section.Metrics = append(section.Metrics, htmlMetric{
				Name:   metric.Name,
				Value:  value,
				Status: string(metric.Status),
				Detail: metric.Detail,
			})
		}
		for _, event := range iteration.Simulation.Events {
			section.Events = append(section.Events, htmlEvent{
				Timestamp: event.Timestamp,
				Phase:     event.Phase,
				Event:     event.Event,
				Detail:    event.Detail,
			})
		}
		page.Iterations = append(page.Iterations, section)
	}
	return page
}

func chips(result *run.Result) []string {
	ecm := "ECM off"
	if result.Profile.ECMEnabled {
		ecm = fmt.Sprintf("ECM %dB", result.Profile.ECMBlockBytes)
	}
	return []string{
		"Standard " + result.Profile.Standard,
		fmt.Sprintf("Max %d bps", result.Profile.MaxBitrate),
		ecm,
		"Verdict " + string(result.Verdict),
	}
}

func hashPrefix(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}
