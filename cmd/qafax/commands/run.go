package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/db"
	"github.com/qafax/qafax/display"
	"github.com/qafax/qafax/report"
	"github.com/qafax/qafax/run"
	"github.com/qafax/qafax/verify/metrics"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate, verify, and report a full QA run",
	Long: `Execute a complete QA run: simulate fax negotiation against a
capability profile, verify the candidate document against the reference,
score it against a verification policy, and write reports.

Examples:
  qafax run --ref golden.txt --cand received.txt --profile v34 --policy default
  qafax run --ref g.png --cand r.png --profile v34 --policy strict --iterations 10 --seed 7
  qafax run --ref g.txt --cand r.txt --profile v34 --policy default --require-ocr`,
	RunE: runRun,
}

var (
	runRefFlag            string
	runCandFlag           string
	runProfileFlag        string
	runPolicyFlag         string
	runIterationsFlag     int
	runSeedFlag           int64
	runIDFlag             string
	runOutputFlag         string
	runRequireOCRFlag     bool
	runRequireBarcodeFlag bool
	runNoPromptFlag       bool
	runNoDbFlag           bool
)

func init() {
	RunCmd.Flags().StringVar(&runRefFlag, "ref", "", "Reference document path (required)")
	RunCmd.Flags().StringVar(&runCandFlag, "cand", "", "Candidate document path (required)")
	RunCmd.Flags().StringVar(&runProfileFlag, "profile", "", "Fax capability profile name (required)")
	RunCmd.Flags().StringVar(&runPolicyFlag, "policy", "default", "Verification policy name")
	RunCmd.Flags().IntVar(&runIterationsFlag, "iterations", 1, "Number of simulate-and-verify cycles")
	RunCmd.Flags().Int64Var(&runSeedFlag, "seed", 0, "Base RNG seed; iteration i uses seed+i")
	RunCmd.Flags().StringVar(&runIDFlag, "run-id", "", "Run identifier (generated when empty)")
	RunCmd.Flags().StringVar(&runOutputFlag, "output", "", "Report output directory (overrides config)")
	RunCmd.Flags().BoolVar(&runRequireOCRFlag, "require-ocr", false, "Force OCR accuracy to be required")
	RunCmd.Flags().BoolVar(&runRequireBarcodeFlag, "require-barcode", false, "Force barcode markers to be required")
	RunCmd.Flags().BoolVar(&runNoPromptFlag, "no-prompt", false, "Never prompt for manual page alignment")
	RunCmd.Flags().BoolVar(&runNoDbFlag, "no-db", false, "Skip run history persistence")
	RunCmd.MarkFlagRequired("ref")
	RunCmd.MarkFlagRequired("cand")
	RunCmd.MarkFlagRequired("profile")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	configs := config.NewService(cfg.Configs.Root)
	var runner *run.Runner
	if runNoDbFlag {
		runner = run.NewRunner(configs, nil)
	} else {
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()
		runner = run.NewRunner(configs, db.NewRunStore(database))
	}

	opts := run.Options{
		RunID:          runIDFlag,
		ProfileName:    runProfileFlag,
		PolicyName:     runPolicyFlag,
		Reference:      runRefFlag,
		Candidate:      runCandFlag,
		Iterations:     runIterationsFlag,
		Seed:           runSeedFlag,
		RequireOCR:     runRequireOCRFlag,
		RequireBarcode: runRequireBarcodeFlag,
		Workers:        cfg.Verify.Workers,
		LowConfidence:  cfg.Verify.LowConfidenceThreshold,
	}
	if !runNoPromptFlag && isInteractive() {
		opts.Resolver = interactiveResolver()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		return err
	}

	outputDir := cfg.Output.Dir
	if runOutputFlag != "" {
		outputDir = runOutputFlag
	}
	builder, err := report.NewBuilder(outputDir)
	if err != nil {
		return err
	}
	runDir, err := builder.WriteAll(result, runner.Telemetry().Events())
	if err != nil {
		return err
	}
	if err := runner.Telemetry().FlushToFile(filepath.Join(runDir, "telemetry.json")); err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(runSummaryOutput(result, runDir))
	}
	renderRunResult(result, runDir)
	return nil
}

func runSummaryOutput(result *run.Result, runDir string) map[string]interface{} {
	iterations := make([]map[string]interface{}, 0, len(result.Iterations))
	for _, iteration := range result.Iterations {
		iterations = append(iterations, map[string]interface{}{
			"iteration":      iteration.Index,
			"verdict":        iteration.Verification.Verdict,
			"bitrate":        iteration.Simulation.FinalBitrate,
			"fallback_steps": iteration.Simulation.FallbackSteps,
			"metrics":        iteration.Verification.Metrics,
			"warnings":       iteration.Verification.Warnings,
		})
	}
	return map[string]interface{}{
		"run_id":     result.RunID,
		"verdict":    result.Verdict,
		"profile":    result.Profile.Name,
		"policy":     result.PolicyName,
		"seed":       result.Options.Seed,
		"report_dir": runDir,
		"iterations": iterations,
	}
}

func renderRunResult(result *run.Result, runDir string) {
	pterm.Printf("Run %s  profile=%s policy=%s seed=%d\n\n",
		pterm.LightCyan(result.RunID), result.Profile.Name, result.PolicyName, result.Options.Seed)

	for _, iteration := range result.Iterations {
		pterm.Printf("Iteration %d  verdict=%s bitrate=%d fallback_steps=%d\n",
			iteration.Index,
			verdictLabel(iteration.Verification.Verdict),
			iteration.Simulation.FinalBitrate,
			iteration.Simulation.FallbackSteps)
		renderMetricsTable(iteration.Verification.Metrics)
		for _, warning := range iteration.Verification.Warnings {
			pterm.Warning.Println(warning)
		}
	}

	pterm.Printf("Reports written to %s\n", runDir)
	switch result.Verdict {
	case metrics.StatusPass:
		pterm.Success.Printf("Run verdict: %s\n", result.Verdict)
	case metrics.StatusWarn:
		pterm.Warning.Printf("Run verdict: %s\n", result.Verdict)
	default:
		pterm.Error.Printf("Run verdict: %s\n", result.Verdict)
	}
}

func renderMetricsTable(results []metrics.Result) {
	data := pterm.TableData{{"Metric", "Value", "Status", "Detail"}}
	for _, result := range results {
		value := ""
		if result.Value != nil {
			value = fmt.Sprintf("%.4g", *result.Value)
		}
		data = append(data, []string{result.Name, value, string(result.Status), result.Detail})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Println()
}

func verdictLabel(status metrics.Status) string {
	switch status {
	case metrics.StatusPass:
		return pterm.Green(string(status))
	case metrics.StatusWarn:
		return pterm.Yellow(string(status))
	case metrics.StatusFail:
		return pterm.Red(string(status))
	default:
		return string(status)
	}
}
