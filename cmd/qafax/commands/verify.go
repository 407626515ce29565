package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/display"
	"github.com/qafax/qafax/verify"
)

// VerifyCmd represents the verify command
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a candidate against a reference without simulating",
	Long: `Run the verification pipeline once: load both documents, align
pages, compute metrics, and derive a verdict under the named policy.
No negotiation simulation, no persistence, no reports.

Examples:
  qafax verify --ref golden.txt --cand received.txt
  qafax verify --ref g.png --cand r.png --policy strict --json`,
	RunE: runVerify,
}

var (
	verifyRefFlag      string
	verifyCandFlag     string
	verifyPolicyFlag   string
	verifyNoPromptFlag bool
)

func init() {
	VerifyCmd.Flags().StringVar(&verifyRefFlag, "ref", "", "Reference document path (required)")
	VerifyCmd.Flags().StringVar(&verifyCandFlag, "cand", "", "Candidate document path (required)")
	VerifyCmd.Flags().StringVar(&verifyPolicyFlag, "policy", "default", "Verification policy name")
	VerifyCmd.Flags().BoolVar(&verifyNoPromptFlag, "no-prompt", false, "Never prompt for manual page alignment")
	VerifyCmd.MarkFlagRequired("ref")
	VerifyCmd.MarkFlagRequired("cand")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loaded, err := config.NewService(cfg.Configs.Root).LoadPolicy(verifyPolicyFlag)
	if err != nil {
		return err
	}
	policy, err := verify.ParsePolicy(loaded.Payload, loaded.SHA256)
	if err != nil {
		return err
	}

	opts := []verify.Option{
		verify.WithWorkers(cfg.Verify.Workers),
		verify.WithLowConfidenceThreshold(cfg.Verify.LowConfidenceThreshold),
	}
	if !verifyNoPromptFlag && isInteractive() {
		opts = append(opts, verify.WithResolver(interactiveResolver()))
	}

	summary, err := verify.NewPipeline(policy, opts...).Verify(verifyRefFlag, verifyCandFlag, nil)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]interface{}{
			"verdict":     summary.Verdict,
			"policy_hash": summary.PolicyHash,
			"metrics":     summary.Metrics,
			"warnings":    summary.Warnings,
		})
	}

	pterm.Printf("Verdict: %s  (policy %s)\n\n", verdictLabel(summary.Verdict), verifyPolicyFlag)
	renderMetricsTable(summary.Metrics)
	for _, warning := range summary.Warnings {
		pterm.Warning.Println(warning)
	}
	return nil
}
