package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/display"
	"github.com/qafax/qafax/fax"
)

// SimulateCmd represents the simulate command
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Print a negotiation trace for a profile and seed",
	Long: `Run the deterministic negotiation simulator once and print the
trace. The same profile and seed always produce the same trace.

Examples:
  qafax simulate --profile v34 --seed 42
  qafax simulate --profile g3-legacy --seed 7 --json`,
	RunE: runSimulate,
}

var (
	simulateProfileFlag string
	simulateSeedFlag    int64
)

func init() {
	SimulateCmd.Flags().StringVar(&simulateProfileFlag, "profile", "", "Fax capability profile name (required)")
	SimulateCmd.Flags().Int64Var(&simulateSeedFlag, "seed", 0, "RNG seed")
	SimulateCmd.MarkFlagRequired("profile")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	loaded, err := config.NewService(cfg.Configs.Root).LoadProfile(simulateProfileFlag)
	if err != nil {
		return err
	}
	profile, err := fax.ParseProfile(loaded.Payload, loaded.SHA256)
	if err != nil {
		return err
	}

	result := fax.NewSimulation(profile, simulateSeedFlag).Run()

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(result)
	}

	pterm.Printf("Profile %s  seed=%d\n\n", pterm.LightCyan(profile.Name), simulateSeedFlag)
	data := pterm.TableData{{"Timestamp", "Phase", "Event", "Detail"}}
	for _, event := range result.Events {
		data = append(data, []string{
			fmt.Sprintf("%.3f", event.Timestamp),
			event.Phase,
			event.Event,
			event.Detail,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Printf("\nFinal bitrate: %d bps  fallback steps: %d\n", result.FinalBitrate, result.FallbackSteps)
	return nil
}
