package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qafax/qafax/cmd/qafax/commands"
	"github.com/qafax/qafax/logger"
)

var rootCmd = &cobra.Command{
	Use:   "qafax",
	Short: "qafax - Fax/print output verification and negotiation QA",
	Long: `qafax - Deterministic fax negotiation simulation and output verification.

qafax simulates T.30-style channel negotiation against a capability
profile, verifies received output against a reference document, and
scores the result against a verification policy.

Available commands:
  run       - Simulate, verify, and report a full QA run
  simulate  - Print a negotiation trace for a profile and seed
  verify    - Verify a candidate against a reference without simulating
  profiles  - List available fax capability profiles
  db        - Inspect the run history database
  watch     - Capture candidate documents landing in a directory
  serve     - Start the live telemetry server

Examples:
  qafax run --ref golden.txt --cand received.txt --profile v34 --policy default
  qafax simulate --profile v34 --seed 42
  qafax db recent --limit 10
  qafax watch /mnt/fax-inbox --pattern '*.png'`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output results as JSON")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.SimulateCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.ProfilesCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
