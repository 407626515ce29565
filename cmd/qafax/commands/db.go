package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/display"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the run history database",
	Long: `Inspect persisted QA runs.

Examples:
  qafax db stats               # Run counts and verdict breakdown
  qafax db recent --limit 10   # Most recent runs
  qafax db show <run-id>       # One run with its iterations`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run counts and verdict breakdown",
	RunE:  runDbStats,
}

var dbRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent runs",
	RunE:  runDbRecent,
}

var dbShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its iterations",
	Args:  cobra.ExactArgs(1),
	RunE:  runDbShow,
}

var dbRecentLimitFlag int

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	DbCmd.AddCommand(dbRecentCmd)
	DbCmd.AddCommand(dbShowCmd)
	dbRecentCmd.Flags().IntVar(&dbRecentLimitFlag, "limit", 20, "Number of runs to show")
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, database, store, err := loadConfigAndStore()
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]interface{}{
			"database":         cfg.Database.Path,
			"total_runs":       stats.TotalRuns,
			"total_iterations": stats.TotalIterations,
			"verdicts":         stats.Verdicts,
		})
	}

	pterm.Printf("Database:         %s\n", cfg.Database.Path)
	pterm.Printf("Total runs:       %d\n", stats.TotalRuns)
	pterm.Printf("Total iterations: %d\n", stats.TotalIterations)
	for _, verdict := range []string{"PASS", "WARN", "FAIL"} {
		if count, ok := stats.Verdicts[verdict]; ok {
			pterm.Printf("  %s: %d\n", verdict, count)
		}
	}
	return nil
}

func runDbRecent(cmd *cobra.Command, args []string) error {
	_, database, store, err := loadConfigAndStore()
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := store.RecentRuns(dbRecentLimitFlag)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(runs)
	}
	if len(runs) == 0 {
		pterm.Info.Println("No runs recorded yet")
		return nil
	}

	data := pterm.TableData{{"Run", "Profile", "Policy", "Iterations", "Verdict", "Started"}}
	for _, record := range runs {
		data = append(data, []string{
			record.ID,
			record.ProfileName,
			record.PolicyName,
			pterm.Sprintf("%d", record.Iterations),
			record.Verdict,
			record.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil
}

func runDbShow(cmd *cobra.Command, args []string) error {
	_, database, store, err := loadConfigAndStore()
	if err != nil {
		return err
	}
	defer database.Close()

	record, err := store.GetRun(args[0])
	if err != nil {
		return err
	}
	iterations, err := store.Iterations(record.ID)
	if err != nil {
		return err
	}

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(map[string]interface{}{
			"run":        record,
			"iterations": iterations,
		})
	}

	pterm.Printf("Run %s\n", pterm.LightCyan(record.ID))
	pterm.Printf("  profile:   %s (%s)\n", record.ProfileName, hashPrefix(record.ProfileHash))
	pterm.Printf("  policy:    %s (%s)\n", record.PolicyName, hashPrefix(record.PolicyHash))
	pterm.Printf("  reference: %s\n", record.ReferencePath)
	pterm.Printf("  candidate: %s\n", record.CandidatePath)
	pterm.Printf("  seed:      %d\n", record.BaseSeed)
	pterm.Printf("  verdict:   %s\n\n", record.Verdict)

	data := pterm.TableData{{"Seq", "Seed", "Bitrate", "Fallbacks", "Verdict", "Duration"}}
	for _, iter := range iterations {
		data = append(data, []string{
			pterm.Sprintf("%d", iter.Seq),
			pterm.Sprintf("%d", iter.Seed),
			pterm.Sprintf("%d", iter.FinalBitrate),
			pterm.Sprintf("%d", iter.FallbackSteps),
			iter.Verdict,
			pterm.Sprintf("%dms", iter.DurationMS),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	return nil
}

func hashPrefix(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}
