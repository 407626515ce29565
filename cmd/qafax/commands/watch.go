package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/ingest"
)

// WatchCmd represents the watch command
var WatchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Capture candidate documents landing in a directory",
	Long: `Watch a directory (typically an SMB share where the device drops
received faxes) and report each file once it has finished arriving.
Files are hashed at capture time so a later verification can prove it
ran against the bytes that landed.

Examples:
  qafax watch /mnt/fax-inbox
  qafax watch /mnt/fax-inbox --pattern '*.png' --stable-polls 5`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchPatternFlag     string
	watchStablePollsFlag int
	watchIntervalFlag    float64
)

func init() {
	WatchCmd.Flags().StringVar(&watchPatternFlag, "pattern", "", "Filename glob (defaults to config)")
	WatchCmd.Flags().IntVar(&watchStablePollsFlag, "stable-polls", 0, "Consecutive equal sizes before capture (defaults to config)")
	WatchCmd.Flags().Float64Var(&watchIntervalFlag, "interval", 0, "Poll interval in seconds (defaults to config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := ingest.Options{
		Pattern:     cfg.Ingest.Pattern,
		StablePolls: cfg.Ingest.StablePolls,
		Interval:    time.Duration(cfg.Ingest.IntervalSec * float64(time.Second)),
	}
	if watchPatternFlag != "" {
		opts.Pattern = watchPatternFlag
	}
	if watchStablePollsFlag > 0 {
		opts.StablePolls = watchStablePollsFlag
	}
	if watchIntervalFlag > 0 {
		opts.Interval = time.Duration(watchIntervalFlag * float64(time.Second))
	}

	watcher, err := ingest.NewWatcher(args[0], opts)
	if err != nil {
		return err
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	watcher.Start(ctx)

	pterm.Info.Printf("Watching %s (pattern %s)\n", args[0], opts.Pattern)
	for {
		select {
		case <-ctx.Done():
			pterm.Info.Println("Watch stopped")
			return nil
		case artifact, ok := <-watcher.Artifacts():
			if !ok {
				return nil
			}
			pterm.Success.Printf("%s  %d bytes  sha256=%s\n",
				artifact.Path, artifact.Size, artifact.SHA256[:12])
		}
	}
}
