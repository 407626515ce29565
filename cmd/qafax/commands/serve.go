package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/qafax/qafax/config"
	"github.com/qafax/qafax/logger"
	"github.com/qafax/qafax/server"
)

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live telemetry server",
	Long: `Start the HTTP/websocket server that streams run telemetry to
connected clients and serves the latest run summary at /api/summary.

Examples:
  qafax serve
  qafax serve --port 9090`,
	RunE: runServe,
}

var servePortFlag int

func init() {
	ServeCmd.Flags().IntVar(&servePortFlag, "port", 0, "Listen port (defaults to config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	port := cfg.Server.Port
	if servePortFlag > 0 {
		port = servePortFlag
	}

	srv := server.New(fmt.Sprintf(":%d", port), logger.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	pterm.Info.Printf("Telemetry server listening on :%d\n", port)
	pterm.Info.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pterm.Warning.Printf("Shutdown error: %v\n", err)
		return err
	}
	pterm.Success.Println("Server stopped cleanly")
	return nil
}
