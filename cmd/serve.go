package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sabrinalaillita/fpg-strl/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveTimeout time.Duration
	serveNoRuns  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := activeConfig()
		addr := c.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		runsDir := c.RunsDir
		if serveNoRuns {
			runsDir = ""
		}
		srv := server.New(server.Options{
			RunsDir:        runsDir,
			AllowedOrigins: c.AllowedOrigins,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			Timeout:        serveTimeout,
			Defaults:       c.Params(),
			Load:           c.LoadOptions(),
			Logger:         newLogger(debug),
		})

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.Printf("🚀 Serving fpg API on %s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8001", "listen address (overrides config)")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 2*time.Minute, "per-request mining timeout (0 = none)")
	serveCmd.Flags().BoolVar(&serveNoRuns, "no-runs", false, "disable saving and serving runs")
}
