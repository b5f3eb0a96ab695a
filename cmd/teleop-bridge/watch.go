package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"teleop-bridge/internal/watch"
)

var watchURL string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live console for a running bridge",
	Long:  "watch subscribes to a bridge's telemetry websocket and renders link health, mode state, and motion in a terminal UI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchURL == "" {
			return fmt.Errorf("missing --url")
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return watch.Run(ctx, watchURL)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://127.0.0.1:8765/telemetry", "Telemetry websocket URL")
}
