package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"waypoint/internal/platform/config"
	"waypoint/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "waypoint",
		Short:         "Saved places and location search API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, toml or json)")

	load := func() (*config.Config, error) {
		return config.Load(configFile)
	}

	root.AddCommand(serveCommand(load), migrateCommand(load))
	return root
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(cfg.Log.Format, cfg.Log.Level)
}
