package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	serverrun "github.com/ggarber/rtcstats-server/internal/cmd/server"
	cfgpkg "github.com/ggarber/rtcstats-server/internal/config"
	pebblestore "github.com/ggarber/rtcstats-server/internal/storage/pebble"
	logpkg "github.com/ggarber/rtcstats-server/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect RTCSTATS_LOG_LEVEL for CLI and server start output
	level := os.Getenv("RTCSTATS_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "rtcstats-server",
		Short: "rtcstats collection server",
		Long:  "rtcstats-server ingests WebRTC telemetry sessions and runs bounded feature extraction over them.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the ingest server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)

			// Flags override file and environment.
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
			}
			if cmd.Flags().Changed("spool-dir") {
				cfg.SpoolDir, _ = cmd.Flags().GetString("spool-dir")
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr, _ = cmd.Flags().GetString("http")
			}
			if cmd.Flags().Changed("metrics") {
				cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics")
			}
			if cmd.Flags().Changed("capacity") {
				cfg.Capacity, _ = cmd.Flags().GetInt("capacity")
			}
			if cmd.Flags().Changed("worker-cmd") {
				cfg.WorkerCmd, _ = cmd.Flags().GetString("worker-cmd")
			}
			if cmd.Flags().Changed("geo-endpoint") {
				cfg.GeoEndpoint, _ = cmd.Flags().GetString("geo-endpoint")
			}
			if cmd.Flags().Changed("filter") {
				cfg.EventFilter, _ = cmd.Flags().GetString("filter")
			}

			fsyncMode, _ := cmd.Flags().GetString("fsync")
			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
				_ = os.Setenv("RTCSTATS_LOG_LEVEL", logLevel)
			}
			if logFormat, _ := cmd.Flags().GetString("log-format"); logFormat != "" {
				_ = os.Setenv("RTCSTATS_LOG_FORMAT", logFormat)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:     cfg.DataDir,
				HTTPAddr:    cfg.HTTPAddr,
				MetricsAddr: cfg.MetricsAddr,
				Fsync:       mode,
				Config:      cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to a JSON or YAML config file")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("spool-dir", "", "Spool directory for in-progress dumps (default <data-dir>/spool)")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address (ingest + health)")
	serverStartCmd.Flags().String("metrics", "", "Separate metrics listen address (optional; default exposes /metrics on --http)")
	serverStartCmd.Flags().Int("capacity", 0, "Max concurrent extraction workers (0 = number of CPUs)")
	serverStartCmd.Flags().String("worker-cmd", "", "Extraction worker executable")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().String("geo-endpoint", "", "Base URL of the address location service (empty disables enrichment)")
	serverStartCmd.Flags().String("filter", "", "CEL expression deciding which events are kept")
	serverStartCmd.Flags().String("log-level", os.Getenv("RTCSTATS_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("RTCSTATS_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
