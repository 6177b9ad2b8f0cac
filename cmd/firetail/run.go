package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FireTail-io/firetail-go-lib/pkg/cli"
	"github.com/FireTail-io/firetail-go-lib/pkg/config"
	"github.com/FireTail-io/firetail-go-lib/pkg/firetail"
	"github.com/FireTail-io/firetail-go-lib/pkg/server"
)

var runFlags struct {
	listenAddress string
	adminAddress  string
	upstream      string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the capturing proxy",
	Long: `Start the capturing reverse proxy in front of an upstream application.

Every exchange is forwarded unchanged to the upstream and captured as a
telemetry record. Records are shipped in batches of up to 10 records or 1 MiB,
and whatever is buffered is shipped on shutdown.

The admin listener serves /health, /ready, /version, /metrics and POST /flush.

When --config names a file, changes to it are picked up without a restart
(capture toggles, exclusions and log level). SIGHUP forces a reload.

Examples:
  # Start with environment configuration only
  FIRETAIL_URL=https://... FIRETAIL_APIKEY=... firetail run --upstream http://127.0.0.1:3000

  # Start with a config file
  firetail run --config /etc/firetail/firetail.yaml

  # Validate config without starting the server
  firetail run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override proxy listen address")
	runCmd.Flags().StringVar(&runFlags.adminAddress, "admin", "", "override admin listen address")
	runCmd.Flags().StringVarP(&runFlags.upstream, "upstream", "u", "", "override upstream URL")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload the config file when it changes")
}

// applyRunFlags overlays command-line overrides and revalidates.
func applyRunFlags(cfg *config.Config) error {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.adminAddress != "" {
		cfg.Server.AdminAddress = runFlags.adminAddress
	}
	if runFlags.upstream != "" {
		cfg.Server.Upstream = runFlags.upstream
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}
	if cfg.Server.Upstream == "" {
		return cli.NewConfigError("server.upstream", "an upstream URL is required (--upstream or server.upstream)")
	}
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	pipeline, err := firetail.New(cfg, firetail.WithVersion(Version))
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	logger := pipeline.Logger()
	slog.SetDefault(logger)

	srv, err := server.NewServer(cfg, pipeline, server.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})
	if err != nil {
		_ = pipeline.Close(context.Background())
		return cli.NewConfigError("server", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if cfgFile != "" {
		startReloaders(ctx, pipeline, logger)
	}

	fmt.Fprintf(out, "firetail %s\n", Version)
	fmt.Fprintf(out, "✓ Shipping to %s\n", cfg.Ingest.URL)
	fmt.Fprintf(out, "✓ Proxying %s -> %s\n", cfg.Server.ListenAddress, cfg.Server.Upstream)
	fmt.Fprintf(out, "✓ Admin endpoints on %s\n", cfg.Server.AdminAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	serveErr := srv.Start(ctx)

	// No exchanges can arrive any more; ship the buffer tail.
	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Delivery.ShutdownGrace+cfg.Delivery.Timeout)
	defer cancel()
	closeErr := pipeline.Close(closeCtx)

	if err := errors.Join(serveErr, closeErr); err != nil {
		logger.Error("shutdown finished with errors", "component", "cli", "error", err)
		return cli.NewCommandError("run", err)
	}
	stats := pipeline.Stats()
	fmt.Fprintf(out, "✓ Stopped (%d batches delivered, %d failed, %d dropped)\n",
		stats.Succeeded, stats.Failed, stats.Dropped)
	return nil
}

// startReloaders applies config file changes detected by the watcher or
// requested with SIGHUP.
func startReloaders(ctx context.Context, p *firetail.Pipeline, logger *slog.Logger) {
	apply := func(cfg *config.Config) {
		p.Apply(cfg)
		logger.Info("configuration applied",
			"component", "cli",
			"capture_enabled", cfg.Capture.Enabled,
			"log_level", cfg.Telemetry.Logging.Level,
		)
	}

	if runFlags.watch {
		watcher, err := config.NewFileWatcher(cfgFile, 0, logger)
		if err != nil {
			logger.Warn("config watcher disabled", "component", "cli", "error", err)
		} else {
			go func() {
				if err := watcher.Watch(ctx, apply); err != nil {
					logger.Warn("config watcher stopped", "component", "cli", "error", err)
				}
			}()
		}
	}

	reload, stopReload := cli.ReloadSignals()
	go func() {
		defer stopReload()
		for {
			select {
			case <-ctx.Done():
				return
			case <-reload:
				cfg, err := config.ReloadConfig(cfgFile)
				if err != nil {
					logger.Error("config reload failed", "component", "cli", "error", err)
					continue
				}
				apply(cfg)
			}
		}
	}()
}
