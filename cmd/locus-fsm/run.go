package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Versifine/locus-statemachine/internal/config"
	"github.com/Versifine/locus-statemachine/internal/debug"
	"github.com/Versifine/locus-statemachine/internal/logger"
	"github.com/Versifine/locus-statemachine/internal/metrics"
	"github.com/Versifine/locus-statemachine/internal/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the follow simulation",
	Long: `Runs the idle -> find closest player -> follow loop on a flat test world
until the tick budget is spent or the process is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("ticks") {
			cfg.Sim.Ticks, _ = cmd.Flags().GetInt("ticks")
		}
		if cmd.Flags().Changed("listen") {
			cfg.Debug.Listen, _ = cmd.Flags().GetString("listen")
		}

		logger.Init(logger.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			File:   cfg.Logging.File,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runSim(ctx, cfg)
	},
}

func init() {
	runCmd.Flags().Int("ticks", 0, "Override sim.ticks")
	runCmd.Flags().String("listen", "", "Serve /status and /metrics on this address, e.g. :9100")
	rootCmd.AddCommand(runCmd)
}

// loadConfig falls back to defaults when the file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Config file not found, using defaults", "path", path)
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func runSim(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s, err := sim.New(cfg,
		sim.WithLogger(logger.L()),
		sim.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}

	log := logger.Component("cli")
	var serve func(context.Context) error
	if cfg.Debug.Listen != "" {
		log.Info("Debug endpoints enabled", "addr", cfg.Debug.Listen, "paths", "/status /metrics /healthz")
		srv := debug.NewServer(cfg.Debug.Listen, debug.NewHandler(s.Status, reg))
		serve = srv.Start
	}

	log.Info("Simulation starting", "ticks", cfg.Sim.Ticks, "tick_ms", cfg.Sim.TickMs, "follow_distance", cfg.Follow.Distance)
	return runUntilDone(ctx, s.Run, serve)
}

// runUntilDone runs the simulation alongside an optional server. Whichever
// stops first stops the other; the call returns only after run has returned.
func runUntilDone(ctx context.Context, run, serve func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- run(ctx)
	}()

	if serve == nil {
		return <-runErr
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- serve(ctx)
	}()

	select {
	case err := <-runErr:
		cancel()
		if serr := <-serverErr; serr != nil && err == nil {
			err = serr
		}
		return err
	case err := <-serverErr:
		cancel()
		if rerr := <-runErr; err == nil {
			err = rerr
		}
		return err
	}
}
