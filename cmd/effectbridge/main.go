// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/effectbridge/bridge"
	"github.com/bureau-foundation/effectbridge/hoststate"
	"github.com/bureau-foundation/effectbridge/lib/config"
	"github.com/bureau-foundation/effectbridge/lib/logging"
	"github.com/bureau-foundation/effectbridge/lib/process"
	"github.com/bureau-foundation/effectbridge/lib/version"
	"github.com/bureau-foundation/effectbridge/supervisor"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath    string
	pluginPath    string
	statePath     string
	sampleRate    float64
	blockSize     int
	blocks        int
	channels      int
	frequency     float64
	parameters    []string
	metricsListen string
	logLevel      string
}

func run() error {
	var opts options
	var showVersion bool

	flagSet := pflag.NewFlagSet("effectbridge", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&opts.pluginPath, "plugin", "", "effect module to load (builtin:<name> or a Go plugin path)")
	flagSet.StringVar(&opts.statePath, "state", "", "state file: restored on start when present, written on exit")
	flagSet.Float64Var(&opts.sampleRate, "sample-rate", 48000, "sample rate in Hz")
	flagSet.IntVar(&opts.blockSize, "block-size", 512, "samples per block")
	flagSet.IntVar(&opts.blocks, "blocks", 100, "number of blocks to process")
	flagSet.IntVar(&opts.channels, "channels", 2, "input and output channel count")
	flagSet.Float64Var(&opts.frequency, "frequency", 440, "test tone frequency in Hz")
	flagSet.StringArrayVar(&opts.parameters, "parameter", nil, "parameter setting index=value, value in [0, 1] (repeatable)")
	flagSet.StringVar(&opts.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (overrides the configuration)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides the configuration)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("effectbridge %s (%s)\n", version.Info(), version.Platform())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if opts.sampleRate <= 0 || opts.blockSize <= 0 || opts.blocks < 0 || opts.channels <= 0 || opts.frequency <= 0 {
		return errors.New("--sample-rate, --block-size, --channels, and --frequency must be positive, --blocks non-negative")
	}
	parameters, err := parseParameters(opts.parameters)
	if err != nil {
		return err
	}

	cfg, err := config.Resolve(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.metricsListen != "" {
		cfg.Metrics.Listen = opts.metricsListen
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *bridge.Metrics
	if cfg.Metrics.Listen != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = bridge.NewMetrics(registry)
		shutdownMetrics := serveMetrics(cfg.Metrics.Listen, registry, logger)
		defer shutdownMetrics()
	}

	processSupervisor := supervisor.New(supervisor.Options{
		WorkerPath:       cfg.Worker.Path,
		WorkerExecutable: cfg.Worker.ExecutableName,
		ConnectTimeout:   cfg.Timeouts.Connect,
		PollInterval:     cfg.Timeouts.PollInterval,
		ShutdownGrace:    cfg.Timeouts.ShutdownGrace,
		Launcher:         &supervisor.ExecLauncher{Env: cfg.Worker.Env, Logger: logger},
		Logger:           logger,
	})
	session, err := bridge.NewSession(bridge.Options{
		Connector:      processSupervisor,
		SendTimeout:    cfg.Timeouts.Send,
		ReceiveTimeout: cfg.Timeouts.Receive,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Connect(ctx); err != nil {
		return err
	}
	logger.Info("worker running", "pid", processSupervisor.PID())

	if err := loadEffect(session, opts, logger); err != nil {
		return err
	}
	for _, setting := range parameters {
		if err := session.SetParameter(setting.index, setting.value); err != nil {
			return fmt.Errorf("setting parameter %d: %w", setting.index, err)
		}
	}
	if err := session.PrepareToPlay(opts.sampleRate, opts.blockSize); err != nil {
		return err
	}

	levels, failed := processTone(ctx, session, opts, logger)
	for ch := range opts.channels {
		logger.Info("output level",
			"channel", ch,
			"peak_dbfs", fmt.Sprintf("%.2f", decibels(levels.peak(ch))),
			"rms_dbfs", fmt.Sprintf("%.2f", decibels(levels.rms(ch))),
		)
	}
	logger.Info("processing finished", "blocks", opts.blocks, "failed_blocks", failed)

	if err := session.ReleaseResources(); err != nil {
		logger.Warn("releasing resources", "error", err)
	}
	if opts.statePath != "" {
		blob, err := session.SaveState()
		if err != nil {
			return err
		}
		if err := hoststate.WriteFile(opts.statePath, blob); err != nil {
			return err
		}
		logger.Info("state saved", "path", opts.statePath, "plugin_path", session.PluginPath())
	}
	return session.Shutdown()
}

// loadEffect restores the state file when one exists, then loads
// --plugin when the state did not supply a module.
func loadEffect(session *bridge.Session, opts options, logger *slog.Logger) error {
	if opts.statePath != "" {
		blob, err := hoststate.ReadFile(opts.statePath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Info("no state file yet", "path", opts.statePath)
		case err != nil:
			return err
		default:
			if err := session.RestoreState(blob); err != nil {
				return fmt.Errorf("restoring %s: %w", opts.statePath, err)
			}
		}
	}
	if opts.pluginPath != "" && session.PluginPath() != opts.pluginPath {
		if err := session.LoadPlugin(opts.pluginPath); err != nil {
			return err
		}
	}
	if session.PluginPath() == "" {
		return errors.New("no effect loaded: pass --plugin or a --state file naming one")
	}
	logger.Info("effect ready", "plugin_path", session.PluginPath())
	return nil
}

// processTone runs the configured number of tone blocks through the
// session, substituting silence for failed blocks. A desynchronized
// session is restarted once per failure.
func processTone(ctx context.Context, session *bridge.Session, opts options, logger *slog.Logger) (*meter, int) {
	inputs := make([][]float32, opts.channels)
	outputs := make([][]float32, opts.channels)
	for ch := range opts.channels {
		inputs[ch] = make([]float32, opts.blockSize)
		outputs[ch] = make([]float32, opts.blockSize)
	}
	tone := newOscillator(opts.frequency, opts.sampleRate, 0.5)
	levels := newMeter(opts.channels)

	failed := 0
	for block := range opts.blocks {
		if ctx.Err() != nil {
			logger.Info("interrupted", "block", block)
			break
		}
		tone.fill(inputs, opts.blockSize)
		if err := session.ProcessAudio(inputs, outputs, opts.blockSize); err != nil {
			failed++
			logger.Warn("block failed, substituting silence", "block", block, "error", err)
			for _, output := range outputs {
				clear(output)
			}
			if session.Desynchronized() {
				if err := session.Restart(ctx); err != nil {
					logger.Error("restart failed", "error", err)
				}
			}
		}
		levels.add(outputs, opts.blockSize)
	}
	return levels, failed
}

// serveMetrics serves registry on address until the returned function
// is called.
func serveMetrics(address string, registry *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "address", address, "error", err)
		}
	}()
	logger.Info("serving metrics", "address", address)
	return func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownContext)
	}
}
