// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/effectbridge/lib/config"
	"github.com/bureau-foundation/effectbridge/lib/logging"
	"github.com/bureau-foundation/effectbridge/lib/process"
	"github.com/bureau-foundation/effectbridge/lib/version"
	"github.com/bureau-foundation/effectbridge/worker"
)

const usageText = "effectbridge-worker [flags] <host-to-worker-pipe> <worker-to-host-pipe>"

// errUsage marks command-line mistakes, which exit with ExitUsage.
var errUsage = errors.New("usage")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			process.Usage(os.Stderr, usageText)
		}
		process.Fatal(err)
	}
}

func run() error {
	var configPath, logLevel string
	var showVersion bool

	flagSet := pflag.NewFlagSet("effectbridge-worker", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", then built-in defaults)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides the configuration)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s\n\nFlags:\n", usageText)
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if showVersion {
		fmt.Printf("effectbridge-worker %s (%s)\n", version.Info(), version.Platform())
		return nil
	}

	args := flagSet.Args()
	if len(args) != 2 {
		return fmt.Errorf("%w: expected 2 pipe paths, got %d", errUsage, len(args))
	}

	cfg, err := config.Resolve(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	logger = logger.With("pid", os.Getpid())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("worker starting", "version", version.Info(), "platform", version.Platform())
	err = worker.Serve(ctx, args[0], args[1], worker.Options{
		ControlTimeout: cfg.Timeouts.Send,
		AudioTimeout:   cfg.Timeouts.Receive,
		Logger:         logger,
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("worker interrupted")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("worker exiting")
	return nil
}
