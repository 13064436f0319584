package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"resizewatch/internal/config"
	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
	"resizewatch/internal/resize"
	"resizewatch/internal/target"
	"resizewatch/internal/version"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, os.LookupEnv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "resizewatch: %v\n", err)
		return exitUsage
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.GetVersionInfo().String())
		return exitOK
	}

	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(logging.DefaultBufferSize), cfg.LogLevel, stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)
	stopSignals := watchShutdownSignals(logger, cancel, signalCh)
	defer stopSignals()

	if err := serve(ctx, cfg, logger, metrics.Default); err != nil {
		logger.Error("resizewatch stopped", map[string]string{"error": err.Error()})
		return exitFailure
	}
	return exitOK
}

// serve watches the configured target until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, logger *logging.Logger, registry *metrics.Registry) error {
	observed, closeTarget, err := openTarget(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeTarget(); err != nil {
			logger.Warn("close target failed", map[string]string{"error": err.Error()})
		}
	}()

	watcher, err := resize.New(ctx, observed, resize.Options{
		Name:         cfg.Target,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
		Registry:     registry,
		HistorySize:  cfg.HistorySize,
		ErrorHandler: func(err error) {
			var readErr *resize.TargetReadError
			if errors.As(err, &readErr) {
				logger.Debug("tick skipped", map[string]string{"dimension": readErr.Dimension.String()})
			}
		},
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if _, err := watcher.OnResize(func(w *resize.Watcher) {
		logger.Info("resize detected", sampleFields(w.Sample()))
	}); err != nil {
		return err
	}

	fields := sampleFields(watcher.Sample())
	fields["target"] = cfg.Target
	fields["poll_interval"] = cfg.PollInterval.String()
	logger.Info("resizewatch started", fields)

	if cfg.ListenAddr == "" {
		<-ctx.Done()
		return nil
	}
	return runHTTPServer(ctx, cfg, watcher, registry, logger)
}

func openTarget(cfg config.Config, logger *logging.Logger) (resize.Target, func() error, error) {
	switch cfg.Target {
	case config.TargetFile:
		fileTarget, err := target.OpenFile(cfg.GeometryFile, target.FileOptions{Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("open geometry file: %w", err)
		}
		return fileTarget, fileTarget.Close, nil
	case config.TargetTerminal:
		terminal, err := target.NewTerminal(os.Stdin)
		if err != nil {
			return nil, nil, err
		}
		return terminal, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown target %q", config.ErrInvalidConfig, cfg.Target)
	}
}

func sampleFields(sample resize.Sample) map[string]string {
	fields := make(map[string]string, len(resize.Dimensions))
	for name, value := range sample.Map() {
		fields[name] = strconv.Itoa(value)
	}
	return fields
}
