package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/etherpipe/internal/exchange"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/server"
	"github.com/GriffinCanCode/etherpipe/internal/notify"
	"github.com/GriffinCanCode/etherpipe/internal/pipeline"
	"github.com/GriffinCanCode/etherpipe/internal/shared/id"
)

func main() {
	configPath := flag.String("config", "", "YAML or TOML config file; replaces environment configuration")
	endpoint := flag.String("endpoint", "", "Exchange endpoint, overrides configuration")
	reportPath := flag.String("report", "", "Write the JSON run report to this path, or - for stdout")
	flag.Parse()

	if err := run(*configPath, *endpoint, *reportPath); err != nil {
		fmt.Fprintf(os.Stderr, "etherpipe: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func run(configPath, endpoint, reportPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if endpoint != "" {
		cfg.Exchange.Endpoint = endpoint
	}

	base, err := logging.New(cfg.Logging.Logger())
	if err != nil {
		return fmt.Errorf("invalid log configuration: %w", err)
	}
	defer base.Sync() //nolint:errcheck

	// The pipeline tags its own loggers with the run id; base stays untagged.
	runID := id.NewRunID()
	logger := base.ForRun(runID.String())

	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		logger.Error("Invalid pipeline configuration", zap.Error(err))
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	var status *server.Server
	if cfg.Monitor.Addr != "" {
		status = server.NewServer(metrics, reg, logger.ForStage(logging.StageStatus, 0))
		if err := status.Start(cfg.Monitor.Addr); err != nil {
			logger.Error("Failed to start status server", zap.Error(err))
			return err
		}
		defer status.Close()
	}

	// Signals cancel in-flight exchanges only; every stage still meets its quota.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []exchange.Option{
		exchange.WithTimeout(cfg.Exchange.Timeout()),
		exchange.WithRateLimit(cfg.Exchange.RateLimitRPS, cfg.Exchange.RateLimitBurst),
		exchange.WithLogger(logger.ForStage(logging.StageExchange, 0).Logger),
	}
	if !cfg.Exchange.Breaker {
		opts = append(opts, exchange.WithoutGuard())
	}
	client, err := exchange.Dial(ctx, cfg.Exchange.Endpoint, opts...)
	if err != nil {
		logger.Error("Failed to connect to echo service", zap.String("endpoint", cfg.Exchange.Endpoint), zap.Error(err))
		return fmt.Errorf("%w: %w", pipeline.ErrInitialization, err)
	}
	defer client.Close()

	sink, err := notify.OpenFile(cfg.Notify.TraceFile)
	if err != nil {
		logger.Error("Failed to open trace file", zap.String("path", cfg.Notify.TraceFile), zap.Error(err))
		return fmt.Errorf("%w: %w", pipeline.ErrInitialization, err)
	}

	p, err := pipeline.New(pcfg, client, sink,
		pipeline.WithLogger(base.Logger),
		pipeline.WithObserver(metrics),
		pipeline.WithNotifyBuffer(cfg.Notify.Buffer),
		pipeline.WithRunID(runID),
	)
	if err != nil {
		sink.Close()
		logger.Error("Failed to build pipeline", zap.Error(err))
		return err
	}

	if status != nil {
		status.SetState("running")
	}
	report, runErr := p.Run(ctx)
	if err := sink.Close(); err != nil {
		logger.Warn("Failed to close trace file", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}
	if status != nil {
		status.SetReport(report)
	}

	logger.Info("Run complete",
		zap.String("trace_file", sink.Path()),
		zap.Duration("elapsed", report.Elapsed()),
		zap.Uint64("notifications", report.Notifications.Delivered),
		zap.Uint64("dropped", report.Notifications.Dropped),
	)

	if err := writeReport(report, reportPath); err != nil {
		return err
	}
	if status != nil {
		status.Wait(ctx)
	}
	return nil
}

func writeReport(r *pipeline.Report, path string) error {
	switch path {
	case "":
		return nil
	case "-":
		return r.WriteJSON(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
