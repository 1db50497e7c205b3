package usecase

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/V4T54L/safelog/internal/adapter/console"
	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/adapter/repository/logfile"
	"github.com/V4T54L/safelog/internal/pkg/config"
	"github.com/V4T54L/safelog/internal/pkg/logger"
)

// Build wires an AppLogger from configuration: a FileSink under cfg.LogDir,
// a retention Sweeper that never touches files the sink holds open, and a
// colored console. m may be nil.
func Build(cfg *config.Config, ops *slog.Logger, m *metrics.LoggerMetrics) (*AppLogger, error) {
	appCfg := Config{
		Environment:    cfg.Environment,
		ConsoleEnabled: cfg.ConsoleEnabled(),
		FileEnabled:    cfg.FileEnabled,
	}

	var sweeperOpts []logfile.SweeperOption
	if m != nil {
		sweeperOpts = append(sweeperOpts, logfile.WithSweeperMetrics(m))
	}

	if !cfg.FileEnabled {
		sweeper := logfile.NewSweeper(cfg.LogDir, ops, sweeperOpts...)
		return NewAppLogger(appCfg, nil, console.New(), sweeper, ops, m), nil
	}

	policy, err := logfile.ParseBackpressurePolicy(cfg.BackpressurePolicy)
	if err != nil {
		return nil, err
	}
	sink, err := logfile.NewFileSink(cfg.LogDir, ops, logfile.Options{
		QueueSize: cfg.QueueSize,
		Policy:    policy,
		Metrics:   m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file sink: %w", err)
	}

	sweeperOpts = append(sweeperOpts, logfile.WithActiveFiles(sink.OpenFiles))
	sweeper := logfile.NewSweeper(cfg.LogDir, ops, sweeperOpts...)

	return NewAppLogger(appCfg, sink, console.New(), sweeper, ops, m), nil
}

var (
	defaultOnce   sync.Once
	defaultMu     sync.RWMutex
	defaultLogger *AppLogger
)

// Default returns the process-wide logger, building it from the environment
// on first use. If the log directory cannot be created the logger falls back
// to console output only.
func Default() *AppLogger {
	defaultOnce.Do(func() {
		defaultMu.Lock()
		defer defaultMu.Unlock()
		if defaultLogger == nil {
			defaultLogger = buildDefault()
		}
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *AppLogger) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

func buildDefault() *AppLogger {
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{
			Environment:        config.EnvDevelopment,
			LogLevel:           "info",
			LogDir:             "logs",
			FileEnabled:        true,
			ConsoleMode:        "auto",
			QueueSize:          logfile.DefaultQueueSize,
			BackpressurePolicy: "drop",
			RetentionDays:      logfile.DefaultRetentionDays,
		}
	}
	ops := logger.New(cfg.LogLevel)
	if err != nil {
		ops.Warn("Invalid logger configuration, using defaults", "error", err)
	}

	l, err := Build(cfg, ops, nil)
	if err != nil {
		ops.Error("Failed to initialise file logging, falling back to console", "error", err)
		appCfg := Config{Environment: cfg.Environment, ConsoleEnabled: true}
		return NewAppLogger(appCfg, nil, console.New(), nil, ops, nil)
	}
	return l
}
