package logfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/domain"
)

// DefaultRetentionDays is used when a sweep is asked to keep zero or fewer days.
const DefaultRetentionDays = 30

// Sweeper deletes log files whose modification time is older than the
// retention window. Only names accepted by IsLogFile are candidates.
type Sweeper struct {
	dir     string
	logger  *slog.Logger
	now     func() time.Time
	active  func() []string
	dryRun  bool
	metrics *metrics.LoggerMetrics
	remove  func(name string) error
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// WithActiveFiles registers a source of file names that must never be
// deleted, typically FileSink.OpenFiles.
func WithActiveFiles(active func() []string) SweeperOption {
	return func(s *Sweeper) { s.active = active }
}

// WithDryRun reports what would be deleted without deleting anything.
func WithDryRun(dryRun bool) SweeperOption {
	return func(s *Sweeper) { s.dryRun = dryRun }
}

// WithSweeperMetrics records deletions and failures.
func WithSweeperMetrics(m *metrics.LoggerMetrics) SweeperOption {
	return func(s *Sweeper) { s.metrics = m }
}

// NewSweeper creates a Sweeper for dir.
func NewSweeper(dir string, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		dir:    dir,
		logger: logger.With("component", "retention_sweeper"),
		now:    time.Now,
		remove: os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep deletes every log file modified strictly before now minus
// daysToKeep days. A directory read failure aborts the sweep and is
// returned; per-file failures are collected in the result and the sweep
// moves on.
func (s *Sweeper) Sweep(ctx context.Context, daysToKeep int) (domain.SweepResult, error) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultRetentionDays
	}
	result := domain.SweepResult{
		Cutoff: s.now().Add(-time.Duration(daysToKeep) * 24 * time.Hour),
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return result, fmt.Errorf("failed to read log directory %s: %w", s.dir, err)
	}

	protected := make(map[string]struct{})
	if s.active != nil {
		for _, name := range s.active() {
			protected[name] = struct{}{}
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := entry.Name()
		if entry.IsDir() || !IsLogFile(name) {
			continue
		}
		result.Scanned++

		if _, open := protected[name]; open {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.recordFailure(&result, fmt.Errorf("failed to stat %s: %w", name, err))
			continue
		}
		if !info.ModTime().Before(result.Cutoff) {
			continue
		}

		if !s.dryRun {
			if err := s.remove(filepath.Join(s.dir, name)); err != nil {
				s.recordFailure(&result, fmt.Errorf("failed to delete %s: %w", name, err))
				continue
			}
			if s.metrics != nil {
				s.metrics.SweepDeletedTotal.Inc()
			}
		}
		result.Deleted = append(result.Deleted, name)
		s.logger.Debug("Deleted old log file", "file", name, "mod_time", info.ModTime(), "dry_run", s.dryRun)
	}

	return result, nil
}

func (s *Sweeper) recordFailure(result *domain.SweepResult, err error) {
	s.logger.Warn("Retention sweep skipped a file", "error", err)
	if s.metrics != nil {
		s.metrics.SweepFailuresTotal.Inc()
	}
	result.Errors = append(result.Errors, err)
}
