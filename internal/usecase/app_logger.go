package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/adapter/pii"
	"github.com/V4T54L/safelog/internal/adapter/repository/logfile"
	"github.com/V4T54L/safelog/internal/domain"
)

const (
	userActionPrefix    = "User Action: "
	securityEventPrefix = "Security Event: "
	anonymousUser       = "anonymous"
)

// ErrNoSweeper is returned by Sweep when the logger has no retention sweeper.
var ErrNoSweeper = errors.New("no retention sweeper configured")

// Config controls how an AppLogger routes entries.
type Config struct {
	Environment    string
	ConsoleEnabled bool
	FileEnabled    bool
}

// AppLogger is the application-facing logging facade. It formats and
// redacts entries, echoes them to the console and fans them out to the
// daily log files.
type AppLogger struct {
	cfg       Config
	formatter *Formatter
	writer    domain.EntryWriter
	console   domain.ConsoleSink
	sweeper   domain.LogSweeper
	logger    *slog.Logger
	metrics   *metrics.LoggerMetrics
}

// NewAppLogger creates a new AppLogger. writer, console and sweeper may be
// nil to disable the corresponding output.
func NewAppLogger(cfg Config, writer domain.EntryWriter, console domain.ConsoleSink, sweeper domain.LogSweeper, logger *slog.Logger, m *metrics.LoggerMetrics) *AppLogger {
	return &AppLogger{
		cfg:       cfg,
		formatter: NewFormatter(cfg.Environment),
		writer:    writer,
		console:   console,
		sweeper:   sweeper,
		logger:    logger.With("component", "app_logger"),
		metrics:   m,
	}
}

func (l *AppLogger) Error(message string, metadata map[string]any) {
	l.log(domain.LevelError, message, metadata)
}

func (l *AppLogger) Warn(message string, metadata map[string]any) {
	l.log(domain.LevelWarn, message, metadata)
}

func (l *AppLogger) Info(message string, metadata map[string]any) {
	l.log(domain.LevelInfo, message, metadata)
}

// Debug logs only in the development environment.
func (l *AppLogger) Debug(message string, metadata map[string]any) {
	l.log(domain.LevelDebug, message, metadata)
}

// Log dispatches to the method for level.
func (l *AppLogger) Log(level domain.Level, message string, metadata map[string]any) {
	l.log(level, message, metadata)
}

// LogUserAction records an action performed by a user. A nil or empty
// userID is logged as "anonymous".
func (l *AppLogger) LogUserAction(userID any, action string, metadata map[string]any) {
	meta := applyPrivacyTransforms(metadata)
	meta["userId"] = userIDString(userID)
	l.log(domain.LevelInfo, userActionPrefix+action, meta)
}

// LogSecurityEvent writes a WARN entry to the security file and through the
// regular WARN path, so the event lands in the general, warn and security
// files.
func (l *AppLogger) LogSecurityEvent(event string, metadata map[string]any) {
	entry, ok := l.format(domain.LevelWarn, securityEventPrefix+event, applyPrivacyTransforms(metadata))
	if !ok {
		return
	}
	if l.cfg.FileEnabled && l.writer != nil {
		l.writer.Write(entry, logfile.SecurityFile(entry.Date()))
	}
	l.emit(entry)
}

// MaskIP keeps the first three parts of an IPv4 address.
func (l *AppLogger) MaskIP(ip string) string {
	masked, _ := pii.MaskIP(ip)
	return masked
}

// CleanOldLogs deletes log files older than daysToKeep days in the
// background. Failures and deletions are logged through the facade itself.
func (l *AppLogger) CleanOldLogs(daysToKeep int) {
	if l.sweeper == nil {
		return
	}
	go func() {
		result, err := l.sweeper.Sweep(context.Background(), daysToKeep)
		if err != nil {
			l.Error("Error cleaning old logs", map[string]any{"error": err.Error()})
			return
		}
		for _, ferr := range result.Errors {
			l.Error("Error cleaning old logs", map[string]any{"error": ferr.Error()})
		}
		for _, name := range result.Deleted {
			l.Info("Deleted old log file: "+name, nil)
		}
	}()
}

// Sweep runs a retention pass synchronously.
func (l *AppLogger) Sweep(ctx context.Context, daysToKeep int) (domain.SweepResult, error) {
	if l.sweeper == nil {
		return domain.SweepResult{}, ErrNoSweeper
	}
	return l.sweeper.Sweep(ctx, daysToKeep)
}

// Flush waits for pending file writes.
func (l *AppLogger) Flush(ctx context.Context) error {
	if l.writer == nil {
		return nil
	}
	return l.writer.Flush(ctx)
}

// Close flushes and releases the file writer.
func (l *AppLogger) Close() error {
	if l.writer == nil {
		return nil
	}
	if err := l.writer.Close(); err != nil {
		return fmt.Errorf("failed to close log writer: %w", err)
	}
	return nil
}

func (l *AppLogger) log(level domain.Level, message string, metadata map[string]any) {
	entry, ok := l.format(level, message, metadata)
	if !ok {
		return
	}
	l.emit(entry)
}

func (l *AppLogger) format(level domain.Level, message string, metadata map[string]any) (domain.LogEntry, bool) {
	if level == domain.LevelDebug && l.cfg.Environment != "development" {
		return domain.LogEntry{}, false
	}
	entry := l.formatter.Format(level, message, metadata)
	if l.metrics != nil {
		l.metrics.EntriesTotal.WithLabelValues(string(level)).Inc()
	}
	return entry, true
}

func (l *AppLogger) emit(entry domain.LogEntry) {
	if l.cfg.ConsoleEnabled && l.console != nil {
		l.console.Print(entry)
	}
	if !l.cfg.FileEnabled || l.writer == nil {
		return
	}

	date := entry.Date()
	l.writer.Write(entry, logfile.GeneralFile(date))
	if name, ok := logfile.LevelFile(entry.Level, date); ok {
		l.writer.Write(entry, name)
	}
}

// applyPrivacyTransforms returns a shallow copy of metadata with the user
// agent truncated and the client IP masked.
func applyPrivacyTransforms(metadata map[string]any) map[string]any {
	meta := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	if ua, ok := meta["userAgent"].(string); ok {
		meta["userAgent"] = pii.TruncateUserAgent(ua)
	}
	if ip, ok := meta["ip"].(string); ok {
		if masked, ok := pii.MaskIP(ip); ok {
			meta["ip"] = masked
		}
	}
	return meta
}

// userIDString renders ids without exponent notation; JSON numbers arrive
// as float64.
func userIDString(userID any) string {
	var s string
	switch v := userID.(type) {
	case nil:
		return anonymousUser
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		s = fmt.Sprint(userID)
	}
	if s == "" {
		return anonymousUser
	}
	return s
}
