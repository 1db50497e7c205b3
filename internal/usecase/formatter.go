package usecase

import (
	"os"
	"time"

	"github.com/V4T54L/safelog/internal/adapter/pii"
	"github.com/V4T54L/safelog/internal/domain"
)

// Formatter turns a level, message and metadata into a LogEntry.
type Formatter struct {
	environment string
	pid         int
	now         func() time.Time
}

// NewFormatter creates a Formatter stamping entries with the current
// process id and the given environment.
func NewFormatter(environment string) *Formatter {
	return &Formatter{
		environment: environment,
		pid:         os.Getpid(),
		now:         time.Now,
	}
}

// Format captures the clock, redacts a copy of metadata and fills in the
// process fields. The caller's metadata is never modified.
func (f *Formatter) Format(level domain.Level, message string, metadata map[string]any) domain.LogEntry {
	now := f.now().UTC()
	return domain.LogEntry{
		Timestamp:   now.Format(domain.TimestampLayout),
		Level:       level,
		Message:     message,
		Metadata:    pii.SanitizeMap(metadata),
		PID:         f.pid,
		Environment: f.environment,
		Time:        now,
	}
}
