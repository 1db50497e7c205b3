package domain

import (
	"context"
	"time"
)

// EntryWriter appends formatted entries to named files. Implementations must
// never block the caller on I/O and never surface write failures to it.
type EntryWriter interface {
	// Write enqueues one entry for appending to filename.
	Write(entry LogEntry, filename string)

	// Flush waits until every entry enqueued before the call is on disk.
	Flush(ctx context.Context) error

	// Close drains pending entries and releases file handles.
	Close() error
}

// ConsoleSink renders entries for humans.
type ConsoleSink interface {
	Print(entry LogEntry)
}

// LogSweeper deletes log files older than a retention window.
type LogSweeper interface {
	Sweep(ctx context.Context, daysToKeep int) (SweepResult, error)
}

// SweepResult summarises one retention pass.
type SweepResult struct {
	Cutoff  time.Time `json:"cutoff"`
	Scanned int       `json:"scanned"`
	Deleted []string  `json:"deleted,omitempty"`
	Skipped []string  `json:"skipped,omitempty"`
	Errors  []error   `json:"-"`
}

// APIKeyRepository defines the interface for validating API keys.
type APIKeyRepository interface {
	// IsValid checks if the provided API key is valid and active.
	// Implementations should handle caching to reduce database load.
	IsValid(ctx context.Context, key string) (bool, error)
}
