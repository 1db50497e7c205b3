package domain

import (
	"fmt"
	"strings"
	"time"
)

// Level is the severity classification of a log entry.
type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
	LevelDebug Level = "DEBUG"
)

// TimestampLayout is the ISO-8601 layout used for entry timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is the UTC calendar date layout used in log file names.
const DateLayout = "2006-01-02"

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// LogEntry represents a single formatted record. It is never mutated after
// the formatter builds it.
type LogEntry struct {
	Timestamp   string         `json:"timestamp"`
	Level       Level          `json:"level"`
	Message     string         `json:"message"`
	Metadata    map[string]any `json:"metadata"`
	PID         int            `json:"pid"`
	Environment string         `json:"environment"`

	// Time is the instant the entry was created; file dates derive from it.
	Time time.Time `json:"-"`
}

// Date returns the UTC calendar date of the entry, e.g. "2024-03-09".
func (e LogEntry) Date() string {
	return e.Time.UTC().Format(DateLayout)
}
