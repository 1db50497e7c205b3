package console

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/V4T54L/safelog/internal/domain"
)

func entry(level domain.Level, msg string, meta map[string]any) domain.LogEntry {
	return domain.LogEntry{
		Timestamp: "2024-03-09T12:00:00.000Z",
		Level:     level,
		Message:   msg,
		Metadata:  meta,
	}
}

func TestConsole_Print(t *testing.T) {
	tests := []struct {
		name       string
		entry      domain.LogEntry
		wantStdout string
		wantStderr string
	}{
		{
			name:       "Info without metadata",
			entry:      entry(domain.LevelInfo, "server started", map[string]any{}),
			wantStdout: "[2024-03-09T12:00:00.000Z] INFO: server started\n",
		},
		{
			name:       "Debug with metadata",
			entry:      entry(domain.LevelDebug, "cache miss", map[string]any{"key_id": 7}),
			wantStdout: `[2024-03-09T12:00:00.000Z] DEBUG: cache miss {"key_id":7}` + "\n",
		},
		{
			name:       "Error goes to stderr",
			entry:      entry(domain.LevelError, "payment failed", map[string]any{"password": "[REDACTED]"}),
			wantStderr: `[2024-03-09T12:00:00.000Z] ERROR: payment failed {"password":"[REDACTED]"}` + "\n",
		},
		{
			name:       "Warn goes to stderr",
			entry:      entry(domain.LevelWarn, "slow request", nil),
			wantStderr: "[2024-03-09T12:00:00.000Z] WARN: slow request\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			c := NewWithWriters(&stdout, &stderr, false)

			c.Print(tt.entry)

			assert.Equal(t, tt.wantStdout, stdout.String())
			assert.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestConsole_ColouredLevels(t *testing.T) {
	var stdout, stderr bytes.Buffer
	c := NewWithWriters(&stdout, &stderr, true)

	c.Print(entry(domain.LevelInfo, "hello", nil))
	c.Print(entry(domain.LevelError, "boom", nil))

	assert.True(t, strings.HasPrefix(stdout.String(), "\x1b["), "info line should start with an ANSI sequence")
	assert.Contains(t, stdout.String(), "INFO:")
	assert.Contains(t, stderr.String(), "\x1b[")
	assert.NotEqual(t, stdout.String()[:8], stderr.String()[:8])
}
