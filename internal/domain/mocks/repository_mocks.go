package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/safelog/internal/domain"
)

// WrittenEntry is one call recorded by MockEntryWriter.
type WrittenEntry struct {
	Filename string
	Entry    domain.LogEntry
}

// MockEntryWriter is a mock implementation of domain.EntryWriter for testing.
type MockEntryWriter struct {
	mu       sync.Mutex
	Writes   []WrittenEntry
	Flushes  int
	Closed   bool
	FlushErr error
	CloseErr error
}

func (m *MockEntryWriter) Write(entry domain.LogEntry, filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes = append(m.Writes, WrittenEntry{Filename: filename, Entry: entry})
}

func (m *MockEntryWriter) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	return m.FlushErr
}

func (m *MockEntryWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseErr
}

// Filenames returns the target file of every recorded write, in order.
func (m *MockEntryWriter) Filenames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Writes))
	for i, w := range m.Writes {
		names[i] = w.Filename
	}
	return names
}

// Snapshot returns a copy of the recorded writes.
func (m *MockEntryWriter) Snapshot() []WrittenEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WrittenEntry(nil), m.Writes...)
}

// MockConsole is a mock implementation of domain.ConsoleSink.
type MockConsole struct {
	mu      sync.Mutex
	Printed []domain.LogEntry
}

func (m *MockConsole) Print(entry domain.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Printed = append(m.Printed, entry)
}

func (m *MockConsole) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Printed)
}

// MockSweeper is a mock implementation of domain.LogSweeper.
type MockSweeper struct {
	mu     sync.Mutex
	Calls  []int
	Result domain.SweepResult
	Err    error
}

func (m *MockSweeper) Sweep(ctx context.Context, daysToKeep int) (domain.SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, daysToKeep)
	return m.Result, m.Err
}

// Days returns the retention argument of every call, in order.
func (m *MockSweeper) Days() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.Calls...)
}

// MockAPIKeyRepository is a mock implementation of domain.APIKeyRepository.
type MockAPIKeyRepository struct {
	ValidKeys map[string]bool
	Err       error
}

func (m *MockAPIKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.ValidKeys[key], nil
}
