package logfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/domain"
)

const (
	filePerm = 0644
	dirPerm  = 0755

	DefaultQueueSize = 4096
)

var (
	ErrSinkClosed     = errors.New("log file sink is closed")
	ErrQueueFull      = errors.New("log write queue is full")
	ErrUnserializable = errors.New("log entry is not serializable")
)

// BackpressurePolicy decides what Write does when the queue is full.
type BackpressurePolicy string

const (
	// PolicyDrop discards the line and counts it. Callers never block.
	PolicyDrop BackpressurePolicy = "drop"
	// PolicyBlock waits for room in the queue.
	PolicyBlock BackpressurePolicy = "block"
)

// ParseBackpressurePolicy accepts "drop" or "block".
func ParseBackpressurePolicy(s string) (BackpressurePolicy, error) {
	switch BackpressurePolicy(s) {
	case PolicyDrop, PolicyBlock:
		return BackpressurePolicy(s), nil
	case "":
		return PolicyDrop, nil
	}
	return "", fmt.Errorf("unknown backpressure policy %q", s)
}

// ErrorHandler receives every failure the sink swallows.
type ErrorHandler func(filename string, err error)

// Options tune a FileSink. The zero value is usable.
type Options struct {
	QueueSize int
	Policy    BackpressurePolicy
	OnError   ErrorHandler
	Metrics   *metrics.LoggerMetrics
}

type writeRequest struct {
	filename string
	date     string
	line     []byte
	flushed  chan struct{}
}

// FileSink appends NDJSON lines to files in one directory. A single writer
// goroutine owns every file handle and issues exactly one Write per line on
// an O_APPEND descriptor, so concurrent callers never produce torn lines and
// lines for the same file keep their enqueue order.
type FileSink struct {
	dir     string
	policy  BackpressurePolicy
	onError ErrorHandler
	logger  *slog.Logger
	metrics *metrics.LoggerMetrics

	queue chan writeRequest
	done  chan struct{}

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool

	filesMu     sync.Mutex
	files       map[string]*os.File
	currentDate string

	written  atomic.Int64
	failures atomic.Int64
	dropped  atomic.Int64
}

// NewFileSink creates dir (and its parents) and starts the writer.
func NewFileSink(dir string, logger *slog.Logger, opts Options) (*FileSink, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Policy == "" {
		opts.Policy = PolicyDrop
	}

	s := &FileSink{
		dir:     dir,
		policy:  opts.Policy,
		onError: opts.OnError,
		logger:  logger.With("component", "file_sink"),
		metrics: opts.Metrics,
		queue:   make(chan writeRequest, opts.QueueSize),
		done:    make(chan struct{}),
		files:   make(map[string]*os.File),
	}
	if s.onError == nil {
		s.onError = func(filename string, err error) {
			s.logger.Error("Failed to write log entry", "file", filename, "error", err)
		}
	}

	go s.run()
	return s, nil
}

// Dir returns the directory the sink writes into.
func (s *FileSink) Dir() string {
	return s.dir
}

// Write serializes entry and enqueues it for filename. It never returns an
// error; failures go to the ErrorHandler.
func (s *FileSink) Write(entry domain.LogEntry, filename string) {
	data, err := json.Marshal(entry)
	if err != nil {
		s.fail(filename, "marshal", fmt.Errorf("%w: %v", ErrUnserializable, err))
		return
	}
	data = append(data, '\n')

	req := writeRequest{filename: filename, date: entry.Date(), line: data}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.fail(filename, "closed", ErrSinkClosed)
		return
	}

	if s.policy == PolicyBlock {
		s.queue <- req
		s.observeQueue()
		return
	}

	select {
	case s.queue <- req:
		s.observeQueue()
	default:
		s.dropped.Add(1)
		if s.metrics != nil {
			s.metrics.DroppedTotal.Inc()
		}
		s.fail(filename, "queue_full", ErrQueueFull)
	}
}

// Flush waits until every line enqueued before the call has been written.
func (s *FileSink) Flush(ctx context.Context) error {
	ch := make(chan struct{})

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.queue <- writeRequest{flushed: ch}:
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	s.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting lines, drains the queue and closes every handle.
func (s *FileSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return nil
}

// OpenFiles lists the file names the writer currently holds open.
func (s *FileSink) OpenFiles() []string {
	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Written returns the number of lines appended so far.
func (s *FileSink) Written() int64 { return s.written.Load() }

// Failures returns the number of lines that could not be written.
func (s *FileSink) Failures() int64 { return s.failures.Load() }

// Dropped returns the number of lines discarded on a full queue.
func (s *FileSink) Dropped() int64 { return s.dropped.Load() }

func (s *FileSink) run() {
	defer close(s.done)

	for req := range s.queue {
		s.observeQueue()
		if req.flushed != nil {
			close(req.flushed)
			continue
		}
		s.append(req)
	}

	s.closeAll()
}

func (s *FileSink) append(req writeRequest) {
	f, err := s.handle(req.filename, req.date)
	if err != nil {
		s.fail(req.filename, "open", err)
		return
	}

	if _, err := f.Write(req.line); err != nil {
		s.fail(req.filename, "write", fmt.Errorf("failed to append to %s: %w", req.filename, err))
		s.release(req.filename)
		return
	}

	s.written.Add(1)
	if s.metrics != nil {
		s.metrics.FileWritesTotal.WithLabelValues(fileKind(req.filename)).Inc()
	}
}

// handle returns an open descriptor for filename, closing descriptors left
// over from previous dates the first time a new date shows up.
func (s *FileSink) handle(filename, date string) (*os.File, error) {
	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	if date != "" && date != s.currentDate {
		for name, f := range s.files {
			if d := fileDate(name); d != "" && d != date {
				if err := f.Close(); err != nil {
					s.logger.Warn("Failed to close log file from previous day", "file", name, "error", err)
				}
				delete(s.files, name)
			}
		}
		s.currentDate = date
	}

	if f, ok := s.files[filename]; ok {
		return f, nil
	}

	path := filepath.Join(s.dir, filename)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	s.files[filename] = f
	return f, nil
}

func (s *FileSink) release(filename string) {
	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	if f, ok := s.files[filename]; ok {
		_ = f.Close()
		delete(s.files, filename)
	}
}

func (s *FileSink) closeAll() {
	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	for name, f := range s.files {
		if err := f.Sync(); err != nil {
			s.logger.Warn("Failed to sync log file", "file", name, "error", err)
		}
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close log file", "file", name, "error", err)
		}
		delete(s.files, name)
	}
}

func (s *FileSink) fail(filename, reason string, err error) {
	s.failures.Add(1)
	if s.metrics != nil {
		s.metrics.WriteFailuresTotal.WithLabelValues(reason).Inc()
	}
	s.onError(filename, err)
}

func (s *FileSink) observeQueue() {
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(len(s.queue)))
	}
}
