package handler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/domain"
)

const RequestIDHeader = "X-Request-ID"

// EventKind selects which facade operation an intake endpoint feeds.
type EventKind string

const (
	KindLog           EventKind = "log"
	KindUserAction    EventKind = "user-action"
	KindSecurityEvent EventKind = "security-event"
)

// EventLogger is the part of the logging facade the intake needs.
type EventLogger interface {
	Log(level domain.Level, message string, metadata map[string]any)
	LogUserAction(userID any, action string, metadata map[string]any)
	LogSecurityEvent(event string, metadata map[string]any)
}

// event is one decoded intake payload. Which fields are required depends
// on the endpoint kind.
type event struct {
	Level    string         `json:"level"`
	Message  string         `json:"message"`
	UserID   any            `json:"user_id"`
	Action   string         `json:"action"`
	Event    string         `json:"event"`
	Metadata map[string]any `json:"metadata"`

	level domain.Level
}

// IntakeHandler handles HTTP requests carrying client-side log events.
type IntakeHandler struct {
	kind         EventKind
	events       EventLogger
	logger       *slog.Logger
	maxEventSize int64
	metrics      *metrics.LoggerMetrics
}

// NewIntakeHandler creates a new IntakeHandler for one endpoint kind.
func NewIntakeHandler(kind EventKind, events EventLogger, logger *slog.Logger, maxEventSize int64, m *metrics.LoggerMetrics) *IntakeHandler {
	return &IntakeHandler{
		kind:         kind,
		events:       events,
		logger:       logger.With("component", "intake_handler", "endpoint", string(kind)),
		maxEventSize: maxEventSize,
		metrics:      m,
	}
}

// ServeHTTP decodes a JSON or NDJSON body and hands every event to the
// logging facade. The whole body is validated before anything is logged.
func (h *IntakeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.serve(w, r)
	if h.metrics != nil {
		h.metrics.IntakeRequestsTotal.WithLabelValues(string(h.kind), strconv.Itoa(status)).Inc()
	}
}

func (h *IntakeHandler) serve(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return http.StatusMethodNotAllowed
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || (mediaType != "application/json" && mediaType != "application/x-ndjson") {
		http.Error(w, "Unsupported Media Type: "+r.Header.Get("Content-Type"), http.StatusUnsupportedMediaType)
		return http.StatusUnsupportedMediaType
	}

	// Enforce max body size
	r.Body = http.MaxBytesReader(w, r.Body, h.maxEventSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload Too Large", http.StatusRequestEntityTooLarge)
			return http.StatusRequestEntityTooLarge
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return http.StatusBadRequest
	}

	var events []event
	if mediaType == "application/x-ndjson" {
		events, err = h.decodeNDJSON(body)
	} else {
		var ev event
		if ev, err = h.decode(body); err == nil {
			events = []event{ev}
		}
	}
	if err != nil {
		h.logger.Warn("Rejected intake request", "error", err, "remote_addr", r.RemoteAddr)
		http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
		return http.StatusBadRequest
	}

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	for _, ev := range events {
		h.dispatch(r, ev, requestID)
	}

	w.WriteHeader(http.StatusAccepted)
	return http.StatusAccepted
}

func (h *IntakeHandler) decodeNDJSON(body []byte) ([]event, error) {
	var events []event
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), len(body)+1)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		ev, err := h.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, errors.New("empty event stream")
	}
	return events, nil
}

func (h *IntakeHandler) decode(raw []byte) (event, error) {
	var ev event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("invalid JSON: %w", err)
	}

	switch h.kind {
	case KindLog:
		level, err := domain.ParseLevel(ev.Level)
		if err != nil {
			return ev, err
		}
		if ev.Message == "" {
			return ev, errors.New("message is required")
		}
		ev.level = level
	case KindUserAction:
		if ev.Action == "" {
			return ev, errors.New("action is required")
		}
	case KindSecurityEvent:
		if ev.Event == "" {
			return ev, errors.New("event is required")
		}
	}
	return ev, nil
}

func (h *IntakeHandler) dispatch(r *http.Request, ev event, requestID string) {
	meta := make(map[string]any, len(ev.Metadata)+3)
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta["request_id"] = requestID

	switch h.kind {
	case KindLog:
		h.events.Log(ev.level, ev.Message, meta)
	case KindUserAction:
		setDefault(meta, "ip", clientIP(r))
		setDefault(meta, "userAgent", r.UserAgent())
		h.events.LogUserAction(ev.UserID, ev.Action, meta)
	case KindSecurityEvent:
		setDefault(meta, "ip", clientIP(r))
		setDefault(meta, "userAgent", r.UserAgent())
		h.events.LogSecurityEvent(ev.Event, meta)
	}
}

func setDefault(meta map[string]any, key, value string) {
	if _, ok := meta[key]; !ok && value != "" {
		meta[key] = value
	}
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
