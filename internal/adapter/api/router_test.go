package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/safelog/internal/domain/mocks"
	"github.com/V4T54L/safelog/internal/pkg/config"
	"github.com/V4T54L/safelog/internal/usecase"
)

func newTestRouter(t *testing.T, repo *mocks.MockAPIKeyRepository) (http.Handler, *mocks.MockEntryWriter) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{MaxEventSize: 4096, IntakeRateLimit: 1000, IntakeRateBurst: 100}

	writer := &mocks.MockEntryWriter{}
	facade := usecase.NewAppLogger(usecase.Config{Environment: "production", FileEnabled: true}, writer, nil, nil, logger, nil)

	if repo == nil {
		return NewRouter(cfg, logger, nil, facade, nil), writer
	}
	return NewRouter(cfg, logger, repo, facade, nil), writer
}

func post(h http.Handler, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h, _ := newTestRouter(t, &mocks.MockAPIKeyRepository{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestRouter_SecurityEventEndToEnd(t *testing.T) {
	h, writer := newTestRouter(t, nil)

	rr := post(h, "/v1/security-event", `{"event":"brute_force","metadata":{"password":"x"}}`, map[string]string{"User-Agent": "curl/8"})
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	writes := writer.Snapshot()
	require.Len(t, writes, 3)
	for _, w := range writes {
		assert.Equal(t, "Security Event: brute_force", w.Entry.Message)
		assert.Equal(t, "[REDACTED]", w.Entry.Metadata["password"])
		assert.Equal(t, "curl/8", w.Entry.Metadata["userAgent"])
		assert.Equal(t, rr.Header().Get("X-Request-ID"), w.Entry.Metadata["request_id"])
	}
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	h, writer := newTestRouter(t, &mocks.MockAPIKeyRepository{ValidKeys: map[string]bool{"k1": true}})

	rr := post(h, "/v1/log", `{"level":"info","message":"hi"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	for _, w := range writer.Snapshot() {
		assert.Equal(t, "Security Event: api_key_missing", w.Entry.Message)
	}
	before := len(writer.Filenames())

	rr = post(h, "/v1/log", `{"level":"info","message":"hi"}`, map[string]string{"X-API-Key": "k1"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Len(t, writer.Filenames(), before+1)
}

func TestRouter_WrongMethod(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/log", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRouter_DebugDroppedOutsideDevelopment(t *testing.T) {
	h, writer := newTestRouter(t, nil)

	rr := post(h, "/v1/log", `{"level":"debug","message":"noise"}`, nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Empty(t, writer.Filenames())
}

func TestRouter_NumericUserID(t *testing.T) {
	h, writer := newTestRouter(t, nil)

	rr := post(h, "/v1/user-action", `{"user_id":1234567,"action":"login"}`, nil)
	require.Equal(t, http.StatusAccepted, rr.Code)

	writes := writer.Snapshot()
	require.Len(t, writes, 1)
	assert.Equal(t, "User Action: login", writes[0].Entry.Message)
	assert.Equal(t, "1234567", writes[0].Entry.Metadata["userId"])
}

func TestRouter_RejectedKeyIsLoggedAsSecurityEvent(t *testing.T) {
	h, writer := newTestRouter(t, &mocks.MockAPIKeyRepository{ValidKeys: map[string]bool{"k1": true}})

	rr := post(h, "/v1/log", `{"level":"info","message":"hi"}`, map[string]string{"X-API-Key": "stolen"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	writes := writer.Snapshot()
	require.Len(t, writes, 3)
	assert.ElementsMatch(t, []string{"app", "warn", "security"}, prefixesOf(writer.Filenames()))
	for _, w := range writes {
		assert.Equal(t, "Security Event: api_key_invalid", w.Entry.Message)
		assert.Equal(t, "192.0.2.xxx", w.Entry.Metadata["ip"])
		assert.NotContains(t, w.Entry.Metadata, "stolen")
	}

	rr = post(h, "/v1/log", `{"level":"info","message":"hi"}`, map[string]string{"Authorization": "Bearer k1"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func prefixesOf(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n[:strings.Index(n, "-")]
	}
	return out
}
