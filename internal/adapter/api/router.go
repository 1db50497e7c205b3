package api

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/V4T54L/safelog/internal/adapter/api/handler"
	"github.com/V4T54L/safelog/internal/adapter/api/middleware"
	"github.com/V4T54L/safelog/internal/adapter/metrics"
	"github.com/V4T54L/safelog/internal/domain"
	"github.com/V4T54L/safelog/internal/pkg/config"
)

// NewRouter creates and configures the HTTP router for client event intake.
// apiKeyRepo may be nil, in which case intake is unauthenticated.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	apiKeyRepo domain.APIKeyRepository,
	events handler.EventLogger,
	m *metrics.LoggerMetrics,
) http.Handler {
	intake := http.NewServeMux()
	for _, kind := range []handler.EventKind{handler.KindLog, handler.KindUserAction, handler.KindSecurityEvent} {
		intake.Handle("POST /v1/"+string(kind), handler.NewIntakeHandler(kind, events, logger, cfg.MaxEventSize, m))
	}

	// Middleware
	var limiter *rate.Limiter
	if cfg.IntakeRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.IntakeRateLimit), cfg.IntakeRateBurst)
	}
	authMiddleware := middleware.Auth(apiKeyRepo, events, logger)
	rateLimitMiddleware := middleware.RateLimit(limiter, logger)

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.RequestID(rateLimitMiddleware(authMiddleware(intake))))

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return middleware.Logging(logger)(mux)
}
