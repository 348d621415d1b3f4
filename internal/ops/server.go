// Package ops serves the operational HTTP surface: health, the configured
// markets with their monitor state, and Prometheus metrics.
package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/viceclone/dlob-server/internal/models"
	"github.com/viceclone/dlob-server/internal/monitor"
)

// StatusSource exposes per-market monitor state. *monitor.Monitor implements it.
type StatusSource interface {
	Status(key models.MarketKey, now time.Time) (monitor.MarketStatus, bool)
}

// NewRouter builds the ops router.
func NewRouter(markets []models.PublishConfig, states StatusSource, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", HealthCheckHandler())
	r.Get("/markets", NewMarketsHandler(markets, states, logger).ServeHTTP)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// LoggingMiddleware logs all incoming requests.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			logger.Info("http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HealthCheckHandler returns a simple health check handler (used by docker
// healthchecks).
func HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}
}

// MarketsHandler handles GET /markets requests.
type MarketsHandler struct {
	markets []models.PublishConfig
	states  StatusSource
	logger  *slog.Logger
}

// NewMarketsHandler creates a new markets handler.
func NewMarketsHandler(markets []models.PublishConfig, states StatusSource, logger *slog.Logger) *MarketsHandler {
	return &MarketsHandler{
		markets: markets,
		states:  states,
		logger:  logger.With("handler", "markets"),
	}
}

// marketView is one row of the /markets response: the static publish config
// merged with the monitor's live state once the market has been observed.
type marketView struct {
	models.PublishConfig
	Channel string                `json:"channel"`
	Status  *monitor.MarketStatus `json:"status,omitempty"`
}

// ServeHTTP lists the configured markets and their monitor state.
func (h *MarketsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	views := make([]marketView, len(h.markets))
	for i, m := range h.markets {
		views[i] = marketView{
			PublishConfig: m,
			Channel:       m.Market.Channel(),
		}
		if st, ok := h.states.Status(m.Market.Key(), now); ok {
			views[i].Status = &st
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(map[string]any{"markets": views}); err != nil {
		h.logger.Error("json_encode_failed", "error", err)
	}
}
