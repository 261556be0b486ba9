package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swayne275/bitly-metrics/internal/errx"
	"github.com/swayne275/bitly-metrics/internal/httpx"
)

// legacyTokenHeader is the pre-bearer header name older clients send the
// access token under.
const legacyTokenHeader = "access_token"

// MetricsResponse is the JSON success envelope for the metrics endpoint.
type MetricsResponse struct {
	Metrics Aggregate `json:"metrics"`
	URI     string    `json:"uri"`
}

// Handler provides the HTTP boundary for the aggregation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
	}
}

// GetClickMetrics handles GET requests for per-country average daily clicks
// across every link in the caller's default group.
func (h *Handler) GetClickMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	token := credentialFromRequest(r)
	if token == "" {
		logger.WarnContext(ctx, "request missing access token")
		httpx.WriteError(w, r, http.StatusUnauthorized, errx.BadCredential,
			"missing or invalid access token")
		return
	}

	opts := Options{Country: r.URL.Query().Get("country")}

	agg, err := h.service.CountryAverages(ctx, token, opts)
	if err != nil {
		h.handleMetricsError(ctx, w, r, err)
		return
	}

	logger.InfoContext(ctx, "click metrics aggregated",
		"links", len(agg),
		"country_filter", opts.Country != "",
	)

	httpx.WriteJSON(w, http.StatusOK, MetricsResponse{
		Metrics: agg,
		URI:     r.URL.RequestURI(),
	})
}

// handleMetricsError renders a pipeline failure through the closed taxonomy.
func (h *Handler) handleMetricsError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.BadCredential:
		h.logger.WarnContext(ctx, "access token rejected", logAttrs...)
	case errx.UpstreamHTTP:
		h.logger.ErrorContext(ctx, "bitly returned an error status", logAttrs...)
	case errx.UpstreamData:
		h.logger.ErrorContext(ctx, "bitly response had unexpected shape", logAttrs...)
	default:
		h.logger.ErrorContext(ctx, "unexpected error aggregating metrics", logAttrs...)
	}

	httpx.WriteError(w, r, httpx.ErrorKindToStatus(kind), kind, err.Error())
}

// credentialFromRequest extracts the caller's Bitly access token. The
// Authorization bearer header is preferred; the legacy access_token header is
// accepted for older clients. The token is opaque here: never parsed, never
// logged.
func credentialFromRequest(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(r.Header.Get(legacyTokenHeader))
}
