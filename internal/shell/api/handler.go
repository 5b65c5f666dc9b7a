package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/patrickmn/go-cache"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/proxy"
	"github.com/artpar/villagelookup/internal/core/search"
	"github.com/artpar/villagelookup/internal/core/tracker"
	"github.com/artpar/villagelookup/internal/core/validation"
	"github.com/artpar/villagelookup/internal/shell/api/middleware"
	"github.com/artpar/villagelookup/internal/shell/metrics"
	"github.com/artpar/villagelookup/internal/shell/relay"
	"github.com/artpar/villagelookup/internal/shell/store"
)

// =============================================================================
// Dependencies
// =============================================================================

// SubmissionValidator validates tracker events against reference data.
// *validator.Validator satisfies it.
type SubmissionValidator interface {
	ValidateSubmission(ctx context.Context, events []domain.Event) ([]domain.ValidationError, error)
	Catalog() validation.Catalog
}

// Upstream forwards a submission to the tracker server.
// *relay.Client satisfies it.
type Upstream interface {
	Relay(ctx context.Context, body []byte, rawQuery, cookie string) (*relay.Response, error)
}

// =============================================================================
// Handler
// =============================================================================

// Handler provides the HTTP handlers for the proxy, validation and lookup
// endpoints.
type Handler struct {
	validator       SubmissionValidator
	upstream        Upstream
	store           store.Store
	townships       store.TownshipSnapshot
	rejectionFormat validation.RejectionFormat
	cache           *cache.Cache
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

func newHandler(cfg APIConfig) *Handler {
	return &Handler{
		validator:       cfg.Validator,
		upstream:        cfg.Upstream,
		store:           cfg.Store,
		townships:       cfg.Townships,
		rejectionFormat: cfg.RejectionFormat,
		cache:           cfg.Cache,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
	}
}

// =============================================================================
// Tracker Proxy
// =============================================================================

// handleProxyTracker validates synchronous submissions for the configured
// program and relays everything else untouched.
func (h *Handler) handleProxyTracker(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.metrics.IncrementSubmission(metrics.DecisionError)
		h.writeProxyError(w, r, proxy.NewBadRequestError("could not read request body"))
		return
	}

	decision := tracker.Decide(body, r.URL.Query(), h.validator.Catalog().Program)
	if !decision.Validate {
		h.metrics.IncrementSubmission(metrics.DecisionPassThrough)
		h.relay(w, r, body)
		return
	}

	errs, err := h.validator.ValidateSubmission(r.Context(), decision.Events)
	if err != nil {
		h.metrics.IncrementSubmission(metrics.DecisionError)
		h.writeProxyError(w, r, proxy.NewStoreUnavailableError(err))
		return
	}

	if len(errs) > 0 {
		rejection, err := validation.BuildRejection(errs, h.rejectionFormat, decision.TotalEvents)
		if err != nil {
			h.metrics.IncrementSubmission(metrics.DecisionError)
			h.writeProxyError(w, r, proxy.NewInternalError(err))
			return
		}
		h.metrics.IncrementSubmission(metrics.DecisionRejected)
		h.logger.Info("submission rejected",
			"request_id", middleware.GetRequestID(r.Context()),
			"events", len(decision.Events),
			"errors", len(errs),
		)
		w.Header().Set("Content-Type", rejection.ContentType)
		w.WriteHeader(rejection.StatusCode)
		w.Write(rejection.Body)
		return
	}

	h.metrics.IncrementSubmission(metrics.DecisionAccepted)
	h.logger.Info("submission accepted",
		"request_id", middleware.GetRequestID(r.Context()),
		"events", len(decision.Events),
	)
	h.relay(w, r, body)
}

// relay forwards the original body and query and copies the upstream
// response back byte for byte.
func (h *Handler) relay(w http.ResponseWriter, r *http.Request, body []byte) {
	resp, err := h.upstream.Relay(r.Context(), body, r.URL.RawQuery, r.Header.Get("Cookie"))
	if err != nil {
		h.writeProxyError(w, r, proxy.NewRelayError(relay.IsTimeout(err), err))
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// =============================================================================
// Standalone Validation
// =============================================================================

// handleValidate validates every event of a submission without a program
// filter or async gate. It never contacts upstream.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var sub domain.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeProxyError(w, r, proxy.NewBadRequestError("invalid request body"))
		return
	}

	errs, err := h.validator.ValidateSubmission(r.Context(), sub.Events)
	if err != nil {
		h.writeProxyError(w, r, proxy.NewStoreUnavailableError(err))
		return
	}

	h.writeJSON(w, http.StatusOK, domain.NewValidationResult(errs))
}

// =============================================================================
// Reference Lookups
// =============================================================================

func (h *Handler) handleTownships(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.townships.Areas())
}

func (h *Handler) handleWards(w http.ResponseWriter, r *http.Request) {
	h.handleAreaSearch(w, r, "wards", h.store.SearchWards)
}

func (h *Handler) handleVillages(w http.ResponseWriter, r *http.Request) {
	h.handleAreaSearch(w, r, "villages", h.store.SearchVillages)
}

type areaSearch func(ctx context.Context, townshipUID string, p search.Params) ([]domain.Area, error)

func (h *Handler) handleAreaSearch(w http.ResponseWriter, r *http.Request, kind string, find areaSearch) {
	q := r.URL.Query()
	townshipUID := q.Get("township_uid")
	if townshipUID == "" {
		h.writeProxyError(w, r, proxy.NewBadRequestError("township_uid is required"))
		return
	}

	params, err := search.ParseParams(q.Get("q"), "", q.Get("limit"))
	if err != nil {
		h.writeProxyError(w, r, proxy.NewBadRequestError(err.Error()))
		return
	}

	key := cacheKey(kind, townshipUID, params)
	if cached, ok := h.cacheGet(key); ok {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	areas, err := find(r.Context(), townshipUID, params)
	if err != nil {
		h.writeProxyError(w, r, proxy.NewStoreUnavailableError(err))
		return
	}
	if areas == nil {
		areas = []domain.Area{}
	}

	h.cacheSet(key, areas)
	h.writeJSON(w, http.StatusOK, areas)
}

func (h *Handler) handleClassificationCodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := search.ParseParams(q.Get("q"), q.Get("page"), q.Get("limit"))
	if err != nil {
		h.writeProxyError(w, r, proxy.NewBadRequestError(err.Error()))
		return
	}

	key := cacheKey("icd10", "", params)
	if cached, ok := h.cacheGet(key); ok {
		h.writeJSON(w, http.StatusOK, cached)
		return
	}

	page, err := h.store.SearchClassificationCodes(r.Context(), params)
	if err != nil {
		h.writeProxyError(w, r, proxy.NewStoreUnavailableError(err))
		return
	}
	if page.Results == nil {
		page.Results = []domain.ClassificationCode{}
	}

	h.cacheSet(key, page)
	h.writeJSON(w, http.StatusOK, page)
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

// writeProxyError logs infrastructure failures and writes the client body.
func (h *Handler) writeProxyError(w http.ResponseWriter, r *http.Request, perr proxy.ProxyError) {
	if perr.Type != proxy.ErrorBadRequest {
		h.logger.Error(perr.Message,
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"type", perr.Type.String(),
			"error", perr.Cause,
			"client_gone", errors.Is(r.Context().Err(), context.Canceled),
		)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(perr.StatusCode)
	w.Write(perr.Body())
}

func cacheKey(kind, townshipUID string, p search.Params) string {
	return fmt.Sprintf("%s:%q:%q:%d:%d", kind, townshipUID, p.Query, p.Page, p.Limit)
}

func (h *Handler) cacheGet(key string) (any, bool) {
	if h.cache == nil {
		return nil, false
	}
	return h.cache.Get(key)
}

func (h *Handler) cacheSet(key string, v any) {
	if h.cache != nil {
		h.cache.Set(key, v, cache.DefaultExpiration)
	}
}
