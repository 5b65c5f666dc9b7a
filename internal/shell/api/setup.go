// Package api provides the HTTP surface of Village Lookup: the tracker proxy,
// standalone validation, reference lookups and operational endpoints.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/rs/cors"

	"github.com/artpar/villagelookup/internal/core/domain"
	"github.com/artpar/villagelookup/internal/core/validation"
	"github.com/artpar/villagelookup/internal/shell/api/middleware"
	"github.com/artpar/villagelookup/internal/shell/api/openapi"
	"github.com/artpar/villagelookup/internal/shell/metrics"
	"github.com/artpar/villagelookup/internal/shell/store"
)

// ListingCacheControl is sent with the township, ward and village listings.
const ListingCacheControl = "private, max-age=3600"

// Lookup result cache defaults.
const (
	DefaultCacheTTL             = 5 * time.Minute
	DefaultCacheCleanupInterval = 10 * time.Minute
)

// =============================================================================
// API Setup
// =============================================================================

// APIConfig holds configuration for the API setup.
type APIConfig struct {
	Validator SubmissionValidator
	Upstream  Upstream
	Store     store.Store

	// Townships is the listing loaded once before the listener starts.
	Townships store.TownshipSnapshot

	RejectionFormat validation.RejectionFormat
	Metrics         *metrics.Metrics
	Logger          *slog.Logger

	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string

	// Cache holds search results. Nil disables caching.
	Cache *cache.Cache

	Version string
}

// NewLookupCache creates the search result cache.
func NewLookupCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return cache.New(ttl, DefaultCacheCleanupInterval)
}

// SetupAPI creates the complete router. Returns an http.Handler that can be
// used as the server's main handler.
func SetupAPI(cfg APIConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RejectionFormat == "" {
		cfg.RejectionFormat = validation.FormatSimple
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	h := newHandler(cfg)

	router := mux.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(middleware.Logging(cfg.Logger))

	// Health endpoints
	router.HandleFunc("/health", h.handleHealth).Methods("GET")
	router.HandleFunc("/ready", h.handleReady).Methods("GET")

	// Submission endpoints
	router.HandleFunc("/proxy/tracker", h.handleProxyTracker).Methods("POST")
	router.HandleFunc("/validate", h.handleValidate).Methods("POST")

	// Reference lookups
	listing := middleware.CacheControl(ListingCacheControl)
	router.Handle("/townships", listing(http.HandlerFunc(h.handleTownships))).Methods("GET")
	router.Handle("/wards", listing(http.HandlerFunc(h.handleWards))).Methods("GET")
	router.Handle("/villages", listing(http.HandlerFunc(h.handleVillages))).Methods("GET")
	router.HandleFunc("/icd10", h.handleClassificationCodes).Methods("GET")

	// Operational endpoints
	router.Handle("/metrics", cfg.Metrics.Handler()).Methods("GET")
	router.HandleFunc("/openapi.json", newOpenAPIGenerator(cfg.Version).Handler()).Methods("GET")

	if len(cfg.AllowedOrigins) == 0 {
		return router
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return corsHandler.Handler(router)
}

// =============================================================================
// OpenAPI
// =============================================================================

func newOpenAPIGenerator(version string) *openapi.Generator {
	gen := openapi.NewGenerator(
		openapi.WithTitle("Village Lookup API"),
		openapi.WithVersion(version),
		openapi.WithDescription("Validating proxy for DHIS2 tracker imports and Myanmar reference lookups"),
	)

	limit := openapi.QueryParam{Name: "limit", Type: "integer", Description: "1..200", Default: 50}
	query := openapi.QueryParam{Name: "q", Type: "string", Description: "Case-insensitive name search"}
	townshipUID := openapi.QueryParam{Name: "township_uid", Type: "string", Required: true}
	unavailable := http.StatusServiceUnavailable

	gen.Register(openapi.Endpoint{
		Method:      http.MethodPost,
		Path:        "/proxy/tracker",
		OperationID: "proxyTracker",
		Summary:     "Validate a synchronous tracker import and relay it upstream",
		Tag:         "Tracker",
		Query:       []openapi.QueryParam{{Name: "async", Type: "string", Description: "Only async=false is validated"}},
		Request:     domain.Submission{},
		Errors:      []int{http.StatusConflict, http.StatusBadGateway, unavailable, http.StatusGatewayTimeout},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodPost,
		Path:        "/validate",
		OperationID: "validateSubmission",
		Summary:     "Validate every event of a submission",
		Tag:         "Tracker",
		Request:     domain.Submission{},
		Response:    domain.ValidationResult{},
		Errors:      []int{http.StatusBadRequest, unavailable},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/townships",
		OperationID: "listTownships",
		Summary:     "List townships",
		Tag:         "Reference",
		Response:    []domain.Area{},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/wards",
		OperationID: "searchWards",
		Summary:     "Search wards of a township",
		Tag:         "Reference",
		Query:       []openapi.QueryParam{townshipUID, query, limit},
		Response:    []domain.Area{},
		Errors:      []int{http.StatusBadRequest, unavailable},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/villages",
		OperationID: "searchVillages",
		Summary:     "Search villages of a township",
		Tag:         "Reference",
		Query:       []openapi.QueryParam{townshipUID, query, limit},
		Response:    []domain.Area{},
		Errors:      []int{http.StatusBadRequest, unavailable},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/icd10",
		OperationID: "searchClassificationCodes",
		Summary:     "Search ICD10 classification codes",
		Tag:         "Reference",
		Query: []openapi.QueryParam{
			query,
			{Name: "page", Type: "integer", Default: 1},
			limit,
		},
		Response: domain.ClassificationPage{},
		Errors:   []int{http.StatusBadRequest, unavailable},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/health",
		OperationID: "health",
		Summary:     "Liveness",
		Tag:         "Operations",
		Response:    HealthResponse{},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/ready",
		OperationID: "ready",
		Summary:     "Readiness of the reference store",
		Tag:         "Operations",
		Response:    ReadyResponse{},
		Errors:      []int{unavailable},
	})
	gen.Register(openapi.Endpoint{
		Method:      http.MethodGet,
		Path:        "/metrics",
		OperationID: "metrics",
		Summary:     "Prometheus metrics",
		Tag:         "Operations",
	})

	return gen
}
