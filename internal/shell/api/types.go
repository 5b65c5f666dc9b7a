package api

// =============================================================================
// Response Types
// =============================================================================

// HealthResponse is the response for the liveness check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for the readiness check.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every non-validation failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
