package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// echoRequestID writes the request id found in the context.
func echoRequestID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(GetRequestID(r.Context())))
	})
}

// =============================================================================
// RequestID Tests
// =============================================================================

func TestRequestID_GeneratesUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID(echoRequestID()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	id := rec.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.Body.String())
}

func TestRequestID_ReusesCallerID(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()

	RequestID(echoRequestID()).ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
	assert.Equal(t, "req-42", rec.Body.String())
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, GetRequestID(req.Context()))
}

// =============================================================================
// Recovery Tests
// =============================================================================

func TestRecovery_PanicReturns500(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()

	Recovery(nil)(panicking).ServeHTTP(rec, httptest.NewRequest("POST", "/validate", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
}

func TestRecovery_NoPanicPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	Recovery(nil)(ok).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

// =============================================================================
// Logging Tests
// =============================================================================

func TestLogging_RecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	teapot := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	req := httptest.NewRequest("GET", "/wards", nil)
	req.Header.Set(HeaderRequestID, "req-7")

	RequestID(Logging(logger)(teapot)).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "GET", line["method"])
	assert.Equal(t, "/wards", line["path"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "req-7", line["request_id"])
}

func TestLogging_DefaultStatusOK(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	silent := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	Logging(logger)(silent).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusOK), line["status"])
}

// =============================================================================
// CacheControl Tests
// =============================================================================

func TestCacheControl_SetsHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	CacheControl("private, max-age=3600")(echoRequestID()).ServeHTTP(rec, httptest.NewRequest("GET", "/townships", nil))

	assert.Equal(t, "private, max-age=3600", rec.Header().Get("Cache-Control"))
}
