package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	h := New()
	code, body := serve(t, h.LivenessHandler())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
}

func TestReadinessHandler(t *testing.T) {
	t.Run("unhealthy", func(t *testing.T) {
		h := New(WithFailureThreshold(1))
		h.AddReadinessCheck(&mockCheck{name: "events", err: errors.New("connection closed")})

		code, body := serve(t, h.ReadinessHandler())

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body.Status)
		assert.Contains(t, body.Message, "events")
		assert.Equal(t, CheckStatus{Status: "error", Error: "connection closed", Latency: body.Checks["events"].Latency}, body.Checks["events"])
	})

	t.Run("degraded is still ready", func(t *testing.T) {
		h := New(WithFailureThreshold(1))
		h.AddDegradedCheck(&mockCheck{name: "completion", err: errors.New("breaker open")})

		code, body := serve(t, h.ReadinessHandler())

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "error", body.Checks["completion"].Status)
	})

	t.Run("healthy", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck(&mockCheck{name: "events"})

		code, body := serve(t, h.ReadinessHandler())

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "ok", body.Checks["events"].Status)
	})
}
