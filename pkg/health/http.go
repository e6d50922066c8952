package health

import (
	"encoding/json"
	"net/http"

	"github.com/lewisedginton/whatsapp_router/pkg/logger"
)

// HealthResponse is the JSON body served by the probe endpoints.
type HealthResponse struct {
	Status  string                 `json:"status"` // healthy, degraded or unhealthy
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// CheckStatus is one check's entry in HealthResponse.
type CheckStatus struct {
	Status  string `json:"status"` // ok or error
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// LivenessHandler serves 200 while alive and 503 when the process should be restarted.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckLiveness(r.Context())
		h.writeHealthResponse(w, status, err)
	}
}

// ReadinessHandler serves 200 when ready for traffic, including the degraded state.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckReadiness(r.Context())
		h.writeHealthResponse(w, status, err)
	}
}

func (h *HealthChecker) writeHealthResponse(w http.ResponseWriter, status *HealthStatus, err error) {
	response := HealthResponse{Checks: make(map[string]CheckStatus, len(status.Checks))}
	code := http.StatusOK

	switch {
	case !status.Healthy:
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
		if err != nil {
			response.Message = err.Error()
		}
	case status.Degraded:
		response.Status = "degraded"
	default:
		response.Status = "healthy"
	}

	for _, result := range status.Checks {
		cs := CheckStatus{Status: "ok", Latency: result.Latency.String()}
		if !result.Healthy {
			cs.Status = "error"
			cs.Error = result.Error
		}
		response.Checks[result.Name] = cs
	}

	body, encErr := json.Marshal(response)
	if encErr != nil {
		h.logger.Error("Failed to encode health response", logger.ErrorField(encErr))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
