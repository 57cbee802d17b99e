// Package api provides shared HTTP response helpers and the service
// liveness endpoint used by the CourseForge front-ends.
package api

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Status is the liveness payload reported by internal services.
type Status struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Agent   string `json:"agent"`
}

// LivenessHandler answers GET / with the service identity so deploy probes
// can tell which agent a given instance mounts.
type LivenessHandler struct {
	service string
	agent   string
}

// NewLivenessHandler creates a liveness handler.
func NewLivenessHandler(service, agent string) *LivenessHandler {
	return &LivenessHandler{service: service, agent: agent}
}

// HandleRoot handles GET / requests.
func (h *LivenessHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, Status{Status: "ok", Service: h.service, Agent: h.agent})
}
