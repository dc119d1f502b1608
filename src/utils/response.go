package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wealthjourney/backend/src/logger"
)

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Path      string      `json:"path"`
}

// SendJSON writes a success envelope with the given payload.
func SendJSON(w http.ResponseWriter, r *http.Request, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.L.Error("Failed to encode JSON response", "path", r.URL.Path, "error", err)
	}
}

// SendJSONError writes an error envelope with the given message.
func SendJSONError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp := APIResponse{
		Success:   false,
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.L.Error("Failed to encode JSON error response", "path", r.URL.Path, "error", err)
	}
}
