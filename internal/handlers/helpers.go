package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope wraps every successful handler response.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// errorEnvelope wraps every failure response. Message is clamped before it
// goes out so wrapped internal errors never leak full detail to clients.
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// maxClientMessageLen caps the error message exposed to clients.
const maxClientMessageLen = 200

// respondJSON sends a success envelope with the given status and payload.
func respondJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondJSONError sends an error envelope. errorType is the short category
// ("Bad Request", "Not Found"); message carries the human-readable detail.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	if len(message) > maxClientMessageLen {
		message = message[:maxClientMessageLen] + "..."
	}
	writeJSON(w, status, errorEnvelope{
		Success:   false,
		Error:     errorType,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
