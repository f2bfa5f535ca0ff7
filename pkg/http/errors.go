package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the gate's JSON error envelope
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SuccessResponse is the gate's JSON success envelope
type SuccessResponse struct {
	Success bool `json:"success"`
}

// WriteJSON writes v as JSON with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Encoding errors are not exposed to the client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// WriteSuccess writes {"success":true} with status 200
func WriteSuccess(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
