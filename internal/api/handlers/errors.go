package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"Inkwell/internal/core/comments"
)

// MaxRequestBodyBytes caps every JSON request body (100KB is plenty for a comment)
const MaxRequestBodyBytes = 100 * 1024

// errorResponse represents a standardized JSON error response
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Error:   errorType,
		Message: message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// WriteJSON writes v as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// DecodeJSON reads a size-limited JSON body into dst and writes a 400 on failure.
// Returns false when the handler should stop.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeJSON(w, r, dst, false)
}

// DecodeOptionalJSON is DecodeJSON for endpoints whose body may be omitted.
// An empty body leaves dst untouched, whatever the Content-Length or transfer encoding.
func DecodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeJSON(w, r, dst, true)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	if r.Body == nil || r.Body == http.NoBody {
		if optional {
			return true
		}
		WriteError(w, http.StatusBadRequest, "InvalidRequest", "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case optional && errors.Is(err, io.EOF):
			return true
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "RequestTooLarge", "Request body exceeds 100KB")
		case errors.Is(err, io.EOF):
			WriteError(w, http.StatusBadRequest, "InvalidRequest", "Request body is required")
		default:
			WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		}
		return false
	}
	return true
}

// StatusForError maps a service error to its HTTP status
func StatusForError(err error) int {
	switch {
	case comments.IsValidationError(err):
		return http.StatusBadRequest
	case comments.IsNotFound(err):
		return http.StatusNotFound
	case comments.CodeOf(err) == comments.CodeDuplicateFlag:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError maps service-layer errors to HTTP responses.
// Storage and unexpected failures are logged; only the code and a generic message reach the client.
func WriteServiceError(w http.ResponseWriter, err error) {
	code := comments.CodeOf(err)
	status := StatusForError(err)

	message := comments.ErrUnexpected.Message
	var typed *comments.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	if status == http.StatusInternalServerError {
		log.Printf("Service error (%s): %v", code, err)
	}

	WriteError(w, status, string(code), message)
}
