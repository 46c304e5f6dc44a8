package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hearth-home/hearth-core/internal/client"
	"github.com/hearth-home/hearth-core/internal/entity"
	"github.com/hearth-home/hearth-core/internal/entry"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeRejected     = "rejected"
	ErrCodeNeedsReauth  = "needs_reauth"
	ErrCodeUnavailable  = "device_unavailable"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps entity, entry, and device-client errors onto HTTP
// responses. Device rejections keep the device's reason verbatim.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrEntityNotFound), errors.Is(err, entry.ErrEntryNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, entity.ErrNotWritable), errors.Is(err, entity.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, entry.ErrNotLoaded), errors.Is(err, entry.ErrAlreadyLoaded):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		switch client.KindOf(err) {
		case client.KindRejected:
			writeError(w, http.StatusConflict, ErrCodeRejected, client.RejectionReason(err))
		case client.KindAuth:
			writeError(w, http.StatusConflict, ErrCodeNeedsReauth, err.Error())
		case client.KindTransient:
			writeError(w, http.StatusBadGateway, ErrCodeUnavailable, err.Error())
		case client.KindMalformed:
			writeError(w, http.StatusBadGateway, ErrCodeUnavailable, err.Error())
		default:
			writeInternalError(w, err.Error())
		}
	}
}
