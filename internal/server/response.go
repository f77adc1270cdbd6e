package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/modelerd/internal/errs"
)

// writeJSON writes data as a JSON response and returns any encoding error.
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// writeError writes err as {"error": kind, "message": text}.
func writeError(w http.ResponseWriter, err error) error {
	return writeJSON(w, statusFor(err), map[string]string{
		"error":   errs.KindOf(err).String(),
		"message": err.Error(),
	})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindMetadataSourceUnavailable, errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
