package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"quizhub-attempt-service/internal/domain"
)

type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	StatusCode int         `json:"statusCode"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	body.StatusCode = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// statusFor maps an error kind onto its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalid:
		return http.StatusBadRequest
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError hides infrastructure detail from clients; it is logged instead.
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		message = http.StatusText(status)
	}
	writeJSON(w, status, envelope{Success: false, Message: message, Error: kind.String()})
}
