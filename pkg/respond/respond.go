package respond

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Error codes returned in the envelope.
const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeTokenInvalid    = "TOKEN_INVALID"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// Envelope is the shape of every response body.
type Envelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
	Meta  Meta       `json:"meta"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Meta struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func newMeta(r *http.Request) Meta {
	id := middleware.GetReqID(r.Context())
	if id == "" {
		id = uuid.NewString()
	}
	return Meta{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(timestampLayout),
	}
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	write(w, code, Envelope{Data: data, Meta: newMeta(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	write(w, status, Envelope{
		Error: &ErrorBody{Code: code, Message: message},
		Meta:  newMeta(r),
	})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}
