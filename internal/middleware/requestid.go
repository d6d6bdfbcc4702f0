package middleware

import (
	"context"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID stores the caller's X-Request-ID, or a fresh UUID, under chi's
// request id key so chimw.GetReqID and the response envelope agree.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetReqID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}
