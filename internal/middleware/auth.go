package middleware

import (
	"net/http"
	"strings"

	"github.com/BuzzLyutic/taskflow-api/pkg/respond"
)

const (
	bearerPrefix = "Bearer "
	// ExpiredToken stands in for a token whose expiry check failed.
	ExpiredToken   = "expired-token"
	MinTokenLength = 10
)

// Auth checks only the shape of a bearer credential. It does not verify the
// token against anything.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, bearerPrefix) {
			respond.Error(w, r, http.StatusUnauthorized, respond.CodeUnauthorized, "Missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		switch {
		case token == "":
			respond.Error(w, r, http.StatusUnauthorized, respond.CodeTokenInvalid, "Token is malformed")
		case token == ExpiredToken:
			respond.Error(w, r, http.StatusUnauthorized, respond.CodeTokenExpired, "Token has expired")
		case len(token) < MinTokenLength:
			respond.Error(w, r, http.StatusUnauthorized, respond.CodeTokenInvalid, "Token is malformed")
		default:
			next.ServeHTTP(w, r)
		}
	})
}
