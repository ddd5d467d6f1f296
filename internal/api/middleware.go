// Package api implements the outline REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through. token may be the secret
// itself or a bcrypt hash of it.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	match := tokenMatcher(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got == "" || !match(got) {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IsTokenHash reports whether s looks like a bcrypt hash.
func IsTokenHash(s string) bool {
	for _, p := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func tokenMatcher(token string) func(string) bool {
	if IsTokenHash(token) {
		hash := []byte(token)
		return func(got string) bool {
			return bcrypt.CompareHashAndPassword(hash, []byte(got)) == nil
		}
	}
	want := []byte(token)
	return func(got string) bool {
		return subtle.ConstantTimeCompare([]byte(got), want) == 1
	}
}
