// Package authmw provides HTTP middleware for API token authentication.
package authmw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIToken returns middleware that accepts the configured token either as an
// Authorization Bearer credential or in the X-Api-Key header. Comparison uses
// constant-time equality to prevent timing side-channel attacks.
func APIToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := credential(r)
			if !ok {
				http.Error(w, `{"error":"missing or malformed credentials"}`, http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare(got, expected) != 1 {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// credential extracts the presented token, preferring the Authorization
// header over X-Api-Key.
func credential(r *http.Request) ([]byte, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if !strings.HasPrefix(auth, "Bearer ") {
			return nil, false
		}
		return []byte(auth[len("Bearer "):]), true
	}
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return []byte(key), true
	}
	return nil, false
}
