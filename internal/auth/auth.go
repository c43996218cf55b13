// Package auth enforces a static bearer token on the mutating and
// compute-heavy API routes.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// computeHeavy lists read routes that still require a token because they
// propagate the whole catalogue.
var computeHeavy = map[string]bool{
	"/api/v1/vectors": true,
}

// protected reports whether r needs a token. Every request that is not a
// plain read is protected, so new POST routes are never public by accident.
func protected(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return true
	}
	return computeHeavy[r.URL.Path]
}

// bearerToken returns the credentials of an "Authorization: Bearer" header.
// The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (cfg Config) accepts(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) == 1
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on protected requests when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || !protected(r) {
				next.ServeHTTP(w, r)
				return
			}
			if token, ok := bearerToken(r); !ok || !cfg.accepts(token) {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="geoloc"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "kind": "unauthorized"})
}
