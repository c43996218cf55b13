// Package httputil holds request helpers shared by the API middleware.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller's address, used as the key for per-client
// limits and in request logs.
//
// With trustProxy, the leftmost X-Forwarded-For entry and then X-Real-IP are
// used when they hold a parseable IP; anything else falls back to
// RemoteAddr. Only enable trustProxy behind a reverse proxy that sets these
// headers itself.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := canonicalIP(first); ip != "" {
				return ip
			}
		}
		if ip := canonicalIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := canonicalIP(host); ip != "" {
		return ip
	}
	return host
}

// canonicalIP returns s in canonical textual form, or "" when it is not an IP.
func canonicalIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
