package middleware

import (
	"net/http"
)

const (
	KB = 1024
	MB = 1024 * KB

	// DefaultMaxBodySize bounds JSON request bodies.
	DefaultMaxBodySize = 1 * MB

	// WebhookMaxBodySize bounds gateway webhook payloads.
	WebhookMaxBodySize = 512 * KB
)

// MaxBodySize rejects declared oversize bodies up front and caps the rest
// with http.MaxBytesReader.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondTooLarge(w, r)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
