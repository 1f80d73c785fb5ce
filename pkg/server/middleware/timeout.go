package middleware

import (
	"net/http"
	"time"
)

// Timeout wraps next with a hard wall-clock bound. It must never wrap the
// forwarding engine's routes — their streaming responses have no fixed
// deadline beyond the sum of per-attempt timeouts (SPEC_FULL.md §5) — so it
// is only applied to the bounded admin CRUD routes.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}
