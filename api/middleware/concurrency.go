package middleware

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/agentflow-gateway/gateway/api"
)

// ConcurrencyLimiter caps the number of in-flight requests at max,
// rejecting with 429 concurrency_limit beyond that. The active counter is
// decremented exactly once per admitted request via defer, regardless of
// how the handler returns — panic, early write, or normal completion —
// so a request that fails to decrement can never permanently shrink the
// available slots.
func ConcurrencyLimiter(max int) Middleware {
	var active int64
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt64(&active, 1) > int64(max) {
				atomic.AddInt64(&active, -1)
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorEnvelope{Error: api.ErrorBody{
					Message: "too many concurrent requests",
					Type:    "rate_limit_error",
					Code:    "concurrency_limit",
				}})
				return
			}
			defer atomic.AddInt64(&active, -1)
			next.ServeHTTP(w, r)
		})
	}
}
