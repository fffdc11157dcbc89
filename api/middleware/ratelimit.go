package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/agentflow-gateway/gateway/api"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per caller: the authenticated
// tenant's own rate_limit_rpm (capacity = rate_limit_rpm, fill rate =
// capacity/60 per second), or per-IP at defaultRPM for anonymous or
// pass-through callers. The remaining-tokens header is set on every
// response.
func RateLimiter(ctx context.Context, defaultRPM int) Middleware {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for key, v := range visitors {
					if time.Since(v.lastSeen) > 3*time.Minute {
						delete(visitors, key)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, rpm := rateLimitKey(r, defaultRPM)

			mu.Lock()
			v, exists := visitors[key]
			if !exists {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60), rpm)}
				visitors[key] = v
			}
			v.lastSeen = time.Now()
			remaining := int(v.limiter.Tokens())
			mu.Unlock()

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

			if !v.limiter.Allow() {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorEnvelope{Error: api.ErrorBody{
					Message: "rate limit exceeded",
					Type:    "rate_limit_error",
					Code:    "rate_limit_exceeded",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request, defaultRPM int) (key string, rpm int) {
	if t := TenantFromContext(r.Context()); t != nil {
		limit := t.RateLimitRPM
		if limit <= 0 {
			limit = defaultRPM
		}
		return "tenant:" + t.ID, limit
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip, defaultRPM
}
