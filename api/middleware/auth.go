package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/tenant"
)

// upstreamKeyPrefixes are vendor API key prefixes allowed to pass
// through without gateway tenant authentication.
var upstreamKeyPrefixes = []string{"sk-", "ant-"}

type tenantKey struct{}

// WithTenant attaches t to ctx, for downstream handlers to read via
// TenantFromContext. A nil t marks the caller as anonymous or
// pass-through.
func WithTenant(ctx context.Context, t *tenant.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFromContext returns the tenant attached by APIKeyAuth, or nil
// for an anonymous or pass-through caller.
func TenantFromContext(ctx context.Context) *tenant.Tenant {
	t, _ := ctx.Value(tenantKey{}).(*tenant.Tenant)
	return t
}

func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// APIKeyAuth authenticates the Authorization: Bearer / x-api-key header.
// A tenant-issued key (tenant.KeyPrefix) must resolve via
// mgr.Authenticate or the request is rejected with 401 invalid_api_key;
// upstream vendor keys pass through with no tenant; any other prefix
// passes through anonymously. skipPaths bypass auth entirely (health,
// metrics).
func APIKeyAuth(mgr *tenant.Manager, skipPaths []string) Middleware {
	skipSet := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skipSet[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, skip := skipSet[r.URL.Path]; skip {
				next.ServeHTTP(w, r)
				return
			}

			key := extractKey(r)

			if strings.HasPrefix(key, tenant.KeyPrefix) {
				t, err := mgr.Authenticate(key)
				if err != nil {
					writeAuthError(w)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
				return
			}

			for _, prefix := range upstreamKeyPrefixes {
				if strings.HasPrefix(key, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			if key == "" {
				writeAuthError(w)
				return
			}

			// Unrecognized prefix: pass through anonymously.
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.ErrorEnvelope{Error: api.ErrorBody{
		Message: "invalid or missing API key",
		Type:    "authentication_error",
		Code:    "invalid_api_key",
	}})
}
