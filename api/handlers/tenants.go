package handlers

import (
	"net/http"
	"time"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/store"
	"github.com/agentflow-gateway/gateway/tenant"
	"github.com/agentflow-gateway/gateway/types"
	"go.uber.org/zap"
)

// TenantsHandler serves POST/GET /api/tenants.
type TenantsHandler struct {
	manager *tenant.Manager
	store   *store.Store
	logger  *zap.Logger
}

// NewTenantsHandler builds a TenantsHandler.
func NewTenantsHandler(manager *tenant.Manager, st *store.Store, logger *zap.Logger) *TenantsHandler {
	return &TenantsHandler{manager: manager, store: st, logger: logger}
}

// HandleCreate serves POST /api/tenants: issues a new tenant key, which
// is returned exactly once in the response body and never again.
func (h *TenantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.CreateTenantRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Name == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "name is required"), h.logger)
		return
	}

	plaintext, t, err := h.manager.Issue(req.Name, req.BudgetLimitMonth, req.RateLimitRPM, req.RateLimitTPM, req.ModelAllowlist, req.DefaultStrategy)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to issue tenant").WithCause(err), h.logger)
		return
	}

	WriteJSON(w, http.StatusCreated, api.CreateTenantResponse{
		ID:               t.ID,
		Name:             t.Name,
		Key:              plaintext,
		BudgetLimitMonth: t.BudgetLimitMonth,
		RateLimitRPM:     t.RateLimitRPM,
		RateLimitTPM:     t.RateLimitTPM,
		DefaultStrategy:  t.DefaultStrategy,
	})
}

// HandleList serves GET /api/tenants: every tenant's metadata, never the
// key itself (only CreateTenant returns the plaintext key, once).
func (h *TenantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.ListTenants()
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "failed to list tenants").WithCause(err), h.logger)
		return
	}

	items := make([]api.TenantListItem, len(tenants))
	for i, t := range tenants {
		items[i] = api.TenantListItem{
			ID:               t.ID,
			Name:             t.Name,
			BudgetLimitMonth: t.BudgetLimitMonth,
			UsageThisMonth:   t.UsageThisMonth,
			RateLimitRPM:     t.RateLimitRPM,
			RateLimitTPM:     t.RateLimitTPM,
			ModelAllowlist:   t.ModelAllowlist,
			DefaultStrategy:  t.DefaultStrategy,
			CreatedAt:        t.CreatedAt.Format(time.RFC3339),
		}
	}
	WriteJSON(w, http.StatusOK, api.TenantListResponse{Tenants: items})
}
