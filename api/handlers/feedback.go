package handlers

import (
	"net/http"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/api/middleware"
	"github.com/agentflow-gateway/gateway/bandit"
	"github.com/agentflow-gateway/gateway/store"
	"github.com/agentflow-gateway/gateway/types"
	"go.uber.org/zap"
)

// FeedbackHandler serves POST /api/feedback: a reward signal submitted
// against a prior completion, folded into the bandit's posterior for the
// model that served it.
type FeedbackHandler struct {
	bandit *bandit.Engine
	store  *store.Store
	logger *zap.Logger
}

// NewFeedbackHandler builds a FeedbackHandler.
func NewFeedbackHandler(b *bandit.Engine, st *store.Store, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{bandit: b, store: st, logger: logger}
}

// HandleSubmit serves POST /api/feedback.
func (h *FeedbackHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.FeedbackRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if req.Model == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "model is required"), h.logger)
		return
	}

	feedback := bandit.Feedback{CostUSD: req.CostUSD, LatencySec: req.LatencySec}
	if req.Success != nil {
		feedback.Success = req.Success
	}
	if req.Quality > 0 {
		feedback.Quality = &req.Quality
	}

	tenantID := ""
	if t := middleware.TenantFromContext(r.Context()); t != nil {
		tenantID = t.ID
	}

	reward := bandit.Reward(feedback)
	h.bandit.Update(tenantID, req.Model, reward)

	if err := h.store.InsertFeedback(feedback, req.RequestID, tenantID, req.Model); err != nil {
		h.logger.Warn("failed to persist feedback", zap.Error(err))
	}

	WriteJSON(w, http.StatusAccepted, map[string]float64{"reward": reward})
}
