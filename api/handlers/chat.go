package handlers

import (
	"net/http"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/api/middleware"
	"github.com/agentflow-gateway/gateway/orchestrator"
	"github.com/agentflow-gateway/gateway/types"
	"go.uber.org/zap"
)

// ChatHandler serves POST /v1/chat/completions, the gateway's single
// inference endpoint — routing, caching, fallback, and cost accounting
// all live in the orchestrator; this layer only translates HTTP <-> it.
type ChatHandler struct {
	orch   *orchestrator.Orchestrator
	logger *zap.Logger
}

// NewChatHandler builds a ChatHandler bound to an orchestrator.
func NewChatHandler(orch *orchestrator.Orchestrator, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{orch: orch, logger: logger}
}

// HandleCompletion serves both the streaming and non-streaming paths:
// body.stream selects which orchestrator method is called.
func (h *ChatHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.CompletionRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if err := validateCompletionRequest(&req); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	orchReq := orchestrator.Request{
		RequestID:   middleware.RequestIDFromContext(r.Context()),
		Tenant:      middleware.TenantFromContext(r.Context()),
		Messages:    req.Messages,
		Model:       req.Model,
		Strategy:    req.Strategy,
		Stream:      req.Stream,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
	}

	if req.Stream {
		h.handleStream(w, r, orchReq)
		return
	}

	resp, orchErr := h.orch.HandleCompletion(r.Context(), orchReq)
	if orchErr != nil {
		WriteError(w, orchErr, h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Routed-Model", resp.Routing.ModelSelected)
	w.Header().Set("X-Routed-Provider", resp.Routing.Provider)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request, orchReq orchestrator.Request) {
	resp, orchErr := h.orch.HandleCompletionStream(r.Context(), orchReq)
	if orchErr != nil {
		WriteError(w, orchErr, h.logger)
		return
	}
	defer resp.Cancel()

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Routed-Model", resp.Model)
	w.Header().Set("X-Routed-Provider", resp.Provider)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range resp.Chunks {
		if chunk.Err != nil {
			h.logger.Error("stream error", zap.Error(chunk.Err))
			break
		}
		if _, err := w.Write(chunk.Data); err != nil {
			return
		}
		flusher.Flush()
		if chunk.Done {
			break
		}
	}
}

func validateCompletionRequest(req *api.CompletionRequest) *types.Error {
	if len(req.Messages) == 0 {
		return types.NewError(types.ErrInvalidRequest, "messages cannot be empty")
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return types.NewError(types.ErrInvalidRequest, "temperature must be between 0 and 2")
	}
	if req.TopP < 0 || req.TopP > 1 {
		return types.NewError(types.ErrInvalidRequest, "top_p must be between 0 and 1")
	}
	return nil
}
