package handlers

import (
	"net/http"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/agentflow-gateway/gateway/router"
)

// ModelsHandler serves GET /v1/models, the catalog rendered in
// OpenAI-compatible shape so existing OpenAI SDK clients can point at the
// gateway unmodified.
type ModelsHandler struct {
	catalog []router.ModelEntry
}

// NewModelsHandler builds a ModelsHandler over a static catalog.
func NewModelsHandler(catalog []router.ModelEntry) *ModelsHandler {
	return &ModelsHandler{catalog: catalog}
}

// HandleList serves GET /v1/models.
func (h *ModelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	data := make([]api.ModelObject, len(h.catalog))
	for i, m := range h.catalog {
		data[i] = api.ModelObject{ID: m.ID, Object: "model", OwnedBy: m.Provider}
	}
	WriteJSON(w, http.StatusOK, api.ModelsResponse{Object: "list", Data: data})
}
