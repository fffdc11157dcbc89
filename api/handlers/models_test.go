package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentflow-gateway/gateway/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelsHandler_HandleList(t *testing.T) {
	handler := NewModelsHandler(testCatalog())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	handler.HandleList(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.ModelsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "list", resp.Object)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "gpt-4o-mini", resp.Data[0].ID)
	assert.Equal(t, "model", resp.Data[0].Object)
	assert.Equal(t, "openai", resp.Data[0].OwnedBy)
}

func TestModelsHandler_HandleList_Empty(t *testing.T) {
	handler := NewModelsHandler(nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	handler.HandleList(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.ModelsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Empty(t, resp.Data)
}
