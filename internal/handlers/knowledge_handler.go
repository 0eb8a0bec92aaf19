package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/services/knowledge"
)

// KnowledgeServiceInterface defines the methods needed from the knowledge service
type KnowledgeServiceInterface interface {
	Query(ctx context.Context, question string) (*knowledge.Answer, error)
}

// KnowledgeHandler handles knowledge base question HTTP requests
type KnowledgeHandler struct {
	knowledgeService KnowledgeServiceInterface
	logger           arbor.ILogger
}

// NewKnowledgeHandler creates a new knowledge handler. The service may be
// nil when no AI provider is available.
func NewKnowledgeHandler(knowledgeService KnowledgeServiceInterface, logger arbor.ILogger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledgeService: knowledgeService,
		logger:           logger,
	}
}

// QueryHandler handles POST /api/rag/query - answers a question grounded
// in the seeded knowledge base.
func (h *KnowledgeHandler) QueryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	if h.knowledgeService == nil {
		WriteError(w, http.StatusServiceUnavailable, "Knowledge base is not available. Check AI provider configuration.")
		return
	}

	var req struct {
		Question string `json:"question"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Question == "" {
		WriteError(w, http.StatusBadRequest, "Question is required")
		return
	}

	answer, err := h.knowledgeService.Query(r.Context(), req.Question)
	if err != nil {
		h.logger.Error().Err(err).Msg("Knowledge query failed")
		WriteError(w, http.StatusInternalServerError, "Failed to answer question: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"answer":  answer.Text,
		"sources": answer.Sources,
	})
}
