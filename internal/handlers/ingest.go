package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/services"
	"github.com/recallhq/recall/internal/types"
)

type IngestHandler struct {
	log           *logger.Logger
	ingestService *services.IngestService
}

func NewIngestHandler(log *logger.Logger, ingestService *services.IngestService) *IngestHandler {
	return &IngestHandler{
		log:           log.With("handler", "IngestHandler"),
		ingestService: ingestService,
	}
}

// Ingest accepts a document for asynchronous chunk/embed/upsert
// processing and answers 202 once the run is dispatched.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req struct {
		DocID string `json:"doc_id"`
		Text  string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	accepted, err := h.ingestService.Ingest(c.Request.Context(), types.Document{
		ID:   req.DocID,
		Text: req.Text,
	})
	if err != nil {
		h.log.Error("Ingest dispatch failed", "doc_id", req.DocID, "error", err)
		RespondError(c, http.StatusBadRequest, "ingest_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, accepted)
}
