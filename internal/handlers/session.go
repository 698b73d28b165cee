package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/realtime"
	"github.com/recallhq/recall/internal/services"
)

type SessionHandler struct {
	log            *logger.Logger
	registry       *services.SessionRegistry
	summaryService *services.SummaryService
	hub            *realtime.Hub
}

func NewSessionHandler(log *logger.Logger, registry *services.SessionRegistry, summaryService *services.SummaryService, hub *realtime.Hub) *SessionHandler {
	return &SessionHandler{
		log:            log.With("handler", "SessionHandler"),
		registry:       registry,
		summaryService: summaryService,
		hub:            hub,
	}
}

func (h *SessionHandler) sessionID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("session_id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "missing_session_id", nil)
		return "", false
	}
	return id, true
}

// Summary digests the session's recent turns on demand.
func (h *SessionHandler) Summary(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	summary, err := h.summaryService.Summarize(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error("Summarize failed", "session_id", sessionID, "error", err)
		RespondError(c, http.StatusInternalServerError, "summarize_failed", err)
		return
	}
	RespondOK(c, gin.H{"session_id": sessionID, "summary": summary})
}

// State exposes the session's last reply mirror. A session this process
// has never seen reports an empty reply rather than an error.
func (h *SessionHandler) State(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	lastReply := ""
	if actor, found := h.registry.Peek(sessionID); found {
		lastReply = actor.LastReply()
	}
	RespondOK(c, gin.H{"session_id": sessionID, "last_reply": lastReply})
}

// Events streams session events over SSE until the client goes away.
func (h *SessionHandler) Events(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}
	client := h.hub.NewClient()
	h.hub.Subscribe(client, sessionID)
	defer h.hub.CloseClient(client)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
