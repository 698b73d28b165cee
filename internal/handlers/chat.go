package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/services"
	"github.com/recallhq/recall/internal/ws"
)

type ChatHandler struct {
	log      *logger.Logger
	registry *services.SessionRegistry
}

func NewChatHandler(log *logger.Logger, registry *services.SessionRegistry) *ChatHandler {
	return &ChatHandler{
		log:      log.With("handler", "ChatHandler"),
		registry: registry,
	}
}

// Connect upgrades the request to a websocket bound to the session
// actor named in the path. Any number of sockets may share a session;
// the actor serializes their turns.
func (h *ChatHandler) Connect(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		RespondError(c, http.StatusBadRequest, "missing_session_id", fmt.Errorf("session id is required"))
		return
	}

	actor := h.registry.Get(sessionID)
	conn, err := ws.Upgrade(c.Writer, c.Request, h.log, actor)
	if err != nil {
		// Upgrade failures already wrote the HTTP response.
		h.log.Warn("Websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	conn.Wait()
}
