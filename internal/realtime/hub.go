package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recallhq/recall/internal/platform/logger"
)

type Event string

const (
	// EventReply fires after a session produced a reply (success or
	// fallback); Data carries the new lastReply mirror.
	EventReply Event = "SessionReply"
	// EventGreeting fires when a session connection opens.
	EventGreeting Event = "SessionGreeting"
)

// SessionEvent is what observers of session state see. It mirrors the
// actor's lastReply; the conversation log stays the authority.
type SessionEvent struct {
	SessionID string `json:"session_id"`
	Event     Event  `json:"event"`
	Reply     string `json:"reply,omitempty"`
	TS        int64  `json:"ts"`
}

type Client struct {
	ID       uuid.UUID
	Sessions map[string]bool
	Outbound chan SessionEvent
	done     chan struct{}
}

// Hub fans session events out to streaming observers, keyed by session id.
type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*Client]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:        log.With("component", "SessionHub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (hub *Hub) NewClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Sessions: make(map[string]bool),
		Outbound: make(chan SessionEvent, 10),
		done:     make(chan struct{}),
	}
}

func (hub *Hub) Subscribe(client *Client, sessionID string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}

	client.Sessions[sessionID] = true

	clients, exists := hub.subscriptions[sessionID]
	if !exists {
		clients = make(map[*Client]bool)
		hub.subscriptions[sessionID] = clients
	}
	clients[client] = true

	hub.logger.Debug("Observer subscribed", "client_id", client.ID, "session_id", sessionID)
}

func (hub *Hub) RemoveClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for id := range client.Sessions {
		if subMap, ok := hub.subscriptions[id]; ok {
			delete(subMap, client)
			if len(subMap) == 0 {
				delete(hub.subscriptions, id)
			}
		}
	}
	client.Sessions = make(map[string]bool)
	hub.logger.Debug("Observer unsubscribed from all sessions", "client_id", client.ID)
}

func (hub *Hub) Broadcast(evt SessionEvent) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if evt.SessionID == "" {
		return
	}
	clientsMap, ok := hub.subscriptions[evt.SessionID]
	if !ok {
		return
	}
	for c := range clientsMap {
		select {
		case c.Outbound <- evt:
		default:
			hub.logger.Warn("Dropping session event; outbound buffer full", "client_id", c.ID)
		}
	}
}

// ServeHTTP streams events to one observer as server-sent events.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			hub.logger.Debug("Observer context done", "client_id", client.ID, "err", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case evt := <-client.Outbound:
			jsonBytes, err := json.Marshal(evt)
			if err != nil {
				hub.logger.Warn("Failed to marshal session event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: message\ndata: %s\n\n", string(jsonBytes))
			flusher.Flush()
		}
	}
}

func (hub *Hub) CloseClient(client *Client) {
	close(client.done)
	hub.RemoveClient(client)
	close(client.Outbound)
}
