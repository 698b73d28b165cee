// Package ws owns the websocket transport for chat sessions. Each
// connection runs a read pump feeding the session actor and a write
// pump draining a buffered send queue, so actor goroutines never block
// on a slow socket.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Session ids are unguessable by convention; browser origin checks
	// belong to the CORS layer in front of this.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ChatFrame is the outbound wire format.
type ChatFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Conn binds one websocket to one session actor. It implements the
// actor's Sender.
type Conn struct {
	log   *logger.Logger
	sock  *websocket.Conn
	actor *services.SessionActor
	send  chan []byte
	done  chan struct{}
}

// Upgrade hijacks the HTTP request into a websocket and attaches it to
// the given session actor, greeting the client before any pumping
// starts.
func Upgrade(w http.ResponseWriter, r *http.Request, log *logger.Logger, actor *services.SessionActor) (*Conn, error) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		log:   log.With("component", "WSConn"),
		sock:  sock,
		actor: actor,
		send:  make(chan []byte, sendQueueSize),
		done:  make(chan struct{}),
	}
	actor.OnConnect(c)
	go c.writePump()
	go c.readPump()
	return c, nil
}

// SendChat queues one chat frame. A connection that cannot keep up is
// closed rather than allowed to stall the session.
func (c *Conn) SendChat(text string) error {
	frame, err := json.Marshal(ChatFrame{Type: "chat", Text: text})
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	default:
		c.log.Warn("Send queue full; dropping connection")
		c.close()
		return websocket.ErrCloseSent
	}
}

// Wait blocks until the connection is torn down.
func (c *Conn) Wait() {
	<-c.done
}

func (c *Conn) close() {
	select {
	case <-c.done:
	default:
		close(c.done)
		_ = c.sock.Close()
	}
}

func (c *Conn) readPump() {
	defer c.close()
	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, payload, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Websocket read error", "error", err)
			}
			return
		}
		if err := c.actor.Deliver(context.Background(), payload, c); err != nil {
			c.log.Warn("Failed to deliver inbound message", "error", err)
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
