package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/realtime"
	"github.com/recallhq/recall/internal/repos"
	"github.com/recallhq/recall/internal/types"
)

const (
	// Greeting is sent on every new connection and never written to the
	// conversation log.
	Greeting = "Hello! How can I help you today?"

	// Apology is the fallback reply when any step of the turn pipeline
	// fails. The user's turn may already be logged at that point; the
	// apology itself is not.
	Apology = "Sorry, I hit an error and couldn't answer. Try again in a moment."

	// DefaultSystemPrompt anchors every generation call.
	DefaultSystemPrompt = "You are a helpful assistant. Use the conversation history and any relevant memory to answer."

	// DefaultMemoryTopK is how many memory snippets a turn retrieves.
	DefaultMemoryTopK = 4

	// DefaultMailboxSize bounds how many inbound messages queue per
	// session before senders block.
	DefaultMailboxSize = 16
)

// MemoryRetriever is the slice of MemoryService a session needs.
type MemoryRetriever interface {
	Retrieve(ctx context.Context, queryText string, k int) []types.MemorySnippet
}

// Generator is the slice of GenerationService a session needs.
type Generator interface {
	Generate(ctx context.Context, messages []types.Message) (string, error)
}

// EventSink receives session state events. Satisfied by the event bus.
type EventSink interface {
	Publish(ctx context.Context, evt realtime.SessionEvent) error
}

// Sender delivers outbound chat frames to one connected client.
type Sender interface {
	SendChat(text string) error
}

// SessionConfig tunes per-turn behavior. Zero values fall back to the
// package defaults.
type SessionConfig struct {
	SystemPrompt string
	RecentWindow int
	MemoryTopK   int
	MailboxSize  int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = DefaultRecentWindow
	}
	if c.MemoryTopK <= 0 {
		c.MemoryTopK = DefaultMemoryTopK
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = DefaultMailboxSize
	}
	return c
}

type inboundMsg struct {
	payload []byte
	sender  Sender
}

// SessionActor owns all state for one session id. Messages are handled
// one at a time by a single goroutine draining the mailbox, so two
// clients on the same session can never interleave a turn.
type SessionActor struct {
	id     string
	log    *logger.Logger
	cfg    SessionConfig
	turns  repos.TurnRepo
	memory MemoryRetriever
	gen    Generator
	events EventSink

	mailbox chan inboundMsg
	stop    chan struct{}
	once    sync.Once

	// Touched only by the mailbox goroutine.
	schemaReady bool

	mu        sync.RWMutex
	lastReply string
}

func NewSessionActor(id string, log *logger.Logger, cfg SessionConfig, turns repos.TurnRepo, memory MemoryRetriever, gen Generator, events EventSink) *SessionActor {
	cfg = cfg.withDefaults()
	a := &SessionActor{
		id:      id,
		log:     log.With("service", "SessionActor", "session_id", id),
		cfg:     cfg,
		turns:   turns,
		memory:  memory,
		gen:     gen,
		events:  events,
		mailbox: make(chan inboundMsg, cfg.MailboxSize),
		stop:    make(chan struct{}),
	}
	a.once.Do(func() { go a.run() })
	return a
}

func (a *SessionActor) run() {
	for {
		select {
		case <-a.stop:
			return
		case msg := <-a.mailbox:
			a.handle(msg)
		}
	}
}

// Deliver enqueues one inbound payload for processing. It blocks when
// the mailbox is full so a flooding client backs itself up instead of
// losing messages.
func (a *SessionActor) Deliver(ctx context.Context, payload []byte, sender Sender) error {
	select {
	case a.mailbox <- inboundMsg{payload: payload, sender: sender}:
		return nil
	case <-a.stop:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnConnect greets a newly attached client. The greeting is ephemeral
// and does not enter the conversation log.
func (a *SessionActor) OnConnect(sender Sender) {
	if err := sender.SendChat(Greeting); err != nil {
		a.log.Warn("Failed to send greeting", "error", err)
		return
	}
	a.publish(realtime.EventGreeting, "")
}

// LastReply returns the most recent reply this session produced,
// including the apology fallback. Empty before the first turn.
func (a *SessionActor) LastReply() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastReply
}

func (a *SessionActor) Stop() {
	select {
	case <-a.stop:
	default:
		close(a.stop)
	}
}

func (a *SessionActor) handle(msg inboundMsg) {
	ctx := context.Background()
	text := parseInbound(msg.payload)

	reply, err := a.runTurn(ctx, text)
	if err != nil {
		a.log.Error("Turn failed; sending fallback", "error", err)
		reply = Apology
	}

	a.mu.Lock()
	a.lastReply = reply
	a.mu.Unlock()

	a.publish(realtime.EventReply, reply)

	if msg.sender != nil {
		if sendErr := msg.sender.SendChat(reply); sendErr != nil {
			a.log.Warn("Failed to deliver reply", "error", sendErr)
		}
	}
}

// runTurn executes the full pipeline for one user message. Any error
// short-circuits into the apology path; the assistant turn is only
// logged when generation and logging both succeed.
func (a *SessionActor) runTurn(ctx context.Context, text string) (string, error) {
	// Only success is latched. A failed ensure fails this turn alone and
	// is retried on the next message, so a store hiccup at startup does
	// not wedge the session.
	if !a.schemaReady {
		if err := a.turns.EnsureSchema(ctx); err != nil {
			return "", err
		}
		a.schemaReady = true
	}

	if _, err := a.turns.Append(ctx, a.id, types.RoleUser, text); err != nil {
		return "", err
	}

	// Best effort. A degraded vector store still yields a history-only
	// reply.
	memory := a.memory.Retrieve(ctx, text, a.cfg.MemoryTopK)

	recent, err := a.turns.Recent(ctx, a.id, a.cfg.RecentWindow)
	if err != nil {
		return "", err
	}

	messages := AssembleContext(recent, memory, a.cfg.SystemPrompt)

	reply, err := a.gen.Generate(ctx, messages)
	if err != nil {
		return "", err
	}

	if _, err := a.turns.Append(ctx, a.id, types.RoleAssistant, reply); err != nil {
		return "", err
	}
	return reply, nil
}

func (a *SessionActor) publish(event realtime.Event, reply string) {
	if a.events == nil {
		return
	}
	evt := realtime.SessionEvent{
		SessionID: a.id,
		Event:     event,
		Reply:     reply,
		TS:        time.Now().Unix(),
	}
	if err := a.events.Publish(context.Background(), evt); err != nil {
		a.log.Warn("Failed to publish session event", "error", err)
	}
}

// parseInbound extracts the user text from a raw frame. JSON objects
// with a string "text" field win; anything else is treated as plain
// text verbatim.
func parseInbound(payload []byte) string {
	var frame struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(payload, &frame); err == nil && frame.Text != nil {
		return *frame.Text
	}
	return string(payload)
}

// SessionRegistry hands out the single actor per session id. It is the
// only process-global mutable state; everything else lives inside an
// actor or the database.
type SessionRegistry struct {
	mu     sync.Mutex
	actors map[string]*SessionActor

	log    *logger.Logger
	cfg    SessionConfig
	turns  repos.TurnRepo
	memory MemoryRetriever
	gen    Generator
	events EventSink
}

func NewSessionRegistry(log *logger.Logger, cfg SessionConfig, turns repos.TurnRepo, memory MemoryRetriever, gen Generator, events EventSink) *SessionRegistry {
	return &SessionRegistry{
		actors: make(map[string]*SessionActor),
		log:    log,
		cfg:    cfg,
		turns:  turns,
		memory: memory,
		gen:    gen,
		events: events,
	}
}

// Get returns the actor for a session id, creating and starting it on
// first use.
func (r *SessionRegistry) Get(sessionID string) *SessionActor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.actors[sessionID]; ok {
		return a
	}
	a := NewSessionActor(sessionID, r.log, r.cfg, r.turns, r.memory, r.gen, r.events)
	r.actors[sessionID] = a
	return a
}

// Peek returns the actor for a session id without creating one.
func (r *SessionRegistry) Peek(sessionID string) (*SessionActor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.actors[sessionID]
	return a, ok
}

func (r *SessionRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.actors {
		a.Stop()
	}
}
