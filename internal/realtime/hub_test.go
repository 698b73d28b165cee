package realtime

import (
	"testing"
	"time"

	"github.com/recallhq/recall/internal/platform/logger"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewHub(log)
}

func recvEvent(t *testing.T, c *Client) SessionEvent {
	t.Helper()
	select {
	case evt := <-c.Outbound:
		return evt
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return SessionEvent{}
	}
}

func TestHub_BroadcastReachesSubscribers(t *testing.T) {
	hub := newTestHub(t)
	a := hub.NewClient()
	b := hub.NewClient()
	hub.Subscribe(a, "s1")
	hub.Subscribe(b, "s1")

	hub.Broadcast(SessionEvent{SessionID: "s1", Event: EventReply, Reply: "hello"})

	for _, c := range []*Client{a, b} {
		evt := recvEvent(t, c)
		if evt.Reply != "hello" || evt.Event != EventReply {
			t.Fatalf("unexpected event: %+v", evt)
		}
	}
}

func TestHub_SessionsAreIsolated(t *testing.T) {
	hub := newTestHub(t)
	a := hub.NewClient()
	hub.Subscribe(a, "s1")

	hub.Broadcast(SessionEvent{SessionID: "s2", Event: EventReply, Reply: "elsewhere"})

	select {
	case evt := <-a.Outbound:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RemoveClientStopsDelivery(t *testing.T) {
	hub := newTestHub(t)
	a := hub.NewClient()
	hub.Subscribe(a, "s1")
	hub.RemoveClient(a)

	hub.Broadcast(SessionEvent{SessionID: "s1", Event: EventReply, Reply: "gone"})

	select {
	case evt := <-a.Outbound:
		t.Fatalf("unexpected event after removal: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := newTestHub(t)
	a := hub.NewClient()
	hub.Subscribe(a, "s1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < cap(a.Outbound)+5; i++ {
			hub.Broadcast(SessionEvent{SessionID: "s1", Event: EventReply, Reply: "spam"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcast blocked on a slow client")
	}
}

func TestHub_EmptySessionIDIgnored(t *testing.T) {
	hub := newTestHub(t)
	a := hub.NewClient()
	hub.Subscribe(a, "")
	if len(a.Sessions) != 0 {
		t.Fatalf("blank session id must not subscribe")
	}

	hub.Broadcast(SessionEvent{SessionID: "", Event: EventReply})
	select {
	case evt := <-a.Outbound:
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}
