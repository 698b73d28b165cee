package bus

import (
	"context"
	"testing"
	"time"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/realtime"
)

func TestNew_LocalBusWithoutRedis(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Setenv("REDIS_ADDR", "")

	hub := realtime.NewHub(log)
	b := New(log, hub)
	t.Cleanup(func() { _ = b.Close() })

	if _, ok := b.(*localBus); !ok {
		t.Fatalf("expected local bus, got %T", b)
	}

	client := hub.NewClient()
	hub.Subscribe(client, "s1")

	evt := realtime.SessionEvent{SessionID: "s1", Event: realtime.EventReply, Reply: "hi", TS: time.Now().Unix()}
	if err := b.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-client.Outbound:
		if got.Reply != "hi" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("event never reached the hub")
	}
}

func TestNew_RedisBusWhenAddrSet(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_CHANNEL", "")

	hub := realtime.NewHub(log)
	b := New(log, hub)
	t.Cleanup(func() { _ = b.Close() })

	rb, ok := b.(*redisBus)
	if !ok {
		t.Fatalf("expected redis bus, got %T", b)
	}
	if rb.channel != "recall:session-events" {
		t.Fatalf("default channel: %q", rb.channel)
	}
}
