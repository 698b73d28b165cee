// Package bus carries session events between processes. With Redis
// configured, events published on one replica are forwarded into the
// hub of every replica; without it, a local bus keeps single-process
// deployments working unchanged.
package bus

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/recallhq/recall/internal/platform/logger"
	"github.com/recallhq/recall/internal/realtime"
	"github.com/recallhq/recall/internal/utils"
)

type Bus interface {
	Publish(ctx context.Context, evt realtime.SessionEvent) error
	StartForwarder(ctx context.Context, hub *realtime.Hub)
	Close() error
}

// localBus delivers straight into the in-process hub.
type localBus struct {
	hub *realtime.Hub
}

func (b *localBus) Publish(_ context.Context, evt realtime.SessionEvent) error {
	b.hub.Broadcast(evt)
	return nil
}

func (b *localBus) StartForwarder(context.Context, *realtime.Hub) {}

func (b *localBus) Close() error { return nil }

type redisBus struct {
	log     *logger.Logger
	client  *redis.Client
	channel string
}

// New returns a Redis-backed bus when REDIS_ADDR is set, a local bus
// otherwise.
func New(log *logger.Logger, hub *realtime.Hub) Bus {
	addr := utils.GetEnv("REDIS_ADDR", "", log)
	if addr == "" {
		log.Info("REDIS_ADDR not set; using in-process session event bus")
		return &localBus{hub: hub}
	}
	channel := utils.GetEnv("REDIS_CHANNEL", "recall:session-events", log)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: utils.GetEnv("REDIS_PASSWORD", "", log),
		DB:       utils.GetEnvAsInt("REDIS_DB", 0, log),
	})
	return &redisBus{
		log:     log.With("component", "RedisBus"),
		client:  client,
		channel: channel,
	}
}

func (b *redisBus) Publish(ctx context.Context, evt realtime.SessionEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// StartForwarder subscribes to the bus channel and re-broadcasts every
// event into the local hub. It returns once the subscription is live.
func (b *redisBus) StartForwarder(ctx context.Context, hub *realtime.Hub) {
	sub := b.client.Subscribe(ctx, b.channel)
	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var evt realtime.SessionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.log.Warn("Dropping malformed bus payload", "error", err)
					continue
				}
				hub.Broadcast(evt)
			}
		}
	}()
	b.log.Info("Session event forwarder started", "channel", b.channel)
}

func (b *redisBus) Close() error {
	return b.client.Close()
}
