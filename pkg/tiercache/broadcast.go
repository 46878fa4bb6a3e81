package tiercache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SyncSignal announces to sibling execution contexts that a key changed.
// Delivery is best-effort; receivers are free to ignore it. No consistency
// is built on top of it.
type SyncSignal struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Broadcaster pushes best-effort change signals to sibling contexts.
type Broadcaster interface {
	Announce(ctx context.Context, sig SyncSignal) error
	Close() error
}

// DefaultSyncChannel is the well-known channel siblings subscribe to.
const DefaultSyncChannel = "tiercache:sync"

// RedisBroadcaster delivers change signals over Redis pub/sub.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
}

// NewRedisBroadcaster creates a broadcaster publishing on the given channel.
// If channel is empty, DefaultSyncChannel is used. The client is owned by
// the caller and is not closed by Close.
func NewRedisBroadcaster(client *redis.Client, channel string) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultSyncChannel
	}
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
	}
}

func (b *RedisBroadcaster) Announce(ctx context.Context, sig SyncSignal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("failed to marshal sync signal: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Subscribe delivers signals published by sibling contexts to handler on a
// background goroutine. Malformed payloads are dropped. The returned stop
// function unsubscribes and stops delivery.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, handler func(SyncSignal)) func() {
	sub := b.client.Subscribe(ctx, b.channel)
	done := make(chan struct{})

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var sig SyncSignal
				if err := json.Unmarshal([]byte(msg.Payload), &sig); err != nil {
					continue
				}
				handler(sig)
			}
		}
	}()

	return func() {
		close(done)
		_ = sub.Close()
	}
}

func (b *RedisBroadcaster) Close() error {
	return nil
}
