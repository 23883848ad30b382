package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out across server instances. Publish goes to redis
// only; one pattern subscription per instance feeds every received event
// into a local MemoryBus, which serves the Subscribe side.
type RedisBus struct {
	rdb    *redis.Client
	prefix string
	local  *MemoryBus
	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedisBus subscribes to prefix:* and starts relaying.
func NewRedisBus(ctx context.Context, rdb *redis.Client, prefix string) (*RedisBus, error) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("realtime: redis ping: %w", err)
	}
	b := &RedisBus{
		rdb:    rdb,
		prefix: strings.TrimSuffix(prefix, ":") + ":",
		local:  NewMemoryBus(),
		done:   make(chan struct{}),
	}
	b.pubsub = rdb.PSubscribe(ctx, b.prefix+"*")
	go b.relay()
	return b, nil
}

func (b *RedisBus) relay() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("[REALTIME] bad payload on %s: %v", msg.Channel, err)
			continue
		}
		ev.Topic = strings.TrimPrefix(msg.Channel, b.prefix)
		_ = b.local.Publish(context.Background(), ev)
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("realtime: encode event: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.prefix+ev.Topic, payload).Err(); err != nil {
		return fmt.Errorf("realtime: publish %s: %w", ev.Topic, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(topic string) Subscription {
	return b.local.Subscribe(topic)
}

// Close stops relaying and ends local subscriptions. The redis client is
// owned by the caller.
func (b *RedisBus) Close() error {
	err := b.pubsub.Close()
	<-b.done
	_ = b.local.Close()
	return err
}
