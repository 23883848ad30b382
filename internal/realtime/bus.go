// Package realtime is the change feed: row-change events published on
// topics, per-user subscriptions and the unread-count aggregator built on
// top of them.
package realtime

import (
	"context"
	"log"
	"sync"
	"time"
)

// Operation is the kind of row change.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Event is one row change published on a topic.
type Event struct {
	Topic    string    `json:"topic"`
	Table    string    `json:"table"`
	Op       Operation `json:"op"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// RoutesTopic carries route offer changes to open map sessions.
const RoutesTopic = "routes"

// ParticipantTopic is the topic carrying changes to userID's conversation
// participant rows.
func ParticipantTopic(userID string) string {
	return "participants:" + userID
}

// Subscription delivers the events of one topic until closed.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Bus publishes and subscribes to topics.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(topic string) Subscription
	Close() error
}

// subscriberBuffer is how many undelivered events a slow subscriber may
// queue before further events are dropped for it.
const subscriberBuffer = 32

// MemoryBus is a process-local Bus.
type MemoryBus struct {
	mu     sync.RWMutex
	topics map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{topics: make(map[string]map[*memorySubscription]struct{})}
}

// Publish delivers ev to every current subscriber of ev.Topic without
// blocking; a subscriber whose buffer is full misses the event.
func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.topics[ev.Topic] {
		select {
		case sub.ch <- ev:
		default:
			log.Printf("[REALTIME] subscriber on %s is slow, dropping event", ev.Topic)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(topic string) Subscription {
	sub := &memorySubscription{bus: b, topic: topic, ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySubscription]struct{})
	}
	b.topics[topic][sub] = struct{}{}
	return sub
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.topics {
		for sub := range subs {
			sub.done = true
			close(sub.ch)
		}
		delete(b.topics, topic)
	}
	return nil
}

type memorySubscription struct {
	bus   *MemoryBus
	topic string
	ch    chan Event
	done  bool // guarded by bus.mu
}

func (s *memorySubscription) Events() <-chan Event { return s.ch }

func (s *memorySubscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	delete(s.bus.topics[s.topic], s)
	if len(s.bus.topics[s.topic]) == 0 {
		delete(s.bus.topics, s.topic)
	}
	close(s.ch)
}
