package realtime

import (
	"sync"
)

// Handle identifies one Subscribe call. Unsubscribing with a stale handle
// (one whose key was re-subscribed since) is a no-op.
type Handle struct {
	UserID string
	Topic  string
	id     uint64
}

type subKey struct {
	userID string
	topic  string
}

type subEntry struct {
	id   uint64
	sub  Subscription
	done chan struct{}
}

// SubscriptionManager owns every live subscription, keyed by (user, topic).
// At most one subscription exists per key: subscribing again replaces the
// previous one.
type SubscriptionManager struct {
	bus Bus

	mu     sync.Mutex
	nextID uint64
	subs   map[subKey]*subEntry
}

func NewSubscriptionManager(bus Bus) *SubscriptionManager {
	return &SubscriptionManager{bus: bus, subs: make(map[subKey]*subEntry)}
}

// Subscribe calls fn, from a dedicated goroutine, for every event on topic
// until the returned handle is unsubscribed.
func (m *SubscriptionManager) Subscribe(userID, topic string, fn func(Event)) Handle {
	key := subKey{userID: userID, topic: topic}

	m.mu.Lock()
	m.nextID++
	entry := &subEntry{id: m.nextID, sub: m.bus.Subscribe(topic), done: make(chan struct{})}
	prev := m.subs[key]
	m.subs[key] = entry
	m.mu.Unlock()

	if prev != nil {
		prev.sub.Close()
	}

	go func() {
		defer close(entry.done)
		for ev := range entry.sub.Events() {
			fn(ev)
		}
	}()
	return Handle{UserID: userID, Topic: topic, id: entry.id}
}

// Unsubscribe ends the subscription behind h and waits until its callback
// goroutine has returned.
func (m *SubscriptionManager) Unsubscribe(h Handle) {
	key := subKey{userID: h.UserID, topic: h.Topic}

	m.mu.Lock()
	entry, ok := m.subs[key]
	if !ok || entry.id != h.id {
		m.mu.Unlock()
		return
	}
	delete(m.subs, key)
	m.mu.Unlock()

	entry.sub.Close()
	<-entry.done
}

// Len returns the number of live subscriptions.
func (m *SubscriptionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Close ends every subscription.
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	entries := make([]*subEntry, 0, len(m.subs))
	for key, e := range m.subs {
		entries = append(entries, e)
		delete(m.subs, key)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.sub.Close()
		<-e.done
	}
}
