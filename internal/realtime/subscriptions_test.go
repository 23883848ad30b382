package realtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscriptionManagerOnePerKey(t *testing.T) {
	bus := NewMemoryBus()
	mgr := NewSubscriptionManager(bus)
	defer mgr.Close()

	var first, second atomic.Int32
	topic := ParticipantTopic("alice")
	h1 := mgr.Subscribe("alice", topic, func(Event) { first.Add(1) })
	h2 := mgr.Subscribe("alice", topic, func(Event) { second.Add(1) })

	if mgr.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", mgr.Len())
	}
	if bus.Subscribers(topic) != 1 {
		t.Fatalf("bus has %d subscribers, want 1", bus.Subscribers(topic))
	}

	_ = bus.Publish(context.Background(), Event{Topic: topic})
	waitFor(t, func() bool { return second.Load() == 1 })
	if first.Load() != 0 {
		t.Error("replaced subscription still received events")
	}

	// The first handle is stale and must not remove the live subscription.
	mgr.Unsubscribe(h1)
	if mgr.Len() != 1 {
		t.Error("stale handle removed the live subscription")
	}

	mgr.Unsubscribe(h2)
	if mgr.Len() != 0 || bus.Subscribers(topic) != 0 {
		t.Error("expected no subscriptions after unsubscribe")
	}
}

func TestSubscriptionManagerKeysByUser(t *testing.T) {
	bus := NewMemoryBus()
	mgr := NewSubscriptionManager(bus)

	mgr.Subscribe("alice", "shared", func(Event) {})
	mgr.Subscribe("bob", "shared", func(Event) {})
	if mgr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", mgr.Len())
	}
	mgr.Close()
	if mgr.Len() != 0 || bus.Subscribers("shared") != 0 {
		t.Error("Close left subscriptions behind")
	}
}
