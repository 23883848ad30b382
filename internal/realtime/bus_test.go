package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestMemoryBusDeliversToTopicSubscribersOnly(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	alice := bus.Subscribe(ParticipantTopic("alice"))
	bob := bus.Subscribe(ParticipantTopic("bob"))

	ev := Event{Topic: ParticipantTopic("alice"), Table: "participants", Op: OpUpdate, RecordID: "c1"}
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got := recv(t, alice.Events())
	if got.RecordID != "c1" || got.At.IsZero() {
		t.Errorf("unexpected event %+v", got)
	}
	select {
	case ev := <-bob.Events():
		t.Errorf("bob received %+v", ev)
	default:
	}
}

func TestMemoryBusCloseSubscription(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.Subscribe("t")
	if bus.Subscribers("t") != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	sub.Close()
	sub.Close()
	if bus.Subscribers("t") != 0 {
		t.Errorf("expected 0 subscribers after close")
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed channel")
	}
	_ = bus.Publish(context.Background(), Event{Topic: "t"})
}

func TestMemoryBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()
	sub := bus.Subscribe("t")

	for i := 0; i < subscriberBuffer+10; i++ {
		_ = bus.Publish(context.Background(), Event{Topic: "t"})
	}
	if n := len(sub.Events()); n != subscriberBuffer {
		t.Errorf("buffered %d, want %d", n, subscriberBuffer)
	}
}

func TestMemoryBusCloseEndsSubscriptions(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.Subscribe("t")
	bus.Close()
	if _, ok := <-sub.Events(); ok {
		t.Error("expected closed channel")
	}
	sub.Close()

	late := bus.Subscribe("t")
	if _, ok := <-late.Events(); ok {
		t.Error("subscribe after close should return a closed subscription")
	}
}

// Runs only when a redis server is reachable at REDIS_ADDR.
func TestRedisBusRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	bus, err := NewRedisBus(ctx, rdb, "poholowani-test")
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer bus.Close()

	sub := bus.Subscribe(ParticipantTopic("alice"))
	// PSubscribe is asynchronous; give it a moment to register.
	time.Sleep(100 * time.Millisecond)

	if err := bus.Publish(ctx, Event{Topic: ParticipantTopic("alice"), Table: "participants", Op: OpInsert}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	got := recv(t, sub.Events())
	if got.Topic != ParticipantTopic("alice") || got.Op != OpInsert {
		t.Errorf("unexpected event %+v", got)
	}
}
