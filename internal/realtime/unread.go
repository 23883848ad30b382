package realtime

import (
	"context"
	"log"
	"sync"
)

// UnreadSource returns unread counts per conversation for a user.
type UnreadSource interface {
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)
}

// UnreadAggregator keeps the signed-in user's total unread count current.
// Every participant-row event triggers a full re-fetch and re-sum; deltas
// are never applied. Results from a previous login or from a refresh that
// started before a newer one already landed are discarded.
type UnreadAggregator struct {
	source UnreadSource
	subs   *SubscriptionManager

	mu         sync.Mutex
	userID     string
	generation uint64
	started    uint64 // last refresh sequence handed out
	applied    uint64 // last refresh sequence stored
	count      int
	handle     *Handle
	listeners  []func(int)
}

func NewUnreadAggregator(source UnreadSource, subs *SubscriptionManager) *UnreadAggregator {
	return &UnreadAggregator{source: source, subs: subs}
}

// Login switches the aggregator to userID, subscribes to its participant
// topic and computes the initial total.
func (a *UnreadAggregator) Login(ctx context.Context, userID string) error {
	a.Logout()

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.userID = userID
	a.mu.Unlock()

	h := a.subs.Subscribe(userID, ParticipantTopic(userID), func(Event) {
		if err := a.refresh(context.Background(), gen); err != nil {
			log.Printf("[UNREAD] refresh for %s failed: %v", userID, err)
		}
	})

	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		a.subs.Unsubscribe(h)
		return nil
	}
	a.handle = &h
	a.mu.Unlock()

	return a.refresh(ctx, gen)
}

// Logout drops the subscription and resets the total to zero.
func (a *UnreadAggregator) Logout() {
	a.mu.Lock()
	if a.userID == "" && a.handle == nil {
		a.mu.Unlock()
		return
	}
	a.generation++
	h := a.handle
	a.handle = nil
	a.userID = ""
	changed := a.count != 0
	a.count = 0
	listeners := append([]func(int){}, a.listeners...)
	a.mu.Unlock()

	if h != nil {
		a.subs.Unsubscribe(*h)
	}
	if changed {
		for _, fn := range listeners {
			fn(0)
		}
	}
}

// Count returns the current total.
func (a *UnreadAggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// OnChange registers fn to be called with every new total.
func (a *UnreadAggregator) OnChange(fn func(int)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Refresh forces a re-fetch for the current user.
func (a *UnreadAggregator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	gen := a.generation
	signedIn := a.userID != ""
	a.mu.Unlock()
	if !signedIn {
		return nil
	}
	return a.refresh(ctx, gen)
}

func (a *UnreadAggregator) refresh(ctx context.Context, gen uint64) error {
	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		return nil
	}
	a.started++
	seq := a.started
	userID := a.userID
	a.mu.Unlock()

	counts, err := a.source.UnreadCounts(ctx, userID)
	if err != nil {
		return err
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	a.mu.Lock()
	if gen != a.generation || seq < a.applied {
		a.mu.Unlock()
		return nil
	}
	a.applied = seq
	changed := a.count != total
	a.count = total
	listeners := append([]func(int){}, a.listeners...)
	a.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(total)
		}
	}
	return nil
}
