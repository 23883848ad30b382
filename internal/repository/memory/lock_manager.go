// Package memory holds process-local implementations of repository
// contracts that need no durable storage.
package memory

import (
	"context"
	"sync"
	"time"
)

// lockEntry is a held lock. The TTL makes a lock whose holder died expire
// instead of blocking forever.
type lockEntry struct {
	expiresAt time.Time
}

// LockManager is an in-process lock table with TTL expiry. It keeps a
// scheduled cleanup from overlapping a manual one and collapses concurrent
// "start conversation" requests for the same pair into one.
//
// It only serializes within one process; a multi-instance deployment would
// back repository.LockManager with redis SET NX instead.
//
// Go Learning Note — Channels for Signaling:
// The `stop` field is a `chan struct{}` used purely for signaling. Closing it
// wakes every receiver at once, so `<-lm.stop` in the sweeper's select fires
// as soon as Stop is called.
type LockManager struct {
	mu    sync.RWMutex
	locks map[string]*lockEntry
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewLockManager creates a LockManager whose background goroutine drops
// expired entries every sweep interval.
func NewLockManager(sweep time.Duration) *LockManager {
	if sweep <= 0 {
		sweep = time.Second
	}
	lm := &LockManager{
		locks: make(map[string]*lockEntry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go lm.sweepExpired(sweep)
	return lm
}

// AcquireLock takes key for ttl. It returns false without error when a live
// lock is already held; an expired one is taken over.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if entry, exists := lm.locks[key]; exists && now.Before(entry.expiresAt) {
		return false, nil
	}
	lm.locks[key] = &lockEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

// ReleaseLock drops key before its TTL runs out.
func (lm *LockManager) ReleaseLock(ctx context.Context, key string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	delete(lm.locks, key)
	return nil
}

// IsLocked reports whether a live lock is held on key.
func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	lm.mu.RLock()
	defer lm.mu.RUnlock()

	entry, exists := lm.locks[key]
	return exists && lm.now().Before(entry.expiresAt), nil
}

// Len returns the number of entries, expired or not, still in the table.
func (lm *LockManager) Len() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.locks)
}

// sweepExpired periodically removes locks past their TTL.
//
// Go Learning Note — time.NewTicker:
// A ticker fires repeatedly until stopped. Always defer ticker.Stop() so the
// runtime timer is released when the goroutine exits.
func (lm *LockManager) sweepExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			now := lm.now()
			for key, entry := range lm.locks {
				if !now.Before(entry.expiresAt) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.stop:
			return
		}
	}
}

// Stop ends the sweeper goroutine. It is safe to call more than once.
func (lm *LockManager) Stop() {
	lm.once.Do(func() { close(lm.stop) })
}
