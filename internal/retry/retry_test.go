package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky")

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3}, func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, Delay: time.Millisecond}, func(ctx context.Context, attempt int) error {
		calls++
		return errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("err = %v, want errFlaky", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("no route")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3}, func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(sentinel)
	})
	if err != sentinel {
		t.Fatalf("err = %v, want the unwrapped sentinel", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, func(ctx context.Context, attempt int) error {
		calls++
		return errFlaky
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, Policy{Attempts: 3, Delay: time.Hour}, func(ctx context.Context, attempt int) error {
			calls++
			return errFlaky
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestPermanent_NilAndIs(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	wrapped := Permanent(errFlaky)
	if !errors.Is(wrapped, errFlaky) || !IsPermanent(wrapped) {
		t.Error("Permanent should wrap and be detectable")
	}
	if IsPermanent(errFlaky) {
		t.Error("plain error reported as permanent")
	}
}
