// Package retry runs an operation under a fixed-delay retry policy.
//
// Each external call site picks its own Policy: idempotent reads may retry,
// non-idempotent writes use a single attempt.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy is the retry budget for one kind of operation. Attempts counts
// the first try, so Attempts 1 means no retry.
type Policy struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error
// as-is (errors.Is still matches the original).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it succeeds, returns a permanent error, the attempts
// are exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == attempts {
			break
		}

		// Go Learning Note — time.NewTimer vs time.After:
		// A Timer can be stopped when ctx wins the select, so an abandoned
		// wait does not keep a runtime timer alive until it fires.
		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
