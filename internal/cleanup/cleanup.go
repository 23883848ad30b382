// Package cleanup removes route offers whose travel date has passed, along
// with expired refresh sessions.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/repository"
)

// ErrAlreadyRunning is returned when another run holds the cleanup lock.
var ErrAlreadyRunning = errors.New("cleanup: another run is in progress")

const (
	lockKey = "cleanup:routes"
	lockTTL = 10 * time.Minute
)

// RouteStore deletes routes dated strictly before a day.
type RouteStore interface {
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

// SessionStore deletes sessions that expired before now.
type SessionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Report summarises one run.
type Report struct {
	Cutoff   string `json:"cutoff"`
	Routes   int64  `json:"routes_deleted"`
	Sessions int64  `json:"sessions_deleted"`
}

// Cutoff is yesterday's date in now's location. Routes dated before it are
// stale; a route dated yesterday survives until the next day's run.
func Cutoff(now time.Time) string {
	return now.AddDate(0, 0, -1).Format(entities.DateLayout)
}

// Job runs one cleanup pass. Sessions and Locks are optional.
type Job struct {
	Routes   RouteStore
	Sessions SessionStore
	Locks    repository.LockManager
	Now      func() time.Time
}

// Run deletes stale rows. A failure to delete routes is returned; a session
// sweep failure is logged and does not fail the run.
func (j *Job) Run(ctx context.Context) (Report, error) {
	if j.Routes == nil {
		return Report{}, errors.New("cleanup: route store is required")
	}
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}

	if j.Locks != nil {
		ok, err := j.Locks.AcquireLock(ctx, lockKey, lockTTL)
		if err != nil {
			return Report{}, fmt.Errorf("cleanup: acquire lock: %w", err)
		}
		if !ok {
			return Report{}, ErrAlreadyRunning
		}
		defer j.Locks.ReleaseLock(context.Background(), lockKey)
	}

	report := Report{Cutoff: Cutoff(now)}
	n, err := j.Routes.DeleteBefore(ctx, report.Cutoff)
	if err != nil {
		return report, fmt.Errorf("cleanup: delete routes before %s: %w", report.Cutoff, err)
	}
	report.Routes = n
	log.Printf("[CLEANUP] Deleted %d routes dated before %s", n, report.Cutoff)

	if j.Sessions != nil {
		n, err := j.Sessions.DeleteExpired(ctx, now)
		if err != nil {
			log.Printf("[CLEANUP] Session sweep failed: %v", err)
		} else {
			report.Sessions = n
		}
	}
	return report, nil
}
