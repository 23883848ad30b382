package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule reports whether expr is a usable 5-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("cleanup: invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler runs a Job on a cron schedule in the process-local timezone.
type Scheduler struct {
	cron      *cron.Cron
	job       *Job
	onFailure func(error)
}

// NewScheduler registers job under expr. Call Start to begin firing.
func NewScheduler(expr string, job *Job) (*Scheduler, error) {
	if err := ValidateSchedule(expr); err != nil {
		return nil, err
	}
	s := &Scheduler{
		cron: cron.New(cron.WithParser(cronParser), cron.WithLocation(time.Local)),
		job:  job,
	}
	if _, err := s.cron.AddFunc(expr, s.fire); err != nil {
		return nil, fmt.Errorf("cleanup: register schedule: %w", err)
	}
	return s, nil
}

func (s *Scheduler) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), lockTTL)
	defer cancel()
	if _, err := s.job.Run(ctx); err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			log.Printf("[CLEANUP] Skipped scheduled run: %v", err)
			return
		}
		log.Printf("[CLEANUP] Scheduled run failed: %v", err)
		if s.onFailure != nil {
			s.onFailure(err)
		}
	}
}

// OnFailure registers fn to be called when a scheduled run fails. Skipped
// overlapping runs are not failures.
func (s *Scheduler) OnFailure(fn func(error)) { s.onFailure = fn }

// Next returns the next time the job fires.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
