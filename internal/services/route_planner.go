package services

import (
	"context"
	"log"
	"sync"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/routefetch"
)

// RoutePlanner keeps one route-fetch workflow per open offer form, keyed by
// a form id the client generates. Drafts untouched for the TTL are swept.
//
// Go Learning Note — Registry + Sweeper:
// The registry is a mutex-guarded map; the sweeper is a goroutine driven by
// a time.Ticker that exits when the stop channel is closed. Stop uses
// sync.Once so calling it twice does not panic on a double close.
type RoutePlanner struct {
	router routefetch.Router
	ttl    time.Duration
	now    func() time.Time

	mu     sync.Mutex
	drafts map[string]*draft
	stop   chan struct{}
	once   sync.Once
}

type draft struct {
	workflow *routefetch.Workflow
	touched  time.Time
}

// NewRoutePlanner starts the sweeper, which runs every ttl/4.
func NewRoutePlanner(router routefetch.Router, ttl time.Duration) *RoutePlanner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	p := &RoutePlanner{
		router: router,
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[string]*draft),
		stop:   make(chan struct{}),
	}
	go p.sweep(ttl / 4)
	return p
}

// workflow returns the form's workflow, creating it on first use. An empty
// formID gets a throwaway workflow; submissions always carry an id.
func (p *RoutePlanner) workflow(formID string) *routefetch.Workflow {
	if formID == "" {
		return routefetch.New(p.router)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drafts[formID]
	if !ok {
		d = &draft{workflow: routefetch.New(p.router)}
		p.drafts[formID] = d
	}
	d.touched = p.now()
	return d.workflow
}

// Preview fetches (or reuses) the geometry for the form's current
// waypoints. A result superseded by a newer Preview for the same form is
// returned with Stale set.
func (p *RoutePlanner) Preview(ctx context.Context, formID string, waypoints []entities.Location) routefetch.Result {
	return p.workflow(formID).Await(ctx, waypoints)
}

// Compute is Preview for a submission: it returns the geometry or an error,
// turning a stale result into ErrSuperseded.
func (p *RoutePlanner) Compute(ctx context.Context, formID string, waypoints []entities.Location) (*entities.RouteGeometry, error) {
	res := p.Preview(ctx, formID, waypoints)
	switch {
	case res.Stale:
		return nil, ErrSuperseded
	case res.Err != nil:
		return nil, res.Err
	}
	return res.Geometry, nil
}

// Snapshot returns the form's workflow state.
func (p *RoutePlanner) Snapshot(formID string) (routefetch.Snapshot, bool) {
	p.mu.Lock()
	d, ok := p.drafts[formID]
	p.mu.Unlock()
	if !ok {
		return routefetch.Snapshot{}, false
	}
	return d.workflow.Snapshot(), true
}

// Discard clears and forgets the form's workflow. Called after a successful
// save and when the user resets the form.
func (p *RoutePlanner) Discard(formID string) {
	p.mu.Lock()
	d, ok := p.drafts[formID]
	delete(p.drafts, formID)
	p.mu.Unlock()
	if ok {
		d.workflow.Clear()
	}
}

// Len returns the number of open drafts.
func (p *RoutePlanner) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.drafts)
}

// Stop ends the sweeper.
func (p *RoutePlanner) Stop() {
	p.once.Do(func() { close(p.stop) })
}

func (p *RoutePlanner) sweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.evictIdle()
		case <-p.stop:
			return
		}
	}
}

func (p *RoutePlanner) evictIdle() {
	cutoff := p.now().Add(-p.ttl)
	var stale []*draft

	p.mu.Lock()
	for id, d := range p.drafts {
		if d.touched.Before(cutoff) {
			stale = append(stale, d)
			delete(p.drafts, id)
		}
	}
	p.mu.Unlock()

	for _, d := range stale {
		d.workflow.Clear()
	}
	if len(stale) > 0 {
		log.Printf("[PLANNER] Evicted %d idle drafts", len(stale))
	}
}
