// Package routefetch drives the "compute a route for the form" workflow as
// an explicit state machine. Each coordinate change issues a new request
// ticket; a completion carrying an old ticket is discarded, so the geometry
// shown always belongs to the latest coordinates regardless of the order in
// which responses arrive.
package routefetch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"poholowani/internal/domain/entities"
)

// State is the workflow's position in its lifecycle.
//
//	idle → fetching → success | error
//	success | error → fetching   (new coordinates)
//	fetching → fetching          (superseded by newer coordinates)
//	any → idle                   (Clear)
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateSuccess  State = "success"
	StateError    State = "error"
)

var validTransitions = map[State][]State{
	StateIdle:     {StateFetching, StateIdle},
	StateFetching: {StateFetching, StateSuccess, StateError, StateIdle},
	StateSuccess:  {StateFetching, StateSuccess, StateIdle},
	StateError:    {StateFetching, StateIdle},
}

// CanTransitionTo reports whether next is reachable from s.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Router computes road geometry through ordered waypoints.
type Router interface {
	Directions(ctx context.Context, waypoints []entities.Location) (*entities.RouteGeometry, error)
}

// Result is delivered once per Request.
type Result struct {
	Ticket   uint64
	Geometry *entities.RouteGeometry
	Err      error
	// Stale is set when a newer request (or Clear) superseded this one; the
	// workflow state was not touched by it.
	Stale bool
	// Cached is set when the geometry was reused without calling the router.
	Cached bool
}

// Snapshot is a consistent view of the workflow.
type Snapshot struct {
	State     State                   `json:"state"`
	Ticket    uint64                  `json:"ticket"`
	Geometry  *entities.RouteGeometry `json:"geometry,omitempty"`
	Error     string                  `json:"error,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Workflow is one form's route-fetch state machine. It is safe for
// concurrent use.
type Workflow struct {
	router Router

	mu        sync.Mutex
	state     State
	ticket    uint64
	cancel    context.CancelFunc
	waypoints []entities.Location
	geometry  *entities.RouteGeometry
	lastErr   error
	updatedAt time.Time
}

// New returns an idle workflow.
func New(router Router) *Workflow {
	return &Workflow{router: router, state: StateIdle, updatedAt: time.Now()}
}

// transitionTo must be called with mu held.
func (w *Workflow) transitionTo(next State) error {
	if !w.state.CanTransitionTo(next) {
		return fmt.Errorf("routefetch: invalid transition from %s to %s", w.state, next)
	}
	w.state = next
	w.updatedAt = time.Now()
	return nil
}

// Request asks for the geometry through waypoints and returns a channel that
// receives exactly one Result and is then closed.
//
// When the last successful geometry was computed for identical waypoints it
// is returned at once with Cached set, so a resubmission after a failed save
// does not hit the routing engine again. Otherwise any in-flight request is
// superseded and a new fetch starts.
func (w *Workflow) Request(ctx context.Context, waypoints []entities.Location) <-chan Result {
	out := make(chan Result, 1)

	w.mu.Lock()
	w.supersede()
	ticket := w.ticket

	if w.geometry != nil && sameWaypoints(w.waypoints, waypoints) {
		if err := w.transitionTo(StateSuccess); err != nil {
			log.Printf("[ROUTEFETCH] %v", err)
		}
		w.lastErr = nil
		out <- Result{Ticket: ticket, Geometry: w.geometry, Cached: true}
		close(out)
		w.mu.Unlock()
		return out
	}

	if err := w.transitionTo(StateFetching); err != nil {
		log.Printf("[ROUTEFETCH] %v", err)
	}
	w.waypoints = append([]entities.Location(nil), waypoints...)
	w.geometry = nil
	w.lastErr = nil
	reqCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	go func() {
		defer close(out)
		defer cancel()

		geometry, err := w.router.Directions(reqCtx, waypoints)

		w.mu.Lock()
		defer w.mu.Unlock()
		if ticket != w.ticket {
			out <- Result{Ticket: ticket, Stale: true}
			return
		}
		w.cancel = nil
		if err != nil {
			w.lastErr = err
			if tErr := w.transitionTo(StateError); tErr != nil {
				log.Printf("[ROUTEFETCH] %v", tErr)
			}
			out <- Result{Ticket: ticket, Err: err}
			return
		}
		w.geometry = geometry
		if tErr := w.transitionTo(StateSuccess); tErr != nil {
			log.Printf("[ROUTEFETCH] %v", tErr)
		}
		out <- Result{Ticket: ticket, Geometry: geometry}
	}()
	return out
}

// Await is Request followed by a wait for the result.
func (w *Workflow) Await(ctx context.Context, waypoints []entities.Location) Result {
	select {
	case res := <-w.Request(ctx, waypoints):
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

// Clear discards the geometry and any in-flight request and returns to idle.
func (w *Workflow) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.supersede()
	w.waypoints = nil
	w.geometry = nil
	w.lastErr = nil
	if err := w.transitionTo(StateIdle); err != nil {
		log.Printf("[ROUTEFETCH] %v", err)
	}
}

// Geometry returns the current geometry if it was computed for waypoints.
func (w *Workflow) Geometry(waypoints []entities.Location) (*entities.RouteGeometry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateSuccess || w.geometry == nil || !sameWaypoints(w.waypoints, waypoints) {
		return nil, false
	}
	return w.geometry, true
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := Snapshot{State: w.state, Ticket: w.ticket, Geometry: w.geometry, UpdatedAt: w.updatedAt}
	if w.lastErr != nil {
		s.Error = w.lastErr.Error()
	}
	return s
}

// supersede invalidates the current ticket and cancels its request. Must
// be called with mu held.
func (w *Workflow) supersede() {
	w.ticket++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}

func sameWaypoints(a, b []entities.Location) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
