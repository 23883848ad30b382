// Package mapview is the headless half of the interactive map: it decides
// which route polyline is highlighted, when its popup opens and closes, and
// how the viewport is fitted. A thin client renders the Actions it emits.
package mapview

import (
	"sync"
	"time"
)

// Style is the rendering of one polyline.
type Style struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
	Pane    string  `json:"pane"`
	ZIndex  int     `json:"z_index"`
}

var (
	NormalStyle    = Style{Color: "#2563eb", Weight: 3, Opacity: 0.7, Pane: "overlayPane", ZIndex: 400}
	HighlightStyle = Style{Color: "#dc2626", Weight: 6, Opacity: 1, Pane: "hoverPane", ZIndex: 650}
)

// Mode is what the map renders: clustered markers when no filter is active,
// individual route polylines for a filtered search.
type Mode string

const (
	ModeClusters Mode = "clusters"
	ModeLines    Mode = "lines"
)

type ActionKind string

const (
	ActionStyle      ActionKind = "style"
	ActionOpenPopup  ActionKind = "open_popup"
	ActionClosePopup ActionKind = "close_popup"
	ActionMode       ActionKind = "mode"
)

// Action is one rendering instruction.
type Action struct {
	Kind    ActionKind `json:"kind"`
	RouteID string     `json:"route_id,omitempty"`
	Style   *Style     `json:"style,omitempty"`
	Mode    Mode       `json:"mode,omitempty"`
}

// State is a snapshot of the layer.
type State struct {
	Mode        Mode   `json:"mode"`
	Highlighted string `json:"highlighted,omitempty"`
	PopupOpen   string `json:"popup_open,omitempty"`
	Selected    string `json:"selected,omitempty"`
}

// Options configures a Layer. Zero delays are allowed and mean "next tick".
type Options struct {
	OpenDelay  time.Duration
	CloseDelay time.Duration
	Clock      Clock
	// Emit receives actions in order. It is never called with the layer's
	// lock held, so it may call back into the layer.
	Emit func(Action)
}

// Layer controls the hover/click behaviour of the route polylines on one
// viewport. Each map session owns its own Layer.
//
// Invariants: at most one polyline is highlighted, at most one popup is
// open and it belongs to the highlighted polyline, and after Close no
// action is emitted.
type Layer struct {
	opts  Options
	clock Clock

	mu          sync.Mutex
	mode        Mode
	routes      map[string]bool
	highlighted string
	popupOpen   string
	selected    string
	openTimer   *scheduled
	closeTimer  *scheduled
	closed      bool
}

// scheduled is a pending timer. Callbacks compare their own *scheduled
// against the layer's current one, so a timer that fired concurrently with
// being replaced does nothing.
type scheduled struct {
	timer   Timer
	routeID string
}

// NewLayer returns a layer in clusters mode.
func NewLayer(opts Options) *Layer {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock
	}
	if opts.Emit == nil {
		opts.Emit = func(Action) {}
	}
	return &Layer{opts: opts, clock: clock, mode: ModeClusters, routes: make(map[string]bool)}
}

// State returns the current snapshot.
func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{Mode: l.mode, Highlighted: l.highlighted, PopupOpen: l.popupOpen, Selected: l.selected}
}

// SetMode switches the render mode. Switching always fully resets hover,
// popup, selection and timers, even when the mode does not change.
func (l *Layer) SetMode(mode Mode) {
	l.run(func(out *[]Action) {
		l.clearHighlightLocked(out)
		l.mode = mode
		if mode == ModeClusters {
			l.routes = make(map[string]bool)
		}
		*out = append(*out, Action{Kind: ActionMode, Mode: mode})
	})
}

// SetRoutes replaces the rendered polylines. Interaction state tied to a
// route that disappeared is reset.
func (l *Layer) SetRoutes(ids []string) {
	l.run(func(out *[]Action) {
		next := make(map[string]bool, len(ids))
		for _, id := range ids {
			next[id] = true
		}
		if (l.highlighted != "" && !next[l.highlighted]) || (l.selected != "" && !next[l.selected]) {
			l.clearHighlightLocked(out)
		}
		l.routes = next
	})
}

// PointerEnter highlights id at once and schedules its popup. Re-entering a
// polyline whose popup is open cancels a pending close.
func (l *Layer) PointerEnter(id string) {
	l.run(func(out *[]Action) {
		if !l.interactive(id) {
			return
		}
		l.stopClose()
		if l.highlighted == id {
			if l.popupOpen != id && l.openTimer == nil {
				l.scheduleOpen(id)
			}
			return
		}
		if l.selected != "" {
			// A pinned popup stays until the user dismisses it or clicks
			// another route.
			return
		}
		l.clearHighlightLocked(out)
		l.highlighted = id
		*out = append(*out, styleAction(id, HighlightStyle))
		l.scheduleOpen(id)
	})
}

// PointerLeave un-highlights id if its popup has not opened yet, or
// schedules the popup to close if it has.
func (l *Layer) PointerLeave(id string) {
	l.run(func(out *[]Action) {
		if l.closed || l.highlighted != id || l.selected == id {
			return
		}
		if l.popupOpen == id {
			l.scheduleClose(id)
			return
		}
		l.clearHighlightLocked(out)
	})
}

// PopupEnter keeps the popup of id open while the pointer is over it.
func (l *Layer) PopupEnter(id string) {
	l.run(func(out *[]Action) {
		if l.closed || l.popupOpen != id {
			return
		}
		l.stopClose()
	})
}

// PopupLeave schedules the popup of id to close.
func (l *Layer) PopupLeave(id string) {
	l.run(func(out *[]Action) {
		if l.closed || l.popupOpen != id || l.selected == id {
			return
		}
		l.scheduleClose(id)
	})
}

// Click selects id and opens its popup immediately. The popup stays pinned
// until DismissPopup, another click or a reset.
func (l *Layer) Click(id string) {
	l.run(func(out *[]Action) {
		if !l.interactive(id) {
			return
		}
		if l.highlighted != id {
			l.clearHighlightLocked(out)
			l.highlighted = id
			*out = append(*out, styleAction(id, HighlightStyle))
		}
		l.stopOpen()
		l.stopClose()
		l.selected = id
		if l.popupOpen != id {
			l.popupOpen = id
			*out = append(*out, Action{Kind: ActionOpenPopup, RouteID: id})
		}
	})
}

// DismissPopup closes the popup of id (the user pressed its close button).
func (l *Layer) DismissPopup(id string) {
	l.run(func(out *[]Action) {
		if l.closed || l.popupOpen != id {
			return
		}
		l.clearHighlightLocked(out)
	})
}

// Reset clears hover, popup and selection without changing the mode.
func (l *Layer) Reset() {
	l.run(func(out *[]Action) {
		l.clearHighlightLocked(out)
	})
}

// Close tears the layer down: every pending timer is stopped and later
// events are ignored.
func (l *Layer) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopOpen()
	l.stopClose()
	l.closed = true
}

// run executes fn under the lock and emits the collected actions after
// releasing it.
func (l *Layer) run(fn func(out *[]Action)) {
	var out []Action
	l.mu.Lock()
	if !l.closed {
		fn(&out)
	}
	l.mu.Unlock()
	for _, a := range out {
		l.opts.Emit(a)
	}
}

func (l *Layer) interactive(id string) bool {
	return !l.closed && l.mode == ModeLines && l.routes[id]
}

func (l *Layer) scheduleOpen(id string) {
	l.stopOpen()
	s := &scheduled{routeID: id}
	s.timer = l.clock.AfterFunc(l.opts.OpenDelay, func() { l.fireOpen(s) })
	l.openTimer = s
}

func (l *Layer) scheduleClose(id string) {
	l.stopClose()
	s := &scheduled{routeID: id}
	s.timer = l.clock.AfterFunc(l.opts.CloseDelay, func() { l.fireClose(s) })
	l.closeTimer = s
}

func (l *Layer) fireOpen(s *scheduled) {
	l.run(func(out *[]Action) {
		if l.openTimer != s || l.highlighted != s.routeID {
			return
		}
		l.openTimer = nil
		l.popupOpen = s.routeID
		*out = append(*out, Action{Kind: ActionOpenPopup, RouteID: s.routeID})
	})
}

func (l *Layer) fireClose(s *scheduled) {
	l.run(func(out *[]Action) {
		if l.closeTimer != s || l.popupOpen != s.routeID {
			return
		}
		l.closeTimer = nil
		l.clearHighlightLocked(out)
	})
}

func (l *Layer) stopOpen() {
	if l.openTimer != nil {
		l.openTimer.timer.Stop()
		l.openTimer = nil
	}
}

func (l *Layer) stopClose() {
	if l.closeTimer != nil {
		l.closeTimer.timer.Stop()
		l.closeTimer = nil
	}
}

// clearHighlightLocked closes any popup, restores the normal style and
// drops the selection.
func (l *Layer) clearHighlightLocked(out *[]Action) {
	l.stopOpen()
	l.stopClose()
	if l.popupOpen != "" {
		*out = append(*out, Action{Kind: ActionClosePopup, RouteID: l.popupOpen})
		l.popupOpen = ""
	}
	if l.highlighted != "" {
		*out = append(*out, styleAction(l.highlighted, NormalStyle))
		l.highlighted = ""
	}
	l.selected = ""
}

func styleAction(id string, s Style) Action {
	style := s
	return Action{Kind: ActionStyle, RouteID: id, Style: &style}
}
