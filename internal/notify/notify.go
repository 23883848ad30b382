// Package notify delivers operator alerts to chat channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Alert is one message for operators.
type Alert struct {
	Title  string
	Body   string
	Fields []Field
}

// Field is a labelled value shown under the alert body.
type Field struct {
	Name  string
	Value string
}

// Text renders the alert as plain text.
func (a Alert) Text() string {
	var b strings.Builder
	if a.Title != "" {
		b.WriteString(a.Title)
	}
	if a.Body != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.Body)
	}
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return b.String()
}

// Notifier sends an alert to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the process log.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(_ context.Context, alert Alert) error {
	log.Printf("[NOTIFICATION] %s", strings.ReplaceAll(alert.Text(), "\n", " | "))
	return nil
}

// Fanout sends every alert to all of its notifiers. A failing destination
// does not stop the others; the failures are joined into the returned
// error.
type Fanout struct {
	notifiers []Notifier
}

func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

func (f *Fanout) Name() string { return "fanout" }

// Len returns the number of destinations.
func (f *Fanout) Len() int { return len(f.notifiers) }

func (f *Fanout) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			log.Printf("[NOTIFICATION] %s delivery failed: %v", n.Name(), err)
			errs = append(errs, fmt.Errorf("notify: %s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
