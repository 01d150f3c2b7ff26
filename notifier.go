package sqlhelper

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventKind names a change of the active target.
type EventKind string

const (
	EventFailover EventKind = "failover"
	EventFailback EventKind = "failback"
)

// Event describes a failover or failback transition.
type Event struct {
	Kind   EventKind
	Source string
	Driver string
	From   Target
	To     Target
	Time   time.Time
}

// Message renders the plain-text notification body.
func (e Event) Message() string {
	action := "Failover to secondary server"
	if e.Kind == EventFailback {
		action = "Failback to primary server"
	}
	return fmt.Sprintf("[%s] (%s) %s", e.Source, strings.ToUpper(e.Driver), action)
}

// Notifier receives failover events. Delivery is best effort: the
// manager logs and drops any error.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) error { return nil }
