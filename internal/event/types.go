package event

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCallback is returned by On and Off when the listener is nil
	// or wraps a nil func.
	ErrInvalidCallback = errors.New("callback is not a function")
	// ErrUnregisteredEvent is returned by Off when the event name was never
	// registered.
	ErrUnregisteredEvent = errors.New("unregistered event")
)

// Event is what a listener receives: the event name, the emitter's host and
// the arguments passed to the trigger call.
type Event[H any] struct {
	Name       string
	Host       H
	Args       []any
	OccurredAt time.Time
}

func (e Event[H]) Type() string {
	return e.Name
}

func (e Event[H]) Timestamp() time.Time {
	return e.OccurredAt
}

// Listener is a registered callback. Identity is the pointer: registering
// the same *Listener twice produces two entries, and Off removes by pointer.
type Listener[H any] struct {
	fn func(Event[H])
}

// Listen wraps fn in a Listener.
func Listen[H any](fn func(Event[H])) *Listener[H] {
	return &Listener[H]{fn: fn}
}

func (l *Listener[H]) invocable() bool {
	return l != nil && l.fn != nil
}

// Scheduler defers work. Jobs must run in the order they were scheduled.
type Scheduler interface {
	Schedule(job func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(job func())

func (f SchedulerFunc) Schedule(job func()) {
	f(job)
}
