package event

import (
	"sync"
	"testing"
	"time"
)

// ManualScheduler queues jobs until RunPending is called. Tests use it to
// control exactly when asynchronous listeners run.
type ManualScheduler struct {
	mu   sync.Mutex
	jobs []func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(job func()) {
	if s == nil || job == nil {
		return
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
}

// Pending reports how many jobs are queued.
func (s *ManualScheduler) Pending() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// RunPending runs the jobs queued at call time and returns how many ran.
// Jobs scheduled while running wait for the next call.
func (s *ManualScheduler) RunPending() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()

	for _, job := range jobs {
		job()
	}
	return len(jobs)
}

// EventCollector stores events received from listeners.
type EventCollector[T any] struct {
	mu     sync.Mutex
	events []T
	notify chan T
}

func NewEventCollector[T any]() *EventCollector[T] {
	return &EventCollector[T]{notify: make(chan T, 64)}
}

func (collector *EventCollector[T]) Collect(event T) {
	if collector == nil {
		return
	}
	collector.mu.Lock()
	collector.events = append(collector.events, event)
	collector.mu.Unlock()
	select {
	case collector.notify <- event:
	default:
	}
}

func (collector *EventCollector[T]) Events() []T {
	if collector == nil {
		return nil
	}
	collector.mu.Lock()
	defer collector.mu.Unlock()
	copyEvents := make([]T, len(collector.events))
	copy(copyEvents, collector.events)
	return copyEvents
}

// Len reports how many events were collected.
func (collector *EventCollector[T]) Len() int {
	if collector == nil {
		return 0
	}
	collector.mu.Lock()
	defer collector.mu.Unlock()
	return len(collector.events)
}

// Received exposes collected events as a channel for tests that wait.
func (collector *EventCollector[T]) Received() <-chan T {
	return collector.notify
}

// ReceiveWithTimeout waits for a single event or fails the test.
func ReceiveWithTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) T {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("event channel closed")
		}
		return event
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event after %s", timeout)
	}
	var zero T
	return zero
}
