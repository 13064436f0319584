package event

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
)

const defaultEmitterName = "emitter"

// Options configures an Emitter.
type Options struct {
	// Name labels log lines and metrics.
	Name string
	// Scheduler runs asynchronous dispatch. When nil the emitter starts its
	// own Queue and stops it on Close.
	Scheduler Scheduler
	Logger    *logging.Logger
	Registry  *metrics.Registry
}

// Emitter is a named-event observer list bound to a host value. Every
// listener invocation receives the host in Event.Host.
//
// The registry keeps insertion order per event name, which is also the
// dispatch order. Trigger and TriggerSync snapshot the list before invoking
// anything, so listeners may call On and Off while being dispatched.
type Emitter[H any] struct {
	mu             sync.Mutex
	host           H
	registry       map[string][]*Listener[H]
	scheduler      Scheduler
	ownedScheduler *Queue
	logger         *logging.Logger
	metrics        *metrics.Registry
	name           string
}

func New[H any](host H, opts Options) *Emitter[H] {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = defaultEmitterName
	}
	registry := opts.Registry
	if registry == nil {
		registry = metrics.Default
	}

	emitter := &Emitter[H]{
		host:      host,
		registry:  make(map[string][]*Listener[H]),
		scheduler: opts.Scheduler,
		logger:    logger.With(map[string]string{"emitter": name}),
		metrics:   registry,
		name:      name,
	}
	if emitter.scheduler == nil {
		queue := NewQueue(QueueOptions{Logger: emitter.logger, Registry: registry})
		emitter.scheduler = queue
		emitter.ownedScheduler = queue
	}
	return emitter
}

// Host returns the value listeners are bound to.
func (e *Emitter[H]) Host() H {
	return e.host
}

// On appends listener to the list for name.
func (e *Emitter[H]) On(name string, listener *Listener[H]) error {
	if !listener.invocable() {
		e.logger.Error(ErrInvalidCallback.Error(), map[string]string{"event": name, "op": "on"})
		return ErrInvalidCallback
	}

	e.mu.Lock()
	e.registry[name] = append(e.registry[name], listener)
	count := len(e.registry[name])
	e.mu.Unlock()

	e.metrics.SetListenerCount(e.name, name, count)
	return nil
}

// Off removes the first entry for name that is the same listener. An event
// that is registered but has no listeners left is a no-op.
func (e *Emitter[H]) Off(name string, listener *Listener[H]) error {
	if !listener.invocable() {
		e.logger.Error(ErrInvalidCallback.Error(), map[string]string{"event": name, "op": "off"})
		return ErrInvalidCallback
	}

	e.mu.Lock()
	listeners, ok := e.registry[name]
	if !ok {
		e.mu.Unlock()
		e.logger.Error(ErrUnregisteredEvent.Error(), map[string]string{"event": name, "op": "off"})
		return ErrUnregisteredEvent
	}
	for index, candidate := range listeners {
		if candidate == listener {
			remaining := make([]*Listener[H], 0, len(listeners)-1)
			remaining = append(remaining, listeners[:index]...)
			remaining = append(remaining, listeners[index+1:]...)
			e.registry[name] = remaining
			break
		}
	}
	count := len(e.registry[name])
	e.mu.Unlock()

	e.metrics.SetListenerCount(e.name, name, count)
	return nil
}

// Listeners reports how many entries are registered under name.
func (e *Emitter[H]) Listeners(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.registry[name])
}

// Trigger schedules one invocation per registered listener on the
// emitter's Scheduler, in registration order, and returns how many were
// scheduled. Listeners run after Trigger returns; an invocation is counted
// as dispatched only when the scheduler runs it.
func (e *Emitter[H]) Trigger(name string, args ...any) int {
	listeners := e.snapshot(name)
	e.recordTrigger(name, "async", len(listeners))
	if len(listeners) == 0 {
		return 0
	}

	event := e.newEvent(name, args)
	for _, listener := range listeners {
		fn := listener.fn
		e.scheduler.Schedule(func() {
			e.metrics.AddEventDispatched(e.name, name, 1)
			fn(event)
		})
	}
	return len(listeners)
}

// Emit is an alias of Trigger.
func (e *Emitter[H]) Emit(name string, args ...any) int {
	return e.Trigger(name, args...)
}

// TriggerSync invokes every registered listener on the calling goroutine,
// in registration order, before returning.
func (e *Emitter[H]) TriggerSync(name string, args ...any) int {
	listeners := e.snapshot(name)
	e.recordTrigger(name, "sync", len(listeners))
	if len(listeners) == 0 {
		return 0
	}

	event := e.newEvent(name, args)
	for _, listener := range listeners {
		listener.fn(event)
	}
	e.metrics.AddEventDispatched(e.name, name, len(listeners))
	return len(listeners)
}

// Close stops the dispatch queue if the emitter created it. Jobs still
// queued are dropped.
func (e *Emitter[H]) Close() {
	if e == nil || e.ownedScheduler == nil {
		return
	}
	e.ownedScheduler.Close()
}

func (e *Emitter[H]) snapshot(name string) []*Listener[H] {
	e.mu.Lock()
	defer e.mu.Unlock()
	listeners := e.registry[name]
	if len(listeners) == 0 {
		return nil
	}
	copied := make([]*Listener[H], len(listeners))
	copy(copied, listeners)
	return copied
}

func (e *Emitter[H]) newEvent(name string, args []any) Event[H] {
	var copied []any
	if len(args) > 0 {
		copied = make([]any, len(args))
		copy(copied, args)
	}
	return Event[H]{
		Name:       name,
		Host:       e.host,
		Args:       copied,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *Emitter[H]) recordTrigger(name, mode string, listeners int) {
	e.metrics.IncEventPublished(e.name, name)
	emitOTelEvent(e.name, name, mode, listeners)
	if debugEventsEnabled {
		e.logger.Info("event triggered", map[string]string{
			"event":     name,
			"mode":      mode,
			"listeners": strconv.Itoa(listeners),
		})
	}
}

var debugEventsEnabled = isEventDebugEnabled()

func isEventDebugEnabled() bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv("RESIZEWATCH_EVENT_DEBUG")))
	switch value {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
