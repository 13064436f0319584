package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry collects counters for watchers and emitters. A nil *Registry
// accepts every call and records nothing.
type Registry struct {
	ticks         atomic.Int64
	resizes       atomic.Int64
	readErrors    atomic.Int64
	listenerPanic atomic.Int64
	events        sync.Map
}

type eventStats struct {
	emitter    string
	event      string
	published  atomic.Int64
	dispatched atomic.Int64
	listeners  atomic.Int64
}

// Snapshot is a point-in-time copy of the watcher counters.
type Snapshot struct {
	Ticks          int64 `json:"ticks"`
	Resizes        int64 `json:"resizes"`
	ReadErrors     int64 `json:"read_errors"`
	ListenerPanics int64 `json:"listener_panics"`
}

var Default = &Registry{}

func New() *Registry {
	return &Registry{}
}

func (r *Registry) IncTick() {
	if r == nil {
		return
	}
	r.ticks.Add(1)
}

func (r *Registry) IncResize() {
	if r == nil {
		return
	}
	r.resizes.Add(1)
}

func (r *Registry) IncReadError() {
	if r == nil {
		return
	}
	r.readErrors.Add(1)
}

func (r *Registry) IncListenerPanic() {
	if r == nil {
		return
	}
	r.listenerPanic.Add(1)
}

func (r *Registry) IncEventPublished(emitter, event string) {
	if r == nil {
		return
	}
	r.eventStats(emitter, event).published.Add(1)
}

func (r *Registry) AddEventDispatched(emitter, event string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.eventStats(emitter, event).dispatched.Add(int64(count))
}

func (r *Registry) SetListenerCount(emitter, event string, count int) {
	if r == nil {
		return
	}
	r.eventStats(emitter, event).listeners.Store(int64(count))
}

// EventPublished reports how many times event was triggered on emitter.
func (r *Registry) EventPublished(emitter, event string) int64 {
	if r == nil {
		return 0
	}
	value, ok := r.events.Load(eventKey(emitter, event))
	if !ok {
		return 0
	}
	return value.(*eventStats).published.Load()
}

// EventDispatched reports how many listener invocations of event on emitter
// have run.
func (r *Registry) EventDispatched(emitter, event string) int64 {
	if r == nil {
		return 0
	}
	value, ok := r.events.Load(eventKey(emitter, event))
	if !ok {
		return 0
	}
	return value.(*eventStats).dispatched.Load()
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		Ticks:          r.ticks.Load(),
		Resizes:        r.resizes.Load(),
		ReadErrors:     r.readErrors.Load(),
		ListenerPanics: r.listenerPanic.Load(),
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "resizewatch_ticks_total", "Poll ticks executed", r.ticks.Load())
	writeCounter(writer, "resizewatch_resizes_total", "Geometry changes detected", r.resizes.Load())
	writeCounter(writer, "resizewatch_target_read_errors_total", "Ticks aborted by a target read failure", r.readErrors.Load())
	writeCounter(writer, "resizewatch_listener_panics_total", "Asynchronous listeners that panicked", r.listenerPanic.Load())

	stats := r.allEventStats()
	if len(stats) == 0 {
		return nil
	}

	writeHelp(writer, "resizewatch_events_published_total", "Events triggered")
	fmt.Fprintln(writer, "# TYPE resizewatch_events_published_total counter")
	for _, entry := range stats {
		fmt.Fprintf(writer, "resizewatch_events_published_total{%s} %d\n", entry.labels(), entry.published.Load())
	}
	writeHelp(writer, "resizewatch_events_dispatched_total", "Listener invocations dispatched")
	fmt.Fprintln(writer, "# TYPE resizewatch_events_dispatched_total counter")
	for _, entry := range stats {
		fmt.Fprintf(writer, "resizewatch_events_dispatched_total{%s} %d\n", entry.labels(), entry.dispatched.Load())
	}
	writeHelp(writer, "resizewatch_event_listeners", "Registered listeners")
	fmt.Fprintln(writer, "# TYPE resizewatch_event_listeners gauge")
	for _, entry := range stats {
		fmt.Fprintf(writer, "resizewatch_event_listeners{%s} %d\n", entry.labels(), entry.listeners.Load())
	}
	return nil
}

func (r *Registry) eventStats(emitter, event string) *eventStats {
	if strings.TrimSpace(emitter) == "" {
		emitter = "emitter"
	}
	if strings.TrimSpace(event) == "" {
		event = "unknown"
	}
	value, _ := r.events.LoadOrStore(eventKey(emitter, event), &eventStats{emitter: emitter, event: event})
	return value.(*eventStats)
}

func (r *Registry) allEventStats() []*eventStats {
	var stats []*eventStats
	r.events.Range(func(_, value any) bool {
		stats = append(stats, value.(*eventStats))
		return true
	})
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].emitter != stats[j].emitter {
			return stats[i].emitter < stats[j].emitter
		}
		return stats[i].event < stats[j].event
	})
	return stats
}

func (s *eventStats) labels() string {
	return fmt.Sprintf("emitter=%s,event=%s", formatLabel(s.emitter), formatLabel(s.event))
}

func eventKey(emitter, event string) string {
	return emitter + "\x00" + event
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
