package resize

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"resizewatch/internal/buffer"
	"resizewatch/internal/event"
	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
)

const (
	// EventResize is fired once per detected change.
	EventResize = "resize"

	DefaultPollInterval = 100 * time.Millisecond

	defaultHistorySize = 32
	defaultName        = "watcher"
)

// State is the lifecycle state of a Watcher.
type State int

const (
	StateArmed State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateArmed:
		return "armed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options controls watcher behavior.
type Options struct {
	// Name labels logs and metrics.
	Name         string
	PollInterval time.Duration
	Logger       *logging.Logger
	Registry     *metrics.Registry
	// Scheduler runs resize listeners and the error handler. When nil the
	// watcher starts a dispatch queue and stops it on Close.
	Scheduler event.Scheduler
	// ErrorHandler receives every *TargetReadError, on the scheduler.
	ErrorHandler func(error)
	// NewTicker overrides the poll ticker.
	NewTicker func(time.Duration) Ticker
	// HistorySize bounds History. Zero or less selects the default of 32;
	// the initial sample always occupies one slot.
	HistorySize int
}

// Record is one stored Sample and when it was captured.
type Record struct {
	Sample     Sample    `json:"sample"`
	CapturedAt time.Time `json:"captured_at"`
}

// Watcher polls one Target and fires EventResize when its geometry changes.
type Watcher struct {
	target       Target
	name         string
	interval     time.Duration
	emitter      *event.Emitter[*Watcher]
	scheduler    event.Scheduler
	ownedQueue   *event.Queue
	logger       *logging.Logger
	metrics      *metrics.Registry
	errorHandler func(error)

	mutex   sync.Mutex
	sample  Sample
	history *buffer.Ring[Record]
	state   State

	ticker    Ticker
	done      chan struct{}
	exited    chan struct{}
	closeOnce sync.Once
}

// New captures the target's current geometry and starts polling it. The
// watcher stops when ctx is cancelled or Close is called.
func New(ctx context.Context, target Target, options Options) (*Watcher, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if ctx == nil {
		ctx = context.Background()
	}

	initial, err := Capture(target)
	if err != nil {
		return nil, err
	}

	interval := options.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	name := options.Name
	if name == "" {
		name = defaultName
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With(map[string]string{"component": "resize", "watcher": name})
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	historySize := options.HistorySize
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	newTicker := options.NewTicker
	if newTicker == nil {
		newTicker = newRealTicker
	}

	watcher := &Watcher{
		target:       target,
		name:         name,
		interval:     interval,
		scheduler:    options.Scheduler,
		logger:       logger,
		metrics:      registry,
		errorHandler: options.ErrorHandler,
		sample:       initial,
		history:      buffer.NewRing[Record](historySize),
		state:        StateArmed,
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
	if watcher.scheduler == nil {
		queue := event.NewQueue(event.QueueOptions{Logger: logger, Registry: registry})
		watcher.scheduler = queue
		watcher.ownedQueue = queue
	}
	watcher.emitter = event.New(watcher, event.Options{
		Name:      name,
		Scheduler: watcher.scheduler,
		Logger:    logger,
		Registry:  registry,
	})
	watcher.history.Add(Record{Sample: initial, CapturedAt: time.Now().UTC()})

	watcher.ticker = newTicker(interval)
	go watcher.run(ctx)

	logger.Debug("watcher armed", map[string]string{
		"poll_interval": interval.String(),
	})
	return watcher, nil
}

// On registers listener under name on the watcher's emitter.
func (watcher *Watcher) On(name string, listener *event.Listener[*Watcher]) error {
	return watcher.emitter.On(name, listener)
}

// Off removes the first registration of listener under name.
func (watcher *Watcher) Off(name string, listener *event.Listener[*Watcher]) error {
	return watcher.emitter.Off(name, listener)
}

// OnResize registers fn for EventResize and returns the listener so it can
// be passed to Off later.
func (watcher *Watcher) OnResize(fn func(*Watcher)) (*event.Listener[*Watcher], error) {
	if fn == nil {
		return nil, watcher.emitter.On(EventResize, nil)
	}
	listener := event.Listen(func(e event.Event[*Watcher]) {
		fn(e.Host)
	})
	if err := watcher.emitter.On(EventResize, listener); err != nil {
		return nil, err
	}
	return listener, nil
}

// Listeners reports how many listeners are registered under name.
func (watcher *Watcher) Listeners(name string) int {
	return watcher.emitter.Listeners(name)
}

// Sample returns the stored geometry.
func (watcher *Watcher) Sample() Sample {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.sample
}

// History returns stored samples, oldest first. The first entry is the one
// captured at construction until it is pushed out.
func (watcher *Watcher) History() []Record {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.history.List()
}

// LastRecord returns the most recent history entry, which holds the stored
// Sample.
func (watcher *Watcher) LastRecord() (Record, bool) {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.history.Last()
}

// HistoryCapacity reports how many records History keeps.
func (watcher *Watcher) HistoryCapacity() int {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.history.Cap()
}

func (watcher *Watcher) State() State {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.state
}

func (watcher *Watcher) Name() string {
	return watcher.name
}

func (watcher *Watcher) PollInterval() time.Duration {
	return watcher.interval
}

// Close stops polling and waits for the poll goroutine to exit. Listeners
// still queued on a watcher-owned dispatch queue are dropped.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}
	watcher.shutdown()
	<-watcher.exited
	return nil
}

func (watcher *Watcher) shutdown() {
	watcher.closeOnce.Do(func() {
		watcher.mutex.Lock()
		watcher.state = StateStopped
		watcher.mutex.Unlock()

		watcher.ticker.Stop()
		close(watcher.done)
		if watcher.ownedQueue != nil {
			watcher.ownedQueue.Close()
		}
		watcher.logger.Debug("watcher stopped", nil)
	})
}

func (watcher *Watcher) run(ctx context.Context) {
	defer close(watcher.exited)
	for {
		select {
		case <-watcher.ticker.C():
			watcher.tick()
		case <-watcher.done:
			return
		case <-ctx.Done():
			watcher.shutdown()
			return
		}
	}
}

// tick compares the live target with the stored Sample and fires
// EventResize on the first differing field. It reports whether an event
// was fired.
func (watcher *Watcher) tick() bool {
	watcher.metrics.IncTick()

	current := watcher.Sample()
	changed, err := current.Changed(watcher.target)
	if err != nil {
		watcher.reportReadError(err)
		return false
	}
	if !changed {
		return false
	}

	// The target may have moved again since the comparison; the fresh
	// capture is what gets stored.
	fresh, err := Capture(watcher.target)
	if err != nil {
		watcher.reportReadError(err)
		return false
	}

	watcher.mutex.Lock()
	watcher.sample = fresh
	watcher.history.Add(Record{Sample: fresh, CapturedAt: time.Now().UTC()})
	watcher.mutex.Unlock()

	watcher.metrics.IncResize()
	if watcher.logger.Enabled(logging.LevelDebug) {
		watcher.logger.Debug("resize detected", sampleFields(fresh))
	}
	watcher.emitter.Trigger(EventResize)
	return true
}

func (watcher *Watcher) reportReadError(err error) {
	watcher.metrics.IncReadError()

	fields := map[string]string{"error": err.Error()}
	var readErr *TargetReadError
	if errors.As(err, &readErr) {
		fields["dimension"] = readErr.Dimension.String()
	}
	watcher.logger.Warn("target read failed", fields)

	handler := watcher.errorHandler
	if handler == nil {
		return
	}
	watcher.scheduler.Schedule(func() {
		handler(err)
	})
}

func sampleFields(sample Sample) map[string]string {
	fields := make(map[string]string, len(Dimensions))
	for _, d := range Dimensions {
		fields[d.String()] = strconv.Itoa(sample.Get(d))
	}
	return fields
}
