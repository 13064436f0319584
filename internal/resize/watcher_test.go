package resize

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"resizewatch/internal/event"
	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
)

var scenarioSample = Sample{
	OffsetWidth:  100,
	ClientWidth:  100,
	ScrollWidth:  100,
	OffsetHeight: 50,
	ClientHeight: 50,
	ScrollHeight: 50,
}

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time {
	return m.ch
}

func (m *manualTicker) Stop() {
	m.stopped.Store(true)
}

type harness struct {
	watcher   *Watcher
	target    *MutableTarget
	scheduler *event.ManualScheduler
	ticker    *manualTicker
	registry  *metrics.Registry
	resizes   int
}

func newHarness(t *testing.T, initial Sample, options Options) *harness {
	t.Helper()
	h := &harness{
		target:    NewMutableTarget(initial),
		scheduler: event.NewManualScheduler(),
		ticker:    &manualTicker{ch: make(chan time.Time)},
		registry:  metrics.New(),
	}
	options.Scheduler = h.scheduler
	options.Registry = h.registry
	options.NewTicker = func(time.Duration) Ticker { return h.ticker }

	watcher, err := New(context.Background(), h.target, options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Close() })
	h.watcher = watcher

	_, err = watcher.OnResize(func(*Watcher) { h.resizes++ })
	require.NoError(t, err)
	return h
}

// advance runs one poll and then every listener it scheduled.
func (h *harness) advance() {
	h.watcher.tick()
	h.scheduler.RunPending()
}

func TestScenarioCountsOneEventPerChangedTick(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})

	h.advance()
	require.Equal(t, 0, h.resizes)

	h.target.Set(OffsetHeight, 60)
	h.advance()
	require.Equal(t, 1, h.resizes)

	h.target.Set(ClientWidth, 80)
	h.target.Set(ScrollWidth, 80)
	h.advance()
	require.Equal(t, 2, h.resizes)

	want := scenarioSample.With(OffsetHeight, 60).With(ClientWidth, 80).With(ScrollWidth, 80)
	require.Equal(t, want, h.watcher.Sample())
}

func TestUnchangedTickIsNoop(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})
	before := h.watcher.Sample()

	require.False(t, h.watcher.tick())
	require.Equal(t, 0, h.scheduler.Pending())
	require.Equal(t, before, h.watcher.Sample())
	require.Len(t, h.watcher.History(), 1)
}

func TestEachDimensionTriggersExactlyOnce(t *testing.T) {
	for _, d := range Dimensions {
		t.Run(d.String(), func(t *testing.T) {
			h := newHarness(t, scenarioSample, Options{})

			h.target.Set(d, scenarioSample.Get(d)+1)
			h.advance()
			require.Equal(t, 1, h.resizes)

			h.advance()
			require.Equal(t, 1, h.resizes, "second tick without change must not fire")
		})
	}
}

func TestManyFieldsChangedFireOneEvent(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})

	h.target.SetSample(Sample{OffsetWidth: 1, ClientWidth: 2, ScrollWidth: 3, OffsetHeight: 4, ClientHeight: 5, ScrollHeight: 6})
	require.True(t, h.watcher.tick())
	require.Equal(t, 1, h.scheduler.Pending())
	h.scheduler.RunPending()
	require.Equal(t, 1, h.resizes)
}

func TestListenerRunsAfterTickReturns(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})

	h.target.Set(OffsetWidth, 120)
	h.watcher.tick()
	require.Equal(t, 0, h.resizes, "resize listeners are dispatched asynchronously")

	// A later change lands before the listener runs; the listener sees the
	// newer sample.
	h.target.Set(OffsetWidth, 140)
	h.watcher.tick()

	var seen []int
	_, err := h.watcher.OnResize(func(w *Watcher) { seen = append(seen, w.Sample().OffsetWidth) })
	require.NoError(t, err)
	h.watcher.tick()
	h.target.Set(OffsetWidth, 160)
	h.watcher.tick()
	h.scheduler.RunPending()

	require.Equal(t, 3, h.resizes)
	require.Equal(t, []int{160}, seen)
}

func TestOffStopsNotifications(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})

	calls := 0
	listener := event.Listen(func(e event.Event[*Watcher]) {
		require.Same(t, h.watcher, e.Host)
		calls++
	})
	require.NoError(t, h.watcher.On(EventResize, listener))
	require.Equal(t, 2, h.watcher.Listeners(EventResize))

	h.target.Set(ClientHeight, 70)
	h.advance()
	require.Equal(t, 1, calls)

	require.NoError(t, h.watcher.Off(EventResize, listener))
	h.target.Set(ClientHeight, 80)
	h.advance()
	require.Equal(t, 1, calls)
	require.Equal(t, 2, h.resizes)
}

func TestInvalidSubscriptionIsReported(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})

	_, err := h.watcher.OnResize(nil)
	require.ErrorIs(t, err, event.ErrInvalidCallback)
	require.ErrorIs(t, h.watcher.Off(EventResize, nil), event.ErrInvalidCallback)
	require.ErrorIs(t, h.watcher.Off("scroll", event.Listen(func(event.Event[*Watcher]) {})), event.ErrUnregisteredEvent)
	require.Equal(t, 1, h.watcher.Listeners(EventResize))
}

func TestReadFailureAbortsTickAndKeepsPolling(t *testing.T) {
	var handled []error
	buffer := logging.NewLogBuffer(16)
	h := newHarness(t, scenarioSample, Options{
		Logger:       logging.NewLoggerWithOutput(buffer, logging.LevelInfo, io.Discard),
		ErrorHandler: func(err error) { handled = append(handled, err) },
	})

	cause := errors.New("element removed")
	h.target.Set(OffsetWidth, 10)
	h.target.Fail(cause)
	h.advance()

	require.Equal(t, 0, h.resizes)
	require.Equal(t, scenarioSample, h.watcher.Sample())
	require.Len(t, handled, 1)
	var readErr *TargetReadError
	require.ErrorAs(t, handled[0], &readErr)
	require.ErrorIs(t, handled[0], cause)
	require.Len(t, buffer.Matching("target read failed"), 1)
	require.Equal(t, int64(1), h.registry.Snapshot().ReadErrors)

	h.target.Fail(nil)
	h.advance()
	require.Equal(t, 1, h.resizes)
	require.Equal(t, StateArmed, h.watcher.State())
}

func TestNewRejectsNilTarget(t *testing.T) {
	_, err := New(context.Background(), nil, Options{})
	require.ErrorIs(t, err, ErrNilTarget)
}

func TestNewReportsInitialReadFailure(t *testing.T) {
	target := NewMutableTarget(Sample{})
	target.Fail(errors.New("not attached"))

	_, err := New(context.Background(), target, Options{})
	var readErr *TargetReadError
	require.ErrorAs(t, err, &readErr)
}

func TestCloseStopsTickerAndIsIdempotent(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{})

	require.NoError(t, h.watcher.Close())
	require.NoError(t, h.watcher.Close())
	require.Equal(t, StateStopped, h.watcher.State())
	require.True(t, h.ticker.stopped.Load())
}

func TestContextCancellationStopsWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticker := &manualTicker{ch: make(chan time.Time)}
	watcher, err := New(ctx, NewMutableTarget(scenarioSample), Options{
		Registry:  metrics.New(),
		NewTicker: func(time.Duration) Ticker { return ticker },
	})
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		return watcher.State() == StateStopped
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, watcher.Close())
	require.True(t, ticker.stopped.Load())
}

func TestPollLoopDeliversResizeThroughQueue(t *testing.T) {
	target := NewMutableTarget(scenarioSample)
	ticker := &manualTicker{ch: make(chan time.Time)}
	registry := metrics.New()
	watcher, err := New(context.Background(), target, Options{
		Registry:  registry,
		NewTicker: func(time.Duration) Ticker { return ticker },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Close() })

	collector := event.NewEventCollector[Sample]()
	_, err = watcher.OnResize(func(w *Watcher) { collector.Collect(w.Sample()) })
	require.NoError(t, err)

	target.Set(ScrollHeight, 75)
	ticker.ch <- time.Now()

	got := event.ReceiveWithTimeout(t, collector.Received(), time.Second)
	require.Equal(t, 75, got.ScrollHeight)
	require.Equal(t, int64(1), registry.Snapshot().Resizes)
}

func TestDefaultsApplied(t *testing.T) {
	watcher, err := New(context.Background(), NewMutableTarget(scenarioSample), Options{Registry: metrics.New()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Close() })

	require.Equal(t, DefaultPollInterval, watcher.PollInterval())
	require.Equal(t, "watcher", watcher.Name())
}

func TestRealTickerDetectsChange(t *testing.T) {
	target := NewMutableTarget(scenarioSample)
	watcher, err := New(context.Background(), target, Options{
		PollInterval: 5 * time.Millisecond,
		Registry:     metrics.New(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = watcher.Close() })

	fired := make(chan struct{}, 1)
	_, err = watcher.OnResize(func(*Watcher) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	target.Set(OffsetWidth, 200)
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resize")
	}
	require.Equal(t, 200, watcher.Sample().OffsetWidth)
}

func TestHistoryIsBounded(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{HistorySize: 2})

	for width := 101; width <= 104; width++ {
		h.target.Set(OffsetWidth, width)
		h.advance()
	}

	history := h.watcher.History()
	require.Len(t, history, 2)
	require.Equal(t, 103, history[0].Sample.OffsetWidth)
	require.Equal(t, 104, history[1].Sample.OffsetWidth)
	require.Equal(t, 2, h.watcher.HistoryCapacity())

	last, ok := h.watcher.LastRecord()
	require.True(t, ok)
	require.Equal(t, h.watcher.Sample(), last.Sample)
}

func TestHistorySizeDefault(t *testing.T) {
	h := newHarness(t, scenarioSample, Options{HistorySize: 0})
	require.Equal(t, defaultHistorySize, h.watcher.HistoryCapacity())

	last, ok := h.watcher.LastRecord()
	require.True(t, ok)
	require.Equal(t, scenarioSample, last.Sample)
}
