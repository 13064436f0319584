package event

import (
	"io"
	"testing"
	"time"

	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
)

func TestQueueRunsJobsInOrder(t *testing.T) {
	queue := NewQueue(QueueOptions{})
	t.Cleanup(queue.Close)

	collector := NewEventCollector[int]()
	for i := 0; i < 10; i++ {
		queue.Schedule(func() { collector.Collect(i) })
	}
	for i := 0; i < 10; i++ {
		ReceiveWithTimeout(t, collector.Received(), time.Second)
	}

	for index, value := range collector.Events() {
		if index != value {
			t.Fatalf("expected FIFO order, got %v", collector.Events())
		}
	}
}

func TestQueueRecoversPanickingJob(t *testing.T) {
	buffer := logging.NewLogBuffer(8)
	registry := metrics.New()
	queue := NewQueue(QueueOptions{
		Logger:   logging.NewLoggerWithOutput(buffer, logging.LevelInfo, io.Discard),
		Registry: registry,
	})
	t.Cleanup(queue.Close)

	done := make(chan struct{})
	queue.Schedule(func() { panic("listener failed") })
	queue.Schedule(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected job after panic to run")
	}
	if registry.Snapshot().ListenerPanics != 1 {
		t.Fatalf("expected panic to be counted")
	}
	if len(buffer.Matching("listener panicked")) != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestQueueDropsJobsAfterClose(t *testing.T) {
	queue := NewQueue(QueueOptions{})
	queue.Close()
	queue.Close()

	ran := make(chan struct{}, 1)
	queue.Schedule(func() { ran <- struct{}{} })

	select {
	case <-ran:
		t.Fatal("expected job scheduled after close to be dropped")
	case <-time.After(50 * time.Millisecond):
	}
	if queue.Pending() != 0 {
		t.Fatalf("expected no pending jobs, got %d", queue.Pending())
	}
}

func TestQueueCloseFromJobDoesNotDeadlock(t *testing.T) {
	queue := NewQueue(QueueOptions{})

	done := make(chan struct{})
	queue.Schedule(func() {
		queue.Close()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close from inside a job blocked")
	}
}
