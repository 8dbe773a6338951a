package server

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingTarget struct {
	mu     sync.Mutex
	deltas []time.Duration
	calls  chan struct{}
}

func newRecordingTarget() *recordingTarget {
	return &recordingTarget{calls: make(chan struct{}, 16)}
}

func (r *recordingTarget) tick(_ time.Time, delta time.Duration) {
	r.mu.Lock()
	r.deltas = append(r.deltas, delta)
	r.mu.Unlock()
	r.calls <- struct{}{}
}

func (r *recordingTarget) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.deltas...)
}

func waitForCalls(t *testing.T, calls <-chan struct{}, count int) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for i := 0; i < count; i++ {
		select {
		case <-calls:
		case <-timeout:
			t.Fatalf("timed out waiting for %d ticks, got %d", count, i)
		}
	}
}

func TestTickLoopClampsDeltas(t *testing.T) {
	target := newRecordingTarget()
	loop := newTickLoop(target, 10*time.Millisecond)

	ticks := make(chan time.Time)
	stopped := make(chan struct{})
	loop.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticks, func() { close(stopped) }
	}
	start := time.Unix(1000, 0)
	loop.now = func() time.Time { return start }

	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx)

	ticks <- start.Add(20 * time.Millisecond)
	ticks <- start.Add(20 * time.Millisecond)
	ticks <- start.Add(2 * time.Second)
	waitForCalls(t, target.calls, 3)

	cancel()
	loop.Wait()
	select {
	case <-stopped:
	default:
		t.Fatalf("ticker was not stopped")
	}

	want := []time.Duration{20 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}
	got := target.recorded()
	if len(got) != len(want) {
		t.Fatalf("deltas = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delta %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTickLoopDefaultsInterval(t *testing.T) {
	loop := newTickLoop(newRecordingTarget(), 0)
	if loop.interval != 33*time.Millisecond {
		t.Fatalf("interval = %v", loop.interval)
	}
}

func TestTickLoopWithoutTargetDoesNotStart(t *testing.T) {
	loop := newTickLoop(nil, time.Millisecond)
	loop.Start(context.Background())
	loop.Wait()
}
