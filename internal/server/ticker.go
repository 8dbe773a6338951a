package server

import (
	"context"
	"sync"
	"time"
)

type tickTarget interface {
	tick(now time.Time, delta time.Duration)
}

type tickerFactory func(time.Duration) (<-chan time.Time, func())

type timeSource func() time.Time

// tickLoop calls its target from a single goroutine at a fixed rate. Deltas
// that are non-positive or longer than ten ticks are reported as one tick.
type tickLoop struct {
	target    tickTarget
	interval  time.Duration
	wg        sync.WaitGroup
	newTicker tickerFactory
	now       timeSource
}

func defaultTickerFactory() tickerFactory {
	return func(d time.Duration) (<-chan time.Time, func()) {
		ticker := time.NewTicker(d)
		return ticker.C, ticker.Stop
	}
}

func newTickLoop(target tickTarget, interval time.Duration) *tickLoop {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	return &tickLoop{
		target:    target,
		interval:  interval,
		newTicker: defaultTickerFactory(),
		now:       time.Now,
	}
}

func (l *tickLoop) Start(ctx context.Context) {
	if l == nil || l.target == nil {
		return
	}
	l.wg.Add(1)
	go l.run(ctx)
}

func (l *tickLoop) run(ctx context.Context) {
	defer l.wg.Done()

	tickerC, stop := l.newTicker(l.interval)
	defer stop()

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tickerC:
			delta := now.Sub(last)
			if delta <= 0 || delta > 10*l.interval {
				delta = l.interval
			}
			last = now
			l.target.tick(now, delta)
		}
	}
}

func (l *tickLoop) Wait() {
	if l == nil {
		return
	}
	l.wg.Wait()
}
