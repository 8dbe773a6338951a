// Package pipeline runs chunk generation work on a bounded worker pool and
// hands finished results back to a single consumer goroutine.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync/atomic"

	"github.com/alitto/pond/v2"

	"terrainstream/internal/config"
)

// ErrClosed is returned when work is submitted after Close or after the
// parent context was cancelled.
var ErrClosed = errors.New("pipeline closed")

type Kind string

const (
	KindMapData Kind = "map"
	KindMesh    Kind = "mesh"
)

type completion struct {
	kind    Kind
	deliver func()
}

// Stats is a point-in-time view of pipeline activity.
type Stats struct {
	Submitted uint64
	Completed uint64
	Running   int64
	Waiting   uint64
	Ready     int
	Delivered uint64
	Failed    uint64
}

// Pipeline executes jobs concurrently. Results are never visible to the
// consumer until Drain runs their callbacks on the consumer's goroutine.
type Pipeline struct {
	ctx    context.Context
	cancel context.CancelFunc
	pool   pond.Pool
	done   chan completion
	logger *log.Logger

	closed    atomic.Bool
	delivered atomic.Uint64
	failed    atomic.Uint64
}

func New(ctx context.Context, cfg config.PipelineConfig, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "pipeline ", log.LstdFlags|log.Lmicroseconds)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	buffer := cfg.CompletionBuffer
	if buffer <= 0 {
		buffer = 1024
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		ctx:    ctx,
		cancel: cancel,
		// The task queue stays unbounded so callbacks may submit follow-up
		// work from inside Drain without blocking.
		pool:   pond.NewPool(workers, pond.WithContext(ctx)),
		done:   make(chan completion, buffer),
		logger: logger,
	}
	logger.Printf("started with %d workers, completion buffer %d", workers, buffer)
	return p
}

// Submit schedules job on the pool. callback receives the job's result, or a
// non-nil error if the job failed or panicked, during a later Drain.
func Submit[T any](p *Pipeline, kind Kind, job func(context.Context) (T, error), callback func(T, error)) error {
	if p.closed.Load() || p.pool.Stopped() {
		return ErrClosed
	}
	err := p.pool.Go(func() {
		result, err := runJob(p.ctx, job)
		if err != nil {
			p.failed.Add(1)
			p.logger.Printf("%s job failed: %v", kind, err)
		}
		c := completion{
			kind: kind,
			deliver: func() {
				callback(result, err)
			},
		}
		select {
		case p.done <- c:
		case <-p.ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return nil
}

func runJob[T any](ctx context.Context, job func(context.Context) (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}

// Drain runs the callbacks of every completion queued at the time of the call,
// in the order the jobs finished, and returns how many ran. Completions that
// arrive meanwhile wait for the next Drain. Only one goroutine may drain.
func (p *Pipeline) Drain() int {
	n := len(p.done)
	for i := 0; i < n; i++ {
		c := <-p.done
		c.deliver()
	}
	p.delivered.Add(uint64(n))
	return n
}

// Ready reports completions waiting for the next Drain.
func (p *Pipeline) Ready() int {
	return len(p.done)
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Submitted: p.pool.SubmittedTasks(),
		Completed: p.pool.CompletedTasks(),
		Running:   p.pool.RunningWorkers(),
		Waiting:   p.pool.WaitingTasks(),
		Ready:     len(p.done),
		Delivered: p.delivered.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close rejects new work, cancels running jobs and waits for the workers to
// exit. Undelivered completions are discarded.
func (p *Pipeline) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.cancel()
	p.pool.StopAndWait()
	stats := p.Stats()
	p.logger.Printf("stopped: submitted=%d delivered=%d failed=%d", stats.Submitted, stats.Delivered, stats.Failed)
}
