// Package observer buffers viewer position reports between the network
// handlers and the tick loop.
package observer

import (
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Update is one reported observer position in world space.
type Update struct {
	SessionID  string
	Position   mgl64.Vec2
	ReceivedAt time.Time
}

type Queue struct {
	mu      sync.Mutex
	pending []Update
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Enqueue(u Update) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, u)
}

// Drain removes and returns up to max updates in arrival order. A max of zero
// or less drains everything.
func (q *Queue) Drain(max int) []Update {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	if max <= 0 || max >= len(q.pending) {
		batch := q.pending
		q.pending = nil
		return batch
	}
	batch := append([]Update(nil), q.pending[:max]...)
	q.pending = append([]Update(nil), q.pending[max:]...)
	return batch
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Latest returns the most recently received update of batch. Updates with the
// same timestamp resolve to the one drained last.
func Latest(batch []Update) (Update, bool) {
	if len(batch) == 0 {
		return Update{}, false
	}
	newest := batch[0]
	for _, u := range batch[1:] {
		if !u.ReceivedAt.Before(newest.ReceivedAt) {
			newest = u
		}
	}
	return newest, true
}
