package observer

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

func sampleUpdate(session string, x float64, at time.Time) Update {
	return Update{SessionID: session, Position: mgl64.Vec2{x, -x}, ReceivedAt: at}
}

func TestQueueDrainReleasesStorage(t *testing.T) {
	q := NewQueue()
	base := time.Unix(1700000000, 0)

	for i := 0; i < 4; i++ {
		q.Enqueue(sampleUpdate("a", float64(i), base.Add(time.Duration(i)*time.Millisecond)))
	}

	batch := q.Drain(0)
	if len(batch) != 4 {
		t.Fatalf("expected 4 updates in batch, got %d", len(batch))
	}
	if q.pending != nil {
		t.Fatalf("expected queue storage to be reset, got len=%d cap=%d", len(q.pending), cap(q.pending))
	}
	if batch[3].Position != (mgl64.Vec2{3, -3}) {
		t.Fatalf("expected arrival order to be preserved, got %v", batch[3].Position)
	}

	q.Enqueue(sampleUpdate("first", 1, base))
	q.Enqueue(sampleUpdate("second", 2, base))
	q.Enqueue(sampleUpdate("third", 3, base))

	batch = q.Drain(2)
	if len(batch) != 2 {
		t.Fatalf("expected 2 updates in partial batch, got %d", len(batch))
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 update to remain in queue, got %d", q.Len())
	}
	if q.pending[0].SessionID != "third" {
		t.Fatalf("expected remaining update to be 'third', got %s", q.pending[0].SessionID)
	}
	if q.Drain(5)[0].SessionID != "third" || q.Drain(0) != nil {
		t.Fatalf("expected final drain to empty the queue")
	}
}

func TestLatest(t *testing.T) {
	if _, ok := Latest(nil); ok {
		t.Fatalf("empty batch has no latest update")
	}
	base := time.Unix(1700000000, 0)
	batch := []Update{
		sampleUpdate("a", 1, base.Add(2*time.Second)),
		sampleUpdate("b", 2, base),
		sampleUpdate("c", 3, base.Add(2*time.Second)),
		sampleUpdate("d", 4, base.Add(time.Second)),
	}
	got, ok := Latest(batch)
	if !ok || got.SessionID != "c" {
		t.Fatalf("latest = %+v, want session c", got)
	}
}
