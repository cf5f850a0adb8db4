// Package evqueue is a bounded single-producer single-consumer queue of
// input events. Publishing never blocks and never fails: when the queue is
// full the oldest event is dropped to make room and an overflow counter is
// bumped. Fresh input is worth more than stale input.
//
// Indices are free-running uint32 counters masked into the slot array, so
// the full/empty distinction needs no extra flag. The consumer claims slots
// with a CAS on the read index; the producer uses the same CAS to steal the
// oldest slot when full, which keeps the drop race safe.
package evqueue

import (
	"sync/atomic"

	"inputcode-go/types"
	"inputcode-go/x/mathx"
)

// DefaultCapacity holds roughly a second of very fast knob twiddling.
const DefaultCapacity = 64

type Queue struct {
	slots []types.InputEvent
	mask  uint32

	rd      atomic.Uint32
	wr      atomic.Uint32
	dropped atomic.Uint32

	notify chan struct{}
}

// New creates a queue. capacity <= 0 selects DefaultCapacity; other values
// are rounded up to a power of two.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	n := mathx.NextPow2(uint32(capacity))
	return &Queue{
		slots:  make([]types.InputEvent, n),
		mask:   n - 1,
		notify: make(chan struct{}, 1),
	}
}

// Cap reports the slot count.
func (q *Queue) Cap() int { return len(q.slots) }

// Publish appends ev, dropping the oldest pending event if full. Producer
// side only.
func (q *Queue) Publish(ev types.InputEvent) {
	for {
		rd := q.rd.Load()
		wr := q.wr.Load()
		if wr-rd >= uint32(len(q.slots)) {
			// Full: retire the oldest slot. A concurrent Poll may win the
			// CAS, which also frees a slot; either way, retry.
			if q.rd.CompareAndSwap(rd, rd+1) {
				q.dropped.Add(1)
			}
			continue
		}
		q.slots[wr&q.mask] = ev
		q.wr.Store(wr + 1)
		break
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Poll removes and returns the oldest event. Consumer side only.
func (q *Queue) Poll() (types.InputEvent, bool) {
	for {
		rd := q.rd.Load()
		if rd == q.wr.Load() {
			return types.InputEvent{}, false
		}
		ev := q.slots[rd&q.mask]
		// A failed CAS means the producer stole this slot as the oldest;
		// the value read may be torn, so discard it and retry.
		if q.rd.CompareAndSwap(rd, rd+1) {
			return ev, true
		}
	}
}

// Drain pops everything currently queued.
func (q *Queue) Drain() []types.InputEvent {
	n := q.Len()
	if n == 0 {
		return nil
	}
	out := make([]types.InputEvent, 0, n)
	for {
		ev, ok := q.Poll()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

// Len reports the number of queued events. Advisory under concurrency.
func (q *Queue) Len() int {
	return int(q.wr.Load() - q.rd.Load())
}

// Overflows reports how many events have been dropped since creation.
func (q *Queue) Overflows() uint32 { return q.dropped.Load() }

// Readable is a coalesced data-available signal: at most one pending token
// regardless of how many events arrived. Consumers wait on it, then Poll
// until empty.
func (q *Queue) Readable() <-chan struct{} { return q.notify }
