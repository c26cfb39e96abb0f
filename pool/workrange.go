package pool

import (
	"sync/atomic"

	"github.com/avandra/spinpool/gsync"
	"github.com/avandra/spinpool/internal"
)

// NoWorkIndex is the sentinel returned by claim and steal operations
// when the observed range was already exhausted.
const NoWorkIndex = -1

// workRange is the atomically claimable chunk interval owned by one
// worker. Both bounds live in a single word (two 32-bit halves), so a
// claim is one compare-and-swap; chunk indices are therefore bounded by
// 2^31. An exhausted range has first >= second.
type workRange struct {
	bounds atomic.Uint64
}

func (r *workRange) load() gsync.Interval {
	return gsync.Unpack(r.bounds.Load())
}

func (r *workRange) store(iv gsync.Interval) {
	r.bounds.Store(gsync.Pack(iv))
}

// SetWorkRange converts the iteration space [begin, end) into chunkSize
// units and installs it as this worker's claimable range. Only the
// owning worker may call it, and only while no claims are in flight.
func (w *Worker) SetWorkRange(begin, end, chunkSize int) {
	first := internal.CeilDiv(begin, chunkSize)
	second := first
	if end > 0 {
		second = internal.CeilDiv(end, chunkSize)
	}
	w.workRange.store(gsync.Interval{First: int32(first), Second: int32(second)})
}

// claimFromFront removes and returns the first index of the range, or
// NoWorkIndex if it is exhausted. On contention the claim retries until
// the swap succeeds or the observed range is exhausted, so racing
// claimants cannot live-lock on the same victim.
func (r *workRange) claimFromFront() int {
	old := r.load()
	for !old.Empty() {
		next := gsync.Interval{First: old.First + 1, Second: old.Second}
		if r.bounds.CompareAndSwap(gsync.Pack(old), gsync.Pack(next)) {
			return int(old.First)
		}
		old = r.load()
	}
	return NoWorkIndex
}

// claimFromBack removes and returns the last index of the range, or
// NoWorkIndex if it is exhausted. Thieves claim from this end while the
// owner claims from the front, keeping the two off each other's word
// value for as long as the range lasts.
func (r *workRange) claimFromBack() int {
	old := r.load()
	for !old.Empty() {
		next := gsync.Interval{First: old.First, Second: old.Second - 1}
		if r.bounds.CompareAndSwap(gsync.Pack(old), gsync.Pack(next)) {
			return int(old.Second - 1)
		}
		old = r.load()
	}
	return NoWorkIndex
}
