package pool

import "sync/atomic"

const cacheLineSize = 64

// Worker is one pool slot. Its rank fields and fan list are immutable
// for the pool's lifetime; the state register is written by the worker
// itself and by fan-in partners; the work range is claimed from the
// front by the worker and from the back by thieves; everything else is
// owned exclusively by the worker.
type Worker struct {
	pool *Pool

	poolRank    int
	poolRankRev int
	fan         []int // ranks of fan-in partners, nearest first

	// scratch is the published value slot of the collective in
	// progress. It is written before the state transition announcing
	// it and read only after observing that transition.
	scratch any

	state atomic.Uint32
	_     [cacheLineSize - 4]byte // keep the two contended registers apart

	workRange workRange

	currentStealTarget int
	teamWorkIndex      int
	stealing           bool
}

// PoolSize returns the number of workers in the pool.
func (w *Worker) PoolSize() int { return len(w.pool.workers) }

// PoolRank returns this worker's rank, in [0, PoolSize).
func (w *Worker) PoolRank() int { return w.poolRank }

// PoolRankRev returns the root-relative rank PoolSize-1-PoolRank; the
// collective root is the worker with reverse rank 0.
func (w *Worker) PoolRankRev() int { return w.poolRankRev }

// FanSize returns the number of direct fan-in partners.
func (w *Worker) FanSize() int { return len(w.fan) }

// ScratchMemory returns this worker's published scratch buffer: the
// value slot of the collective in progress, or whatever was last stored
// with SetScratch.
func (w *Worker) ScratchMemory() any { return w.scratch }

// SetScratch publishes buf as this worker's scratch buffer. Collectives
// overwrite the slot with their own value buffers.
func (w *Worker) SetScratch(buf any) { w.scratch = buf }

// TeamWorkIndex returns the index recorded by the last GetWorkIndex.
func (w *Worker) TeamWorkIndex() int { return w.teamWorkIndex }

// Barrier blocks until every pool member has entered it. The fan-in
// phase has logarithmic depth; the root then releases the whole pool
// flat, which is O(N) stores but needs no further synchronization.
func (w *Worker) Barrier() {
	// Wait: Active -> Rendezvous
	for _, r := range w.fan {
		w.pool.workers[r].spinWhile(stateActive)
	}

	if w.poolRankRev != 0 {
		w.storeState(stateRendezvous)
		// Wait: Rendezvous -> Active
		w.spinWhile(stateRendezvous)
		return
	}

	// Root release, rank order: a released worker's fan partners must
	// already be released, or its next fan-in could mistake their
	// leftover Rendezvous for a fresh arrival.
	for _, p := range w.pool.workers {
		p.storeState(stateActive)
	}
}

// AllReduce publishes value, waits for every pool member, and returns
// the pool-wide sum. The result is identical on every rank.
func (w *Worker) AllReduce(value int64) int64 {
	slot := value
	w.scratch = &slot

	// Wait: Active -> Rendezvous
	for _, r := range w.fan {
		w.pool.workers[r].spinWhile(stateActive)
	}

	if w.poolRankRev != 0 {
		w.storeState(stateRendezvous)
		// Wait: Rendezvous -> Active
		w.spinWhile(stateRendezvous)
	} else {
		// Root does the reduction and broadcast. It already holds the
		// whole registry, so one O(N) pass beats a second tree phase.
		var accum int64
		for _, p := range w.pool.workers {
			accum += *p.scratch.(*int64)
		}
		for _, p := range w.pool.workers {
			*p.scratch.(*int64) = accum
		}
		for _, p := range w.pool.workers {
			p.storeState(stateActive)
		}
	}

	return slot
}
