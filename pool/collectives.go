package pool

// ReduceOp combines per-worker contributions of a fan-in reduction.
// Join folds input into update and must be associative and commutative;
// Final runs exactly once, on the root, after every contribution has
// been merged.
type ReduceOp[T any] interface {
	Join(update, input []T)
	Final(update []T)
}

// ScanOp defines a prefix combination over values of Width elements.
// Init writes the identity element, Join folds input into update.
type ScanOp[T any] interface {
	Width() int
	Init(update []T)
	Join(update, input []T)
}

// FanInReduce merges each fan-in partner's published buffer into work
// and, on the root (the highest rank), applies Final. There is no
// broadcast and no release protocol: the signal that a worker's buffer
// is complete is the worker parking at dispatch end, so FanInReduce
// must be the last collective of a dispatch, and the merged result is
// read from the root's buffer after Fence. Callers needing the result
// pool-wide compose a second dispatch.
func FanInReduce[T any](w *Worker, op ReduceOp[T], work []T) {
	w.scratch = work

	for _, r := range w.fan {
		fan := w.pool.workers[r]
		fan.spinWhile(stateActive)
		op.Join(work, fan.scratch.([]T))
	}

	if w.poolRankRev == 0 {
		op.Final(work)
	}
}

// FanIn waits for every fan-in partner to leave the running state
// without touching any data, so workers retire in tree order. Like
// FanInReduce it must be the last operation of a dispatch.
func (w *Worker) FanIn() {
	for _, r := range w.fan {
		w.pool.workers[r].spinWhile(stateActive)
	}
}

// ScanLarge computes an exclusive prefix combination across the pool in
// rank order. work must hold 2*op.Width() values with this worker's
// contribution in the first half; on return the first half holds the
// exclusive result and the second half the inclusive one. Both halves
// agree bit-for-bit with ScanSmall. The release cascade runs child
// ranks after parent ranks, so dispatch at most one scan per Start.
//
// Per-worker state sequence:
//
//	Active -> ReductionAvailable : subtree reduction published
//	       -> ScanAvailable      : inclusive scan value published
//	       -> Rendezvous         : all inclusive values available
//	       -> ScanCompleted      : exclusive scan value copied
//	       -> Active             : released
func ScanLarge[T any](w *Worker, op ScanOp[T], work []T) {
	width := op.Width()
	w.scratch = work

	// Fan-in reduction with the highest ranking worker as the root.
	// Wait: Active -> ReductionAvailable (or ScanAvailable)
	for _, r := range w.fan {
		fan := w.pool.workers[r]
		fan.spinWhile(stateActive)
		op.Join(work[:width], fan.scratch.([]T)[:width])
	}

	// Seed the inclusive slot with the subtree reduction before
	// announcing this phase.
	copy(work[width:2*width], work[:width])

	if w.poolRankRev != 0 {
		// Set: Active -> ReductionAvailable
		w.storeState(stateReductionAvailable)

		// The fan partners cover reverse ranks up to rev+2^fan; when
		// lower ranks remain beyond them, absorb the inclusive value
		// of the first worker past the fan list.
		if 1<<uint(len(w.fan)) < w.poolRank+1 {
			th := w.byRevRank(w.poolRankRev + 1<<uint(len(w.fan)))

			// Wait: Active             -> ReductionAvailable
			// Wait: ReductionAvailable -> ScanAvailable
			th.spinWhile(stateActive)
			th.spinWhile(stateReductionAvailable)

			op.Join(work[width:2*width], th.scratch.([]T)[width:2*width])
		}

		// Inclusive scan value is complete.
		// Set: ReductionAvailable -> ScanAvailable
		w.storeState(stateScanAvailable)

		// Wait: ScanAvailable -> Rendezvous
		w.spinWhile(stateScanAvailable)
	}

	// Move fan partners to Rendezvous once their inclusive values have
	// been consumed; the release cascades down from the root.
	for _, r := range w.fan {
		fan := w.pool.workers[r]
		// Wait: ReductionAvailable -> ScanAvailable
		fan.spinWhile(stateReductionAvailable)
		// Set: ScanAvailable -> Rendezvous
		fan.storeState(stateRendezvous)
	}

	// All inclusive values are final. Exclusive value: copy the
	// previous rank's inclusive value; the first rank takes the
	// identity.
	if w.poolRankRev+1 < w.PoolSize() {
		prev := w.byRevRank(w.poolRankRev + 1)
		copy(work[:width], prev.scratch.([]T)[width:2*width])
	} else {
		op.Init(work[:width])
	}

	// Wait for fan partners to finish their exclusive copies.
	// Wait: Rendezvous -> ScanCompleted
	for _, r := range w.fan {
		w.pool.workers[r].spinWhile(stateRendezvous)
	}
	if w.poolRankRev != 0 {
		// Set: ScanAvailable -> ScanCompleted
		w.storeState(stateScanCompleted)
		// Wait: ScanCompleted -> Active
		w.spinWhile(stateScanCompleted)
	}
	// Set: ScanCompleted -> Active
	for _, r := range w.fan {
		w.pool.workers[r].storeState(stateActive)
	}
}

// ScanSmall computes the same exclusive-and-inclusive prefix
// combination as ScanLarge, but the root walks every worker's buffer
// sequentially instead of running the multi-phase rendezvous. Worth it
// when op.Width() is tiny; valid because workers share one address
// space, so the root can reach every published buffer directly.
func ScanSmall[T any](w *Worker, op ScanOp[T], work []T) {
	width := op.Width()
	w.scratch = work

	// Wait: Active -> Rendezvous
	for _, r := range w.fan {
		w.pool.workers[r].spinWhile(stateActive)
	}

	copy(work[width:2*width], work[:width])

	if w.poolRankRev != 0 {
		w.storeState(stateRendezvous)
		// Wait: Rendezvous -> Active
		w.spinWhile(stateRendezvous)
	} else {
		// Root scans every contribution in rank order before anyone
		// is released.
		var prev []T
		for _, p := range w.pool.workers {
			buf := p.scratch.([]T)
			if prev != nil {
				copy(buf[:width], prev[width:2*width])
				op.Join(buf[width:2*width], buf[:width])
			} else {
				op.Init(buf[:width])
			}
			prev = buf
		}
	}

	for _, r := range w.fan {
		w.pool.workers[r].storeState(stateActive)
	}
}
