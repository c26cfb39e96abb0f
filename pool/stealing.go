package pool

// ResetStealTarget reinitializes the round-robin victim cursor and
// clears the stealing flag. Call it once per dispatch before the first
// GetWorkIndex: a cursor left over from an earlier dispatch may point
// at a range that is live again, so this is a correctness requirement,
// not a tuning knob.
func (w *Worker) ResetStealTarget() {
	w.currentStealTarget = (w.poolRank + 1) % w.PoolSize()
	w.stealing = false
}

// ResetStealTargetTeam is the team-dispatch variant: the cursor starts
// at the first worker past this worker's team, wrapping to 0.
func (w *Worker) ResetStealTargetTeam(teamSize int) {
	w.currentStealTarget = w.poolRankRev + teamSize
	if w.currentStealTarget >= w.PoolSize() {
		w.currentStealTarget = 0
	}
	w.stealing = false
}

// stealTarget advances the cursor past exhausted victims and returns
// the rank of one with claimable work, or NoWorkIndex once the search
// comes back around to this worker.
func (w *Worker) stealTarget() int {
	for w.pool.workers[w.currentStealTarget].workRange.load().Empty() &&
		w.currentStealTarget != w.poolRank {
		w.currentStealTarget = (w.currentStealTarget + 1) % w.PoolSize()
	}
	if w.currentStealTarget == w.poolRank {
		return NoWorkIndex
	}
	return w.currentStealTarget
}

// stealTargetTeam advances the cursor in team-size strides. Teams are
// laid out over reverse ranks, so the cursor lives in reverse-rank
// space; the selected victim is resolved back to a rank for the claim.
func (w *Worker) stealTargetTeam(teamSize int) int {
	for w.byRevRank(w.currentStealTarget).workRange.load().Empty() &&
		w.currentStealTarget != w.poolRankRev {
		if w.currentStealTarget+teamSize < w.PoolSize() {
			w.currentStealTarget += teamSize
		} else {
			w.currentStealTarget = 0
		}
	}
	if w.currentStealTarget == w.poolRankRev {
		return NoWorkIndex
	}
	return w.byRevRank(w.currentStealTarget).poolRank
}

// stealWorkIndex claims from the back of a victim's range. The owner
// claims from the front, so owner and thief contend on opposite ends.
// A victim drained between selection and claim sends the search onward.
func (w *Worker) stealWorkIndex(teamSize int) int {
	next := func() int {
		if teamSize > 0 {
			return w.stealTargetTeam(teamSize)
		}
		return w.stealTarget()
	}
	for target := next(); target != NoWorkIndex; target = next() {
		if index := w.pool.workers[target].workRange.claimFromBack(); index != NoWorkIndex {
			return index
		}
	}
	return NoWorkIndex
}

// GetWorkIndex returns the next chunk index for this worker: from its
// own range while any remains, then stolen from a peer. Returns
// NoWorkIndex when no claimable work remains anywhere. Pass teamSize 0
// for a plain dispatch. The returned index is also recorded as the
// team work index.
func (w *Worker) GetWorkIndex(teamSize int) int {
	index := NoWorkIndex
	if !w.stealing {
		index = w.workRange.claimFromFront()
	}
	if index == NoWorkIndex {
		w.stealing = true
		index = w.stealWorkIndex(teamSize)
	}
	w.teamWorkIndex = index
	return index
}
