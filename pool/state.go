package pool

import "github.com/avandra/spinpool/gsync"

// threadState is the per-worker synchronization register. Collectives
// advance it along fixed sequences; every transition is announced by an
// atomic store and observed by a spin-wait, and that release/acquire
// pair is the only synchronization between workers. Data published
// before a transition (scratch buffers, work ranges) may be read only
// after observing the transition that announces it.
type threadState uint32

const (
	stateTerminating        threadState = iota // pool is shutting down
	stateInactive                              // parked between dispatches
	stateActive                                // running a dispatch
	stateRendezvous                            // waiting at a barrier
	stateReductionAvailable                    // partial reduction published
	stateScanAvailable                         // inclusive scan value published
	stateScanCompleted                         // exclusive scan value consumed
)

func (s threadState) String() string {
	switch s {
	case stateTerminating:
		return "Terminating"
	case stateInactive:
		return "Inactive"
	case stateActive:
		return "Active"
	case stateRendezvous:
		return "Rendezvous"
	case stateReductionAvailable:
		return "ReductionAvailable"
	case stateScanAvailable:
		return "ScanAvailable"
	case stateScanCompleted:
		return "ScanCompleted"
	}
	return "Unknown"
}

func (w *Worker) storeState(s threadState) {
	w.state.Store(uint32(s))
}

// spinWhile busy-polls this worker's register until it leaves s and
// returns the state observed.
func (w *Worker) spinWhile(s threadState) threadState {
	return threadState(gsync.SpinWhileEqual(&w.state, uint32(s)))
}
