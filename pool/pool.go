// Package pool implements a fixed-size worker pool whose members
// synchronize exclusively through spin-waits on atomic state registers:
// no mutexes, condition variables, or channels on the hot path. It
// provides barrier, all-reduce, fan-in reduce, and scan collectives
// over a logarithmic fan-in tree, plus a work-stealing scheduler for
// dynamic range partitioning.
//
// A single pool is live per process at a time. A dispatch driver calls
// Initialize, hands a function to every worker with Start (or Run),
// observes completion with Fence, and tears the pool down with
// Finalize. A stalled worker deadlocks the pool; collectives have no
// timeout or recovery, by contract.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/avandra/spinpool/gsync"
	"github.com/avandra/spinpool/internal"
)

const (
	// MaxFanCount bounds the fan array: log2 of the pool size for
	// reduction partners plus two scan slots.
	MaxFanCount = 16

	// MaxThreadCount is the hard cap on pool size.
	MaxThreadCount = 1 << (MaxFanCount - 2)
)

// Pool is a fixed set of spin-synchronized workers. The registry owns
// every worker; fan and steal targets are held as ranks into it.
type Pool struct {
	workers []*Worker // index == PoolRank

	// Dispatch slots, written by Start while the pool is quiescent.
	fn  func(*Worker, any)
	arg any

	// First panic captured from a worker during the current dispatch.
	panicMu  sync.Mutex
	panicVal any

	join sync.WaitGroup
}

// The process-wide pool handle. A second concurrent pool is forbidden
// by construction.
var active atomic.Pointer[Pool]

// Initialize spins up a pool of threadCount workers and installs it as
// the process-wide pool. It panics if a pool is already live or if
// threadCount is outside [1, MaxThreadCount].
func Initialize(threadCount int) *Pool {
	if threadCount < 1 || threadCount > MaxThreadCount {
		panic(fmt.Sprintf("spinpool: thread count %d outside [1, %d]", threadCount, MaxThreadCount))
	}
	p := newPool(threadCount)
	if !active.CompareAndSwap(nil, p) {
		panic("spinpool: pool already initialized")
	}
	p.join.Add(threadCount)
	for _, w := range p.workers {
		go p.driver(w)
	}
	return p
}

// newPool builds the worker registry and fan-tree topology without
// starting any workers.
func newPool(threadCount int) *Pool {
	p := &Pool{workers: make([]*Worker, threadCount)}
	for rank := range p.workers {
		w := &Worker{
			pool:        p,
			poolRank:    rank,
			poolRankRev: threadCount - (rank + 1),
			fan:         fanRanks(rank, threadCount),
		}
		w.storeState(stateInactive)
		w.ResetStealTarget()
		p.workers[rank] = w
	}
	return p
}

// Finalize waits for outstanding work, stops every worker, and releases
// the process-wide pool. It panics if no pool is live.
func Finalize() {
	p := active.Load()
	if p == nil {
		panic("spinpool: Finalize without an initialized pool")
	}
	p.Fence()
	for _, w := range p.workers {
		w.storeState(stateTerminating)
	}
	p.join.Wait()
	active.Store(nil)
}

// IsInitialized reports whether a pool is live.
func IsInitialized() bool { return active.Load() != nil }

// Default returns the process-wide pool and panics if none is live.
func Default() *Pool {
	p := active.Load()
	if p == nil {
		panic("spinpool: no initialized pool")
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// RootRank returns the rank of the collective root, the highest rank.
func (p *Pool) RootRank() int { return len(p.workers) - 1 }

// driver is the worker goroutine body: park until activated, run the
// dispatched function, park again. A panic in the function is captured
// so Fence can re-raise it; the peers of a worker that panicked inside
// a collective are left spinning, which is a fatal condition by
// contract.
func (p *Pool) driver(w *Worker) {
	defer p.join.Done()
	for {
		switch s := w.spinWhile(stateInactive); s {
		case stateTerminating:
			return
		case stateActive:
		default:
			panic("spinpool: worker activated in state " + s.String())
		}
		p.invoke(w)
		w.storeState(stateInactive)
	}
}

func (p *Pool) invoke(w *Worker) {
	defer func() {
		if r := recover(); r != nil {
			p.recordPanic(internal.WrapPanic(r))
		}
	}()
	p.fn(w, p.arg)
}

func (p *Pool) recordPanic(v any) {
	p.panicMu.Lock()
	if p.panicVal == nil {
		p.panicVal = v
	}
	p.panicMu.Unlock()
}

// Start hands fn and arg to every worker and returns once the dispatch
// is accepted; completion is observed via Fence. Workers are activated
// in rank order, fan partners before the workers that wait on them, so
// a fan-in never mistakes a not-yet-running partner for a finished one.
func (p *Pool) Start(fn func(*Worker, any), arg any) {
	if fn == nil {
		panic("spinpool: Start requires a non-nil function")
	}
	p.Fence()
	p.fn, p.arg = fn, arg
	for _, w := range p.workers {
		w.storeState(stateActive)
	}
}

// Fence blocks until every worker has parked. If a worker panicked
// during the dispatch, Fence re-raises the first such panic, wrapped
// with the worker's stack trace.
func (p *Pool) Fence() {
	for _, w := range p.workers {
		gsync.SpinUntilEqual(&w.state, uint32(stateInactive))
	}
	p.panicMu.Lock()
	v := p.panicVal
	p.panicVal = nil
	p.panicMu.Unlock()
	if v != nil {
		panic(v)
	}
}

// Run dispatches fn and waits for it to complete.
func (p *Pool) Run(fn func(*Worker, any), arg any) {
	p.Start(fn, arg)
	p.Fence()
}
