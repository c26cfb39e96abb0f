// Package parallel provides functions for expressing data-parallel
// algorithms on an initialized spinpool worker pool.
//
// Every function dispatches one function to all pool workers and
// returns when the dispatch has completed. For and the reducers
// partition the iteration range into chunks claimed through the pool's
// work-stealing scheduler; PrefixSum partitions statically, because a
// scan must preserve rank order.
package parallel

import (
	"fmt"

	"github.com/avandra/spinpool/internal"
	"github.com/avandra/spinpool/pool"
)

type Addable interface {
	~uint | ~int | ~uintptr |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64 |
		~complex64 | ~complex128 |
		~string
}

// addOp sums single-element values; it serves both as a reduction and
// as a scan operator.
type addOp[T Addable] struct{}

func (addOp[T]) Width() int { return 1 }

func (addOp[T]) Init(update []T) {
	var zero T
	update[0] = zero
}

func (addOp[T]) Join(update, input []T) { update[0] += input[0] }

func (addOp[T]) Final([]T) {}

// joinOp lifts a user join function and identity element into a
// single-element reduction operator.
type joinOp[T any] struct {
	join     func(x, y T) T
	identity T
}

func (o joinOp[T]) Width() int { return 1 }

func (o joinOp[T]) Init(update []T) { update[0] = o.identity }

func (o joinOp[T]) Join(update, input []T) { update[0] = o.join(update[0], input[0]) }

func (o joinOp[T]) Final([]T) {}

func checkRange(begin, end, chunkSize int) {
	if end < begin {
		panic(fmt.Sprintf("parallel: invalid range: %v:%v", begin, end))
	}
	if chunkSize < 1 {
		panic(fmt.Sprintf("parallel: invalid chunk size: %v", chunkSize))
	}
}

// ownShare installs this worker's even share of the chunk-index space
// [0, nchunk) as its claimable range and synchronizes the pool, so no
// steal can observe a range that has not been set yet.
func ownShare(w *pool.Worker, nchunk, chunkSize int) {
	share := internal.CeilDiv(nchunk, w.PoolSize())
	lo := min(w.PoolRank()*share, nchunk)
	hi := min(lo+share, nchunk)
	w.SetWorkRange(lo*chunkSize, hi*chunkSize, chunkSize)
	w.ResetStealTarget()
	w.Barrier()
}

// For invokes f(i) for every i in the half-open interval [begin, end),
// in parallel. The interval is split into chunkSize-sized chunks,
// distributed across the pool and rebalanced by work stealing. For
// returns when every invocation has completed.
//
// For panics if end < begin, chunkSize < 1, or f is nil, and re-raises
// the first captured panic of any f invocation.
func For(p *pool.Pool, begin, end, chunkSize int, f func(i int)) {
	checkRange(begin, end, chunkSize)
	if f == nil {
		panic("parallel: For requires a non-nil function")
	}
	if begin == end {
		return
	}
	nchunk := internal.CeilDiv(end-begin, chunkSize)
	p.Run(func(w *pool.Worker, _ any) {
		ownShare(w, nchunk, chunkSize)
		for {
			ci := w.GetWorkIndex(0)
			if ci == pool.NoWorkIndex {
				break
			}
			stop := min(begin+(ci+1)*chunkSize, end)
			for i := begin + ci*chunkSize; i < stop; i++ {
				f(i)
			}
		}
		w.FanIn()
	}, nil)
}

// Reduce invokes f(i) for every i in [begin, end) in parallel and
// combines the results with join, starting from identity on every
// worker. join must be associative and commutative: work stealing makes
// the combination order non-deterministic.
//
// Reduce panics like For and re-raises the first captured panic of any
// f or join invocation.
func Reduce[T any](
	p *pool.Pool,
	begin, end, chunkSize int,
	identity T,
	f func(i int) T,
	join func(x, y T) T,
) T {
	checkRange(begin, end, chunkSize)
	if f == nil || join == nil {
		panic("parallel: Reduce requires non-nil functions")
	}
	op := joinOp[T]{join: join, identity: identity}
	results := make([][]T, p.Size())
	nchunk := internal.CeilDiv(end-begin, chunkSize)
	p.Run(func(w *pool.Worker, _ any) {
		work := []T{identity}
		if nchunk > 0 {
			ownShare(w, nchunk, chunkSize)
			for {
				ci := w.GetWorkIndex(0)
				if ci == pool.NoWorkIndex {
					break
				}
				stop := min(begin+(ci+1)*chunkSize, end)
				for i := begin + ci*chunkSize; i < stop; i++ {
					work[0] = join(work[0], f(i))
				}
			}
		}
		results[w.PoolRank()] = work
		pool.FanInReduce(w, op, work)
	}, nil)
	return results[p.RootRank()][0]
}

// ReduceSum invokes f(i) for every i in [begin, end) in parallel and
// adds the results.
func ReduceSum[T Addable](p *pool.Pool, begin, end, chunkSize int, f func(i int) T) T {
	var zero T
	return Reduce(p, begin, end, chunkSize, zero, f, func(x, y T) T { return x + y })
}

// PrefixSum replaces slice with its inclusive prefix sums: slice[i]
// becomes the sum of the original slice[0..i]. The slice is partitioned
// statically across the pool and per-worker offsets are combined with
// an exclusive pool-wide scan.
func PrefixSum[T Addable](p *pool.Pool, slice []T) {
	if len(slice) == 0 {
		return
	}
	p.Run(func(w *pool.Worker, _ any) {
		share := internal.CeilDiv(len(slice), w.PoolSize())
		lo := min(w.PoolRank()*share, len(slice))
		hi := min(lo+share, len(slice))

		work := make([]T, 2)
		for _, v := range slice[lo:hi] {
			work[0] += v
		}

		pool.ScanLarge(w, addOp[T]{}, work)

		offset := work[0]
		for i := lo; i < hi; i++ {
			offset += slice[i]
			slice[i] = offset
		}
	}, nil)
}
