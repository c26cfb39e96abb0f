package pool

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withPool runs f against a freshly initialized process-wide pool and
// tears it down afterwards. Tests share the singleton, so they must go
// through this helper.
func withPool(t *testing.T, n int, f func(p *Pool)) {
	t.Helper()
	p := Initialize(n)
	defer Finalize()
	f(p)
}

func TestInitializeValidatesThreadCount(t *testing.T) {
	require.Panics(t, func() { Initialize(0) })
	require.Panics(t, func() { Initialize(-1) })
	require.Panics(t, func() { Initialize(MaxThreadCount + 1) })
}

func TestSecondPoolForbidden(t *testing.T) {
	withPool(t, 2, func(*Pool) {
		require.Panics(t, func() { Initialize(2) })
	})
}

func TestLifecycle(t *testing.T) {
	require.False(t, IsInitialized())
	require.Panics(t, func() { Default() })
	require.Panics(t, func() { Finalize() })

	p := Initialize(3)
	require.True(t, IsInitialized())
	require.Same(t, p, Default())
	require.Equal(t, 3, p.Size())
	require.Equal(t, 2, p.RootRank())

	Finalize()
	require.False(t, IsInitialized())
}

func TestWorkerIdentity(t *testing.T) {
	withPool(t, 5, func(p *Pool) {
		ranks := make([]int, p.Size())
		revs := make([]int, p.Size())
		sizes := make([]int, p.Size())
		p.Run(func(w *Worker, _ any) {
			ranks[w.PoolRank()] = w.PoolRank()
			revs[w.PoolRank()] = w.PoolRankRev()
			sizes[w.PoolRank()] = w.PoolSize()
		}, nil)
		for rank := 0; rank < p.Size(); rank++ {
			assert.Equal(t, rank, ranks[rank])
			assert.Equal(t, p.Size()-rank-1, revs[rank])
			assert.Equal(t, p.Size(), sizes[rank])
		}
	})
}

func TestStartPassesArgument(t *testing.T) {
	withPool(t, 4, func(p *Pool) {
		type payload struct{ value int }
		seen := make([]int, p.Size())
		p.Run(func(w *Worker, arg any) {
			seen[w.PoolRank()] = arg.(*payload).value
		}, &payload{value: 42})
		for _, v := range seen {
			require.Equal(t, 42, v)
		}
	})
}

func TestBarrierKeepsWorkersInStep(t *testing.T) {
	const rounds = 50
	for _, n := range []int{1, 2, 3, 4, 5, 8} {
		withPool(t, n, func(p *Pool) {
			counters := make([]atomic.Int64, n)
			var violated atomic.Bool
			p.Run(func(w *Worker, _ any) {
				for k := 0; k < rounds; k++ {
					counters[w.PoolRank()].Add(1)
					w.Barrier()
					// Every worker must have entered round k by now.
					for r := range counters {
						if counters[r].Load() < int64(k+1) {
							violated.Store(true)
						}
					}
					w.Barrier()
				}
			}, nil)
			require.False(t, violated.Load(), "pool size %d", n)
		})
	}
}

func TestAllReduce(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8} {
		withPool(t, n, func(p *Pool) {
			want := int64(n * (n + 1) / 2)
			results := make([]int64, n)
			p.Run(func(w *Worker, _ any) {
				results[w.PoolRank()] = w.AllReduce(int64(w.PoolRank() + 1))
			}, nil)
			for rank, got := range results {
				assert.Equal(t, want, got, "pool size %d rank %d", n, rank)
			}
		})
	}
}

func TestAllReduceRepeated(t *testing.T) {
	withPool(t, 4, func(p *Pool) {
		var violated atomic.Bool
		p.Run(func(w *Worker, _ any) {
			for k := 1; k <= 20; k++ {
				got := w.AllReduce(int64(k * (w.PoolRank() + 1)))
				if got != int64(k*10) {
					violated.Store(true)
				}
			}
		}, nil)
		require.False(t, violated.Load())
	})
}

func TestFencePropagatesWorkerPanic(t *testing.T) {
	withPool(t, 3, func(p *Pool) {
		require.Panics(t, func() {
			p.Run(func(w *Worker, _ any) {
				if w.PoolRank() == 0 {
					panic("kernel failure")
				}
			}, nil)
		})
		// The pool must be usable again after the panic surfaced.
		var ran atomic.Int64
		p.Run(func(*Worker, any) { ran.Add(1) }, nil)
		require.Equal(t, int64(3), ran.Load())
	})
}

func TestStartRequiresFunction(t *testing.T) {
	withPool(t, 2, func(p *Pool) {
		require.Panics(t, func() { p.Start(nil, nil) })
	})
}

func TestScratchMemoryRoundTrip(t *testing.T) {
	withPool(t, 2, func(p *Pool) {
		ok := make([]bool, p.Size())
		p.Run(func(w *Worker, _ any) {
			buf := []int{w.PoolRank()}
			w.SetScratch(buf)
			got, valid := w.ScratchMemory().([]int)
			ok[w.PoolRank()] = valid && got[0] == w.PoolRank()
		}, nil)
		for rank, v := range ok {
			require.True(t, v, "rank %d", rank)
		}
	})
}
