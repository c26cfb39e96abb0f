package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxOp keeps the largest value seen.
type maxOp struct{}

func (maxOp) Join(update, input []int64) {
	if input[0] > update[0] {
		update[0] = input[0]
	}
}

func (maxOp) Final([]int64) {}

// sumScanOp adds elementwise over a fixed width.
type sumScanOp struct{ width int }

func (o sumScanOp) Width() int { return o.width }

func (o sumScanOp) Init(update []int64) {
	for i := range update[:o.width] {
		update[i] = 0
	}
}

func (o sumScanOp) Join(update, input []int64) {
	for i := 0; i < o.width; i++ {
		update[i] += input[i]
	}
}

func TestFanInReduceMax(t *testing.T) {
	inputs := []int64{3, 7, 1, 9, 2}
	withPool(t, len(inputs), func(p *Pool) {
		bufs := make([][]int64, p.Size())
		p.Run(func(w *Worker, _ any) {
			work := []int64{inputs[w.PoolRank()]}
			bufs[w.PoolRank()] = work
			FanInReduce(w, maxOp{}, work)
		}, nil)
		require.Equal(t, int64(9), bufs[p.RootRank()][0])
	})
}

func TestFanInReduceFinalRunsOnRootOnly(t *testing.T) {
	withPool(t, 4, func(p *Pool) {
		finals := make([]bool, p.Size())
		p.Run(func(w *Worker, _ any) {
			work := []int64{1}
			FanInReduce[int64](w, &finalTracker{finals: finals, rank: w.PoolRank()}, work)
		}, nil)
		for rank, ran := range finals {
			assert.Equal(t, rank == p.RootRank(), ran, "rank %d", rank)
		}
	})
}

type finalTracker struct {
	finals []bool
	rank   int
}

func (f *finalTracker) Join(update, input []int64) { update[0] += input[0] }

func (f *finalTracker) Final([]int64) { f.finals[f.rank] = true }

func scanWorkBuffers(t *testing.T, p *Pool, large bool, width int, contribution func(rank int) []int64) [][]int64 {
	t.Helper()
	bufs := make([][]int64, p.Size())
	p.Run(func(w *Worker, _ any) {
		work := make([]int64, 2*width)
		copy(work, contribution(w.PoolRank()))
		bufs[w.PoolRank()] = work
		if large {
			ScanLarge(w, sumScanOp{width: width}, work)
		} else {
			ScanSmall(w, sumScanOp{width: width}, work)
		}
	}, nil)
	return bufs
}

func TestScanVariantsAgree(t *testing.T) {
	inputs := []int64{1, 2, 3, 4}
	wantExclusive := []int64{0, 1, 3, 6}
	wantInclusive := []int64{1, 3, 6, 10}
	for _, large := range []bool{false, true} {
		withPool(t, len(inputs), func(p *Pool) {
			bufs := scanWorkBuffers(t, p, large, 1, func(rank int) []int64 {
				return inputs[rank : rank+1]
			})
			for rank, buf := range bufs {
				assert.Equal(t, wantExclusive[rank], buf[0], "large=%v rank %d exclusive", large, rank)
				assert.Equal(t, wantInclusive[rank], buf[1], "large=%v rank %d inclusive", large, rank)
			}
		})
	}
}

func TestScanLargeSizes(t *testing.T) {
	for n := 1; n <= 8; n++ {
		withPool(t, n, func(p *Pool) {
			bufs := scanWorkBuffers(t, p, true, 1, func(rank int) []int64 {
				return []int64{int64(rank + 1)}
			})
			for rank, buf := range bufs {
				wantExclusive := int64(rank * (rank + 1) / 2)
				assert.Equal(t, wantExclusive, buf[0], "n=%d rank %d exclusive", n, rank)
				assert.Equal(t, wantExclusive+int64(rank+1), buf[1], "n=%d rank %d inclusive", n, rank)
			}
		})
	}
}

func TestScanSmallSizes(t *testing.T) {
	for n := 1; n <= 8; n++ {
		withPool(t, n, func(p *Pool) {
			bufs := scanWorkBuffers(t, p, false, 1, func(rank int) []int64 {
				return []int64{int64(rank + 1)}
			})
			for rank, buf := range bufs {
				wantExclusive := int64(rank * (rank + 1) / 2)
				assert.Equal(t, wantExclusive, buf[0], "n=%d rank %d exclusive", n, rank)
			}
		})
	}
}

func TestScanLargeWideValues(t *testing.T) {
	const width = 3
	for _, n := range []int{1, 2, 3, 5, 8} {
		withPool(t, n, func(p *Pool) {
			bufs := scanWorkBuffers(t, p, true, width, func(rank int) []int64 {
				v := int64(rank + 1)
				return []int64{v, 1, 2 * v}
			})
			for rank, buf := range bufs {
				sum := int64(rank * (rank + 1) / 2)
				assert.Equal(t, []int64{sum, int64(rank), 2 * sum}, buf[:width],
					"n=%d rank %d exclusive", n, rank)
			}
		})
	}
}

func TestScanReusesPoolAcrossDispatches(t *testing.T) {
	withPool(t, 4, func(p *Pool) {
		for k := 1; k <= 10; k++ {
			bufs := scanWorkBuffers(t, p, true, 1, func(int) []int64 {
				return []int64{int64(k)}
			})
			for rank, buf := range bufs {
				require.Equal(t, int64(k*rank), buf[0], "dispatch %d rank %d", k, rank)
			}
		}
	})
}
