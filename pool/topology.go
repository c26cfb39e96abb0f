package pool

// Fan-in collectives converge on the highest ranking worker so that
// intermediate scan values land on the workers that need them; for a
// plain reduction the root location is arbitrary. Topology is expressed
// in reverse ranks: revRank = size - (rank + 1), root at revRank 0.

// fanSize returns the number of direct fan-in partners for the worker
// with the given rank. Partner i sits at reverse rank rev + 2^i; the
// worker fans in from it while that index stays inside the pool and bit
// i of its own reverse rank is clear. The result is a binomial tree of
// depth at most ceil(log2(size)) over the reverse ranks.
func fanSize(rank, size int) int {
	rev := size - (rank + 1)
	n := 0
	for m := 1; rev+m < size && rev&m == 0; m <<= 1 {
		n++
	}
	return n
}

// fanRanks returns the ranks of the fan-in partners, nearest first.
func fanRanks(rank, size int) []int {
	rev := size - (rank + 1)
	n := fanSize(rank, size)
	if n == 0 {
		return nil
	}
	ranks := make([]int, n)
	for i := range ranks {
		ranks[i] = size - 1 - (rev + 1<<i)
	}
	return ranks
}

// byRevRank looks up a pool member by reverse rank.
func (w *Worker) byRevRank(rev int) *Worker {
	return w.pool.workers[len(w.pool.workers)-1-rev]
}
