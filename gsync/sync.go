// Package gsync provides low-level synchronization primitives for the
// pool engine: spin-wait loops over atomic registers and a half-open
// interval packed into a single atomic word.
package gsync

import (
	"runtime"
	"sync/atomic"
)

// After this many consecutive failed polls the spinner yields its
// processor, so a pool larger than GOMAXPROCS still makes progress.
const yieldMask = 1<<7 - 1

// SpinWhileEqual busy-polls v until its value differs from x and
// returns the first differing value observed. The successful load
// acquires whatever the writer published before the transition.
func SpinWhileEqual(v *atomic.Uint32, x uint32) uint32 {
	for i := 0; ; i++ {
		if cur := v.Load(); cur != x {
			return cur
		}
		if i&yieldMask == yieldMask {
			runtime.Gosched()
		}
	}
}

// SpinUntilEqual busy-polls v until its value equals x.
func SpinUntilEqual(v *atomic.Uint32, x uint32) {
	for i := 0; v.Load() != x; i++ {
		if i&yieldMask == yieldMask {
			runtime.Gosched()
		}
	}
}

// Interval is a half-open interval [First, Second) of 32-bit values.
type Interval struct {
	First, Second int32
}

// Empty reports whether the interval holds no values.
func (iv Interval) Empty() bool { return iv.First >= iv.Second }

// Pack encodes iv into a single word so that both bounds can be
// exchanged with one compare-and-swap. Two independent atomics could be
// observed torn, handing out values from an invalid interval.
func Pack(iv Interval) uint64 {
	return uint64(uint32(iv.First))<<32 | uint64(uint32(iv.Second))
}

// Unpack decodes a word produced by Pack.
func Unpack(w uint64) Interval {
	return Interval{First: int32(uint32(w >> 32)), Second: int32(uint32(w))}
}
