// This package provides a fixed-size, spin-synchronized worker pool for
// data-parallel and collective operations.
//
// It provides the following subpackages:
//
// spinpool/pool provides the engine itself: pool lifecycle, the fan-tree
// collectives (barrier, all-reduce, fan-in reduce, two scan variants),
// and the work-stealing scheduler. Workers never block on OS primitives;
// all synchronization is spin-waiting on atomic state registers.
//
// spinpool/parallel provides dispatch drivers built on the engine:
// parallel-for, parallel-reduce, and prefix sums over integer ranges and
// slices.
//
// spinpool/gsync provides the low-level synchronization primitives
// shared by the engine: spin-wait loops and a packed atomic interval.
package spinpool
