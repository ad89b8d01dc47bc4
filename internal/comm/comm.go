// Package comm provides the collective-communication abstraction used to
// combine per-partition QC tallies into global counts.
//
// A Communicator links every process (or in-process rank) holding a partition
// of the same distributed dataset. The only collective operation this project
// needs is an all-reduce sum, which is also a synchronization barrier: every
// rank must call it the same number of times, with same-length vectors, in
// the same order.
package comm

import "context"

// Communicator performs collective operations across all ranks holding
// partitions of one dataset.
type Communicator interface {
	// AllSumInt64 replaces each element of vals with the sum of that element
	// across all ranks. It blocks until every rank has contributed; a rank
	// that never calls it leaves the others waiting. The context bounds the
	// wait — cancellation returns ctx.Err() without completing the reduction.
	AllSumInt64(ctx context.Context, vals []int64) error

	// Rank returns this process's rank, in [0, Size()).
	Rank() int

	// Size returns the number of participating ranks.
	Size() int
}

// Self is the single-rank communicator: reductions are identity operations
// and rank 0 is the only (therefore coordinating) rank.
type Self struct{}

// NewSelf returns a communicator for an undistributed dataset.
func NewSelf() Self { return Self{} }

// AllSumInt64 is a no-op: with one rank the local sums are the global sums.
func (Self) AllSumInt64(_ context.Context, _ []int64) error { return nil }

// Rank returns 0.
func (Self) Rank() int { return 0 }

// Size returns 1.
func (Self) Size() int { return 1 }
