package comm

import (
	"context"
	"fmt"
	"sync"
)

// Group coordinates collective sums between ranks that live in the same
// process, each typically running on its own goroutine. It exists for two
// callers: tests that exercise multi-partition reporting, and the offline
// report tool, which splits one batch across simulated partitions.
//
// Obtain per-rank communicators with [Group.Rank].
type Group struct {
	size int

	mu  sync.Mutex
	cur *round
}

// round accumulates one collective sum. The last rank to arrive closes done;
// nothing writes sum after that.
type round struct {
	sum     []int64
	arrived int
	done    chan struct{}
}

// NewGroup creates a communicator group of the given size. Size must be at
// least 1.
func NewGroup(size int) *Group {
	if size < 1 {
		panic(fmt.Sprintf("comm: group size %d, need at least 1", size))
	}
	return &Group{size: size}
}

// Size returns the number of ranks in the group.
func (g *Group) Size() int { return g.size }

// Rank returns the communicator for one rank of the group.
func (g *Group) Rank(rank int) Communicator {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("comm: rank %d out of range [0,%d)", rank, g.size))
	}
	return &groupRank{group: g, rank: rank}
}

func (g *Group) allSum(ctx context.Context, vals []int64) error {
	g.mu.Lock()
	if g.cur == nil {
		g.cur = &round{sum: make([]int64, len(vals)), done: make(chan struct{})}
	}
	r := g.cur
	if len(vals) != len(r.sum) {
		g.mu.Unlock()
		return fmt.Errorf("comm: reduction length mismatch: got %d, round started with %d", len(vals), len(r.sum))
	}
	for i, v := range vals {
		r.sum[i] += v
	}
	r.arrived++
	last := r.arrived == g.size
	if last {
		g.cur = nil
		close(r.done)
	}
	g.mu.Unlock()

	if !last {
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	copy(vals, r.sum)
	return nil
}

// groupRank is one rank's view of a Group.
type groupRank struct {
	group *Group
	rank  int
}

func (c *groupRank) AllSumInt64(ctx context.Context, vals []int64) error {
	return c.group.allSum(ctx, vals)
}

func (c *groupRank) Rank() int { return c.rank }

func (c *groupRank) Size() int { return c.group.size }
