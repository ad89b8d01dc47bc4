package comm_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/obs-qc-service/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelf(t *testing.T) {
	c := comm.NewSelf()
	assert.Equal(t, 0, c.Rank())
	assert.Equal(t, 1, c.Size())

	vals := []int64{3, 0, 7}
	require.NoError(t, c.AllSumInt64(context.Background(), vals))
	assert.Equal(t, []int64{3, 0, 7}, vals)
}

func TestGroup_AllSum(t *testing.T) {
	group := comm.NewGroup(4)

	results := make([][]int64, 4)
	var wg sync.WaitGroup
	for rank := 0; rank < 4; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			vals := []int64{int64(rank), 1, int64(10 * rank)}
			if err := group.Rank(rank).AllSumInt64(context.Background(), vals); err != nil {
				t.Error(err)
				return
			}
			results[rank] = vals
		}(rank)
	}
	wg.Wait()

	// 0+1+2+3=6 ranks, 4 ones, 0+10+20+30=60.
	for rank := 0; rank < 4; rank++ {
		assert.Equal(t, []int64{6, 4, 60}, results[rank], "rank %d", rank)
	}
}

func TestGroup_SuccessiveRounds(t *testing.T) {
	// Each rank reduces twice; the rounds must not bleed into each other.
	group := comm.NewGroup(2)

	var wg sync.WaitGroup
	firsts := make([][]int64, 2)
	seconds := make([][]int64, 2)
	for rank := 0; rank < 2; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			c := group.Rank(rank)

			first := []int64{1}
			if err := c.AllSumInt64(context.Background(), first); err != nil {
				t.Error(err)
				return
			}
			firsts[rank] = first

			second := []int64{100}
			if err := c.AllSumInt64(context.Background(), second); err != nil {
				t.Error(err)
				return
			}
			seconds[rank] = second
		}(rank)
	}
	wg.Wait()

	for rank := 0; rank < 2; rank++ {
		assert.Equal(t, []int64{2}, firsts[rank], "rank %d first round", rank)
		assert.Equal(t, []int64{200}, seconds[rank], "rank %d second round", rank)
	}
}

func TestGroup_MissingParticipantBlocksUntilCancelled(t *testing.T) {
	group := comm.NewGroup(2)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// Only rank 0 arrives; rank 1 never calls. The reduction must block until
	// the context expires, not partially complete.
	err := group.Rank(0).AllSumInt64(ctx, []int64{1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGroup_LengthMismatch(t *testing.T) {
	group := comm.NewGroup(2)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- group.Rank(0).AllSumInt64(ctx, []int64{1, 2})
	}()

	// Give rank 0 a moment to open the round with length 2.
	time.Sleep(10 * time.Millisecond)
	err := group.Rank(1).AllSumInt64(ctx, []int64{1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")

	// Rank 0 is now stranded; it unblocks via the context.
	assert.ErrorIs(t, <-errCh, context.DeadlineExceeded)
}

func TestGroup_RankHandles(t *testing.T) {
	group := comm.NewGroup(3)
	assert.Equal(t, 3, group.Size())

	for rank := 0; rank < 3; rank++ {
		c := group.Rank(rank)
		assert.Equal(t, rank, c.Rank())
		assert.Equal(t, 3, c.Size())
	}

	assert.Panics(t, func() { group.Rank(-1) })
	assert.Panics(t, func() { group.Rank(3) })
	assert.Panics(t, func() { comm.NewGroup(0) })
}
