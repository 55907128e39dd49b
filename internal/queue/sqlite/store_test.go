package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"tickerbot/internal/model"
	"tickerbot/internal/queue"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_EnqueueClaimRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	j1, err := store.Enqueue(ctx, 10, model.CommandPrice, "BTCUSDT")
	require.NoError(t, err)
	j2, err := store.Enqueue(ctx, 10, model.CommandIndicator, "ETHUSDT")
	require.NoError(t, err)

	claimed, err := store.Claim(ctx, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	require.Equal(t, j1.ID, claimed[0].ID, "oldest job first")
	require.Equal(t, j2.ID, claimed[1].ID)
	for _, j := range claimed {
		require.Equal(t, model.StatusProcessing, j.Status)
	}

	// Queue drained.
	empty, err := store.Claim(ctx, 5)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestStore_ClaimRespectsBatchSize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := store.Enqueue(ctx, 1, model.CommandChart, "BTCUSDT")
		require.NoError(t, err)
	}

	first, err := store.Claim(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 5)

	second, err := store.Claim(ctx, 5)
	require.NoError(t, err)
	require.Len(t, second, 2)
}

func TestStore_ConcurrentClaim(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const total = 40
	for i := 0; i < total; i++ {
		_, err := store.Enqueue(ctx, int64(i), model.CommandPrice, "BTCUSDT")
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[int64]int)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := store.Claim(ctx, 3)
				if err != nil {
					t.Errorf("Claim: %v", err)
					return
				}
				if len(jobs) == 0 {
					return
				}
				mu.Lock()
				for _, j := range jobs {
					seen[j.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, total)
	for id, n := range seen {
		require.Equalf(t, 1, n, "job %d double-claimed", id)
	}
}

func TestStore_StatusTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, 3, model.CommandCandlestick, "BNBUSDT")
	require.NoError(t, err)

	// Pending jobs cannot be completed.
	require.ErrorIs(t, store.MarkDone(ctx, job.ID), queue.ErrInvalidTransition)
	require.ErrorIs(t, store.MarkDone(ctx, 12345), queue.ErrNotFound)

	_, err = store.Claim(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, job.ID, "no data"))

	// Failed is terminal.
	require.ErrorIs(t, store.MarkDone(ctx, job.ID), queue.ErrInvalidTransition)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts[model.StatusFailed])
}

func TestStore_CancelLeavesProcessing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	processing, err := store.Enqueue(ctx, 42, model.CommandPrice, "BTCUSDT")
	require.NoError(t, err)
	_, err = store.Claim(ctx, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = store.Enqueue(ctx, 42, model.CommandChart, "ETHUSDT")
		require.NoError(t, err)
	}

	n, err := store.Cancel(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), counts[model.StatusCancelled])
	require.Equal(t, int64(1), counts[model.StatusProcessing])

	// Once cancelled, jobs are invisible to Claim.
	jobs, err := store.Claim(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, jobs)
	_ = processing
}
