package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tickerbot/internal/model"
	"tickerbot/internal/queue"
)

// setupTestStore starts a PostgreSQL container and returns a ready Store.
// Requires Docker; skipped with -short.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	store := New(pool)
	require.NoError(t, store.CreateSchema(ctx))

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	return store
}

func TestStore_ClaimIsExclusive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const total = 30
	for i := 0; i < total; i++ {
		_, err := store.Enqueue(ctx, int64(i), model.CommandPrice, "BTCUSDT")
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[int64]int)
	var wg sync.WaitGroup
	for w := 0; w < 6; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := store.Claim(ctx, 4)
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
		require.Equalf(t, 1, n, "job %d claimed %d times", id, n)
	}
}

func TestStore_Lifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	job, err := store.Enqueue(ctx, 7, model.CommandIndicator, "ETHUSDT")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, job.Status)

	require.ErrorIs(t, store.MarkDone(ctx, job.ID), queue.ErrInvalidTransition)

	claimed, err := store.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, job.ID, claimed[0].ID)

	require.NoError(t, store.MarkDone(ctx, job.ID))
	require.ErrorIs(t, store.MarkFailed(ctx, job.ID, "x"), queue.ErrInvalidTransition)
	require.ErrorIs(t, store.MarkDone(ctx, 99999), queue.ErrNotFound)
}

func TestStore_CancelPendingOnly(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	running, err := store.Enqueue(ctx, 5, model.CommandChart, "BTCUSDT")
	require.NoError(t, err)
	_, err = store.Claim(ctx, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = store.Enqueue(ctx, 5, model.CommandPrice, "BTCUSDT")
		require.NoError(t, err)
	}

	n, err := store.Cancel(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), counts[model.StatusCancelled])
	require.Equal(t, int64(1), counts[model.StatusProcessing])
	_ = running
}
