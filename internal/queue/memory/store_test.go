package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tickerbot/internal/model"
	"tickerbot/internal/queue"
)

func TestStore_EnqueueAndClaim(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Enqueue(ctx, 100, model.CommandPrice, "BTCUSDT"); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	claimed, err := store.Claim(ctx, 2)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected 2 claimed jobs, got %d", len(claimed))
	}
	// FIFO: oldest ids first.
	if claimed[0].ID != 1 || claimed[1].ID != 2 {
		t.Errorf("expected ids [1 2], got [%d %d]", claimed[0].ID, claimed[1].ID)
	}
	for _, j := range claimed {
		if j.Status != model.StatusProcessing {
			t.Errorf("job %d: status = %s, want processing", j.ID, j.Status)
		}
	}

	// One pending job remains.
	rest, err := store.Claim(ctx, 10)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != 3 {
		t.Fatalf("expected remaining job 3, got %v", rest)
	}
}

func TestStore_EnqueueValidation(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, 1, model.Command("bogus"), "BTCUSDT"); !errors.Is(err, queue.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown command, got %v", err)
	}
	if _, err := store.Enqueue(ctx, 1, model.CommandPrice, ""); !errors.Is(err, queue.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty pair, got %v", err)
	}
}

func TestStore_ConcurrentClaimNeverDoubleClaims(t *testing.T) {
	store := New()
	ctx := context.Background()

	const total = 50
	for i := 0; i < total; i++ {
		if _, err := store.Enqueue(ctx, int64(i), model.CommandIndicator, "ETHUSDT"); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	var mu sync.Mutex
	seen := make(map[int64]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				jobs, err := store.Claim(ctx, 5)
				if err != nil {
					t.Errorf("Claim failed: %v", err)
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

	if len(seen) != total {
		t.Errorf("expected %d distinct claimed jobs, got %d", total, len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("job %d claimed %d times", id, n)
		}
	}
}

func TestStore_MarkDoneAndFailed(t *testing.T) {
	store := New()
	ctx := context.Background()

	job, _ := store.Enqueue(ctx, 7, model.CommandChart, "BTCUSDT")

	// Not claimed yet: transition is invalid.
	if err := store.MarkDone(ctx, job.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := store.Claim(ctx, 1); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "upstream fetch failed"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, ok := store.Get(job.ID)
	if !ok {
		t.Fatal("job disappeared")
	}
	if got.Status != model.StatusFailed || got.Error != "upstream fetch failed" {
		t.Errorf("got status=%s error=%q", got.Status, got.Error)
	}

	if err := store.MarkDone(ctx, 9999); !errors.Is(err, queue.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_CancelOnlyTouchesPending(t *testing.T) {
	store := New()
	ctx := context.Background()

	// One claimed job plus three pending for the same chat.
	first, _ := store.Enqueue(ctx, 42, model.CommandPrice, "BTCUSDT")
	if _, err := store.Claim(ctx, 1); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		store.Enqueue(ctx, 42, model.CommandChart, "ETHUSDT")
	}
	// Another chat's pending job must be untouched.
	other, _ := store.Enqueue(ctx, 99, model.CommandPrice, "BTCUSDT")

	n, err := store.Cancel(ctx, 42)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if n != 3 {
		t.Errorf("cancelled %d jobs, want 3", n)
	}

	got, _ := store.Get(first.ID)
	if got.Status != model.StatusProcessing {
		t.Errorf("processing job transitioned to %s by Cancel", got.Status)
	}
	gotOther, _ := store.Get(other.ID)
	if gotOther.Status != model.StatusPending {
		t.Errorf("other chat's job transitioned to %s", gotOther.Status)
	}

	counts, _ := store.CountByStatus(ctx)
	if counts[model.StatusCancelled] != 3 {
		t.Errorf("CountByStatus cancelled = %d, want 3", counts[model.StatusCancelled])
	}
}
