// Package memory provides an in-memory queue.Store for tests and
// single-process development runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tickerbot/internal/model"
	"tickerbot/internal/queue"
)

// Store is an in-memory implementation of queue.Store.
type Store struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[int64]*model.Job
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{nextID: 1, jobs: make(map[int64]*model.Job)}
}

// Compile-time interface check.
var _ queue.Store = (*Store)(nil)

func (s *Store) Enqueue(_ context.Context, chatID int64, command model.Command, pair string) (*model.Job, error) {
	if !model.ValidCommand(command) || pair == "" {
		return nil, queue.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job := &model.Job{
		ID:        s.nextID,
		ChatID:    chatID,
		Command:   command,
		Pair:      pair,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.jobs[job.ID] = job

	jobCopy := *job
	return &jobCopy, nil
}

func (s *Store) Claim(_ context.Context, batchSize int) ([]model.Job, error) {
	if batchSize <= 0 {
		return nil, queue.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*model.Job
	for _, j := range s.jobs {
		if j.Status == model.StatusPending {
			pending = append(pending, j)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	if len(pending) > batchSize {
		pending = pending[:batchSize]
	}

	claimed := make([]model.Job, 0, len(pending))
	for _, j := range pending {
		j.Status = model.StatusProcessing
		claimed = append(claimed, *j)
	}
	return claimed, nil
}

func (s *Store) MarkDone(_ context.Context, id int64) error {
	return s.transition(id, model.StatusDone, "")
}

func (s *Store) MarkFailed(_ context.Context, id int64, reason string) error {
	return s.transition(id, model.StatusFailed, reason)
}

func (s *Store) transition(id int64, to model.JobStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return queue.ErrNotFound
	}
	if j.Status != model.StatusProcessing {
		return queue.ErrInvalidTransition
	}
	j.Status = to
	j.Error = reason
	return nil
}

func (s *Store) Cancel(_ context.Context, chatID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, j := range s.jobs {
		if j.ChatID == chatID && j.Status == model.StatusPending {
			j.Status = model.StatusCancelled
			n++
		}
	}
	return n, nil
}

func (s *Store) CountByStatus(_ context.Context) (map[model.JobStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[model.JobStatus]int64)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// Get returns a copy of a job by id. Test helper, not part of queue.Store.
func (s *Store) Get(id int64) (model.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return *j, true
}
