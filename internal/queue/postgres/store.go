// Package postgres provides a PostgreSQL-backed queue.Store for
// deployments where bot and worker run as separate processes against a
// shared database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tickerbot/internal/model"
	"tickerbot/internal/queue"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Store implements queue.Store using PostgreSQL.
type Store struct {
	pool *Pool
}

// New creates a Store on an existing pool.
func New(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ queue.Store = (*Store)(nil)

// CreateSchema creates the job table if it does not exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS job_queue (
			id         BIGSERIAL PRIMARY KEY,
			chat_id    BIGINT      NOT NULL,
			command    TEXT        NOT NULL,
			pair       TEXT        NOT NULL,
			status     TEXT        NOT NULL DEFAULT 'pending',
			error      TEXT        NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_job_queue_status_created
			ON job_queue (status, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create job_queue schema: %w", err)
	}
	return nil
}

func (s *Store) Enqueue(ctx context.Context, chatID int64, command model.Command, pair string) (*model.Job, error) {
	if !model.ValidCommand(command) || pair == "" {
		return nil, queue.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO job_queue (chat_id, command, pair, status)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING id, chat_id, command, pair, status, error, created_at`,
		chatID, string(command), pair,
	)

	j, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return j, nil
}

// Claim uses FOR UPDATE SKIP LOCKED so concurrent dispatchers pass over
// rows another transaction is already claiming instead of blocking or
// double-claiming.
func (s *Store) Claim(ctx context.Context, batchSize int) ([]model.Job, error) {
	if batchSize <= 0 {
		return nil, queue.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx,
		`UPDATE job_queue SET status = 'processing'
		 WHERE id IN (
			SELECT id FROM job_queue
			WHERE status = 'pending'
			ORDER BY created_at ASC, id ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, chat_id, command, pair, status, error, created_at`,
		batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}

	// RETURNING order is unspecified.
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

func (s *Store) MarkDone(ctx context.Context, id int64) error {
	return s.transition(ctx, id, model.StatusDone, "")
}

func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, model.StatusFailed, reason)
}

func (s *Store) transition(ctx context.Context, id int64, to model.JobStatus, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_queue SET status = $1, error = $2
		 WHERE id = $3 AND status = 'processing'`,
		string(to), reason, id,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var status string
	err = s.pool.QueryRow(ctx, `SELECT status FROM job_queue WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check job status: %w", err)
	}
	return queue.ErrInvalidTransition
}

func (s *Store) Cancel(ctx context.Context, chatID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_queue SET status = 'cancelled'
		 WHERE chat_id = $1 AND status = 'pending'`,
		chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM job_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.JobStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan job count: %w", err)
		}
		counts[model.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var command, status string
	if err := row.Scan(&j.ID, &j.ChatID, &command, &j.Pair, &status, &j.Error, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.Command = model.Command(command)
	j.Status = model.JobStatus(status)
	j.CreatedAt = j.CreatedAt.UTC()
	return &j, nil
}
