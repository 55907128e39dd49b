// Package sqlite provides a SQLite-backed queue.Store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"tickerbot/internal/model"
	"tickerbot/internal/queue"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements queue.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the queue database with WAL mode and the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; claims serialize on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[queue] opened sqlite database at %s", path)
	return &Store{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Compile-time interface check.
var _ queue.Store = (*Store)(nil)

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS job_queue (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id    INTEGER NOT NULL,
			command    TEXT    NOT NULL,
			pair       TEXT    NOT NULL,
			status     TEXT    NOT NULL DEFAULT 'pending',
			error      TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_job_queue_status_created
			ON job_queue (status, created_at);
	`)
	return err
}

func (s *Store) Enqueue(ctx context.Context, chatID int64, command model.Command, pair string) (*model.Job, error) {
	if !model.ValidCommand(command) || pair == "" {
		return nil, queue.ErrInvalidInput
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO job_queue (chat_id, command, pair, status, created_at)
		 VALUES (?, ?, ?, 'pending', ?)`,
		chatID, string(command), pair, now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("enqueue job id: %w", err)
	}

	return &model.Job{
		ID:        id,
		ChatID:    chatID,
		Command:   command,
		Pair:      pair,
		Status:    model.StatusPending,
		CreatedAt: now,
	}, nil
}

// Claim transitions up to batchSize pending rows to processing in a single
// UPDATE ... RETURNING statement, so overlapping dispatcher runs can never
// receive the same row.
func (s *Store) Claim(ctx context.Context, batchSize int) ([]model.Job, error) {
	if batchSize <= 0 {
		return nil, queue.ErrInvalidInput
	}

	rows, err := s.db.QueryContext(ctx,
		`UPDATE job_queue SET status = 'processing'
		 WHERE id IN (
			SELECT id FROM job_queue
			WHERE status = 'pending'
			ORDER BY created_at ASC, id ASC
			LIMIT ?
		 )
		 RETURNING id, chat_id, command, pair, status, error, created_at`,
		batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan claimed jobs: %w", err)
	}
	sortFIFO(jobs) // RETURNING order is unspecified
	return jobs, nil
}

func (s *Store) MarkDone(ctx context.Context, id int64) error {
	return s.transition(ctx, id, model.StatusDone, "")
}

func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	return s.transition(ctx, id, model.StatusFailed, reason)
}

func (s *Store) transition(ctx context.Context, id int64, to model.JobStatus, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_queue SET status = ?, error = ?
		 WHERE id = ? AND status = 'processing'`,
		string(to), reason, id,
	)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if n == 1 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM job_queue WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return queue.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check job status: %w", err)
	}
	return queue.ErrInvalidTransition
}

func (s *Store) Cancel(ctx context.Context, chatID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_queue SET status = 'cancelled'
		 WHERE chat_id = ? AND status = 'pending'`,
		chatID,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error) {
	rows, err := s.db.QueryContext(ctx,
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

func sortFIFO(jobs []model.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
}

func scanJobs(rows *sql.Rows) ([]model.Job, error) {
	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var command, status string
		var createdMs int64
		if err := rows.Scan(&j.ID, &j.ChatID, &command, &j.Pair, &status, &j.Error, &createdMs); err != nil {
			return nil, err
		}
		j.Command = model.Command(command)
		j.Status = model.JobStatus(status)
		j.CreatedAt = time.UnixMilli(createdMs).UTC()
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
