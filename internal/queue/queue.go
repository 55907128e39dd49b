// Package queue defines the durable job queue that decouples inbound chat
// commands from the dispatcher that processes them.
//
// The store owns the authoritative job status. Claiming is the one
// concurrency-sensitive operation: overlapping dispatcher runs share the
// job table, and a claim must hand each pending job to exactly one caller.
// Every implementation performs the pending → processing transition
// atomically inside Claim before returning the batch.
package queue

import (
	"context"
	"errors"

	"tickerbot/internal/model"
)

var (
	// ErrNotFound is returned when a referenced job does not exist.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status update targets a job
	// that is not in the required source state (e.g. MarkDone on a job that
	// was never claimed).
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store is the durable job queue contract.
type Store interface {
	// Enqueue inserts a new pending job. Repeated identical commands from
	// the same chat create independent rows; there is no deduplication.
	Enqueue(ctx context.Context, chatID int64, command model.Command, pair string) (*model.Job, error)

	// Claim atomically transitions up to batchSize of the oldest pending
	// jobs to processing and returns them in FIFO creation order. Two
	// concurrent callers never receive the same job.
	Claim(ctx context.Context, batchSize int) ([]model.Job, error)

	// MarkDone transitions a processing job to done.
	MarkDone(ctx context.Context, id int64) error

	// MarkFailed transitions a processing job to failed, recording reason.
	MarkFailed(ctx context.Context, id int64, reason string) error

	// Cancel transitions every pending job for a chat to cancelled and
	// returns the number of jobs affected. Jobs already claimed keep
	// running to completion.
	Cancel(ctx context.Context, chatID int64) (int64, error)

	// CountByStatus reports the number of jobs per status, for metrics.
	CountByStatus(ctx context.Context) (map[model.JobStatus]int64, error)
}
