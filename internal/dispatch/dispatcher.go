// Package dispatch drains the job queue: it claims a batch, runs each
// job's handler in arrival order, and records the outcome. One dispatcher
// run is single threaded so command replies reach a chat in the order the
// commands were issued.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"tickerbot/internal/logger"
	"tickerbot/internal/metrics"
	"tickerbot/internal/model"
	"tickerbot/internal/notification"
	"tickerbot/internal/queue"
)

const (
	// DefaultBatchSize caps how many jobs one run may claim.
	DefaultBatchSize = 10

	// defaultJobDelay spaces jobs out to stay under Telegram rate limits.
	defaultJobDelay = 500 * time.Millisecond
)

// Handler executes one job. A non-nil error marks the job failed and is
// reported back to the user.
type Handler func(ctx context.Context, job model.Job) error

// Dispatcher claims and processes queued jobs.
type Dispatcher struct {
	store    queue.Store
	handlers map[model.Command]Handler
	sink     notification.Sink
	metrics  *metrics.Metrics

	batchSize int
	jobDelay  time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBatchSize overrides the per-run claim limit.
func WithBatchSize(n int) Option {
	return func(d *Dispatcher) { d.batchSize = n }
}

// WithJobDelay overrides the pause between jobs. Zero disables it.
func WithJobDelay(delay time.Duration) Option {
	return func(d *Dispatcher) { d.jobDelay = delay }
}

// WithMetrics attaches Prometheus counters to dispatcher runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New builds a Dispatcher. sink receives failure notices addressed to the
// job's chat.
func New(store queue.Store, handlers map[model.Command]Handler, sink notification.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		handlers:  handlers,
		sink:      sink,
		batchSize: DefaultBatchSize,
		jobDelay:  defaultJobDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunBatch claims one batch and processes it to completion. It returns
// how many jobs were processed. A failing job never aborts the batch;
// its error is persisted, reported to the user, and the run moves on.
func (d *Dispatcher) RunBatch(ctx context.Context) (int, error) {
	jobs, err := d.store.Claim(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim batch: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}
	if d.metrics != nil {
		d.metrics.JobsClaimed.Add(float64(len(jobs)))
	}

	for i, job := range jobs {
		d.process(ctx, job)

		if d.jobDelay > 0 && i < len(jobs)-1 {
			select {
			case <-ctx.Done():
				// Remaining claimed jobs are still marked processing;
				// fail them so they don't hang forever.
				d.failRemaining(jobs[i+1:], ctx.Err())
				return i + 1, ctx.Err()
			case <-time.After(d.jobDelay):
			}
		}
	}

	d.updateDepth(ctx)
	return len(jobs), nil
}

func (d *Dispatcher) process(ctx context.Context, job model.Job) {
	start := time.Now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(string(job.Command), start))
	err := d.run(ctx, job)
	if d.metrics != nil {
		d.metrics.JobDuration.WithLabelValues(string(job.Command)).Observe(time.Since(start).Seconds())
	}

	if err == nil {
		if markErr := d.store.MarkDone(ctx, job.ID); markErr != nil {
			log.Printf("[dispatch] job %d: mark done: %v", job.ID, markErr)
		}
		if d.metrics != nil {
			d.metrics.JobsDone.Inc()
		}
		return
	}

	log.Printf("[dispatch] job %d (%s %s) failed [%s]: %v", job.ID, job.Command, job.Pair, logger.TraceID(ctx), err)
	if markErr := d.store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
		log.Printf("[dispatch] job %d: mark failed: %v", job.ID, markErr)
	}
	if d.metrics != nil {
		d.metrics.JobsFailed.Inc()
	}

	notice := fmt.Sprintf("❌ Failed to process your request: %v", err)
	if sendErr := d.sink.SendText(ctx, job.ChatID, notice); sendErr != nil {
		log.Printf("[dispatch] job %d: notify failure: %v", job.ID, sendErr)
	}
}

// run invokes the job's handler, converting a missing handler or a panic
// into an ordinary error.
func (d *Dispatcher) run(ctx context.Context, job model.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	handler, ok := d.handlers[job.Command]
	if !ok {
		return fmt.Errorf("unknown command: %s", job.Command)
	}
	return handler(ctx, job)
}

func (d *Dispatcher) failRemaining(jobs []model.Job, cause error) {
	// Best effort with a fresh context; the run context is already dead.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, job := range jobs {
		if err := d.store.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
			log.Printf("[dispatch] job %d: mark failed on shutdown: %v", job.ID, err)
		}
	}
}

func (d *Dispatcher) updateDepth(ctx context.Context) {
	if d.metrics == nil {
		return
	}
	counts, err := d.store.CountByStatus(ctx)
	if err != nil {
		log.Printf("[dispatch] queue depth: %v", err)
		return
	}
	for _, status := range []model.JobStatus{
		model.StatusPending, model.StatusProcessing, model.StatusDone,
		model.StatusFailed, model.StatusCancelled,
	} {
		d.metrics.QueueDepth.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
