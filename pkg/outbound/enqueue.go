package outbound

import (
	"context"
	"log/slog"
	"sync"
)

// Enqueuer hands a Job off to an external delivery queue. Implementations
// must not block the caller on downstream delivery; the orchestrator treats
// enqueue as fire-and-forget.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// LoggingEnqueuer is a development-only Enqueuer that records jobs in memory
// and logs them, standing in for a real queue client (SQS, Pub/Sub, etc.)
// until one is wired.
type LoggingEnqueuer struct {
	mu   sync.Mutex
	jobs []Job
}

// NewLoggingEnqueuer builds an empty LoggingEnqueuer.
func NewLoggingEnqueuer() *LoggingEnqueuer {
	return &LoggingEnqueuer{}
}

func (e *LoggingEnqueuer) Enqueue(ctx context.Context, job Job) error {
	e.mu.Lock()
	e.jobs = append(e.jobs, job)
	e.mu.Unlock()

	slog.Info("outbound_job_enqueued",
		"correlation_id", job.CorrelationID,
		"message_type", job.MessageType,
		"idempotency_key", job.IdempotencyKey,
	)
	return nil
}

// Jobs returns a snapshot copy of every job recorded so far, for test
// assertions.
func (e *LoggingEnqueuer) Jobs() []Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Job, len(e.jobs))
	copy(out, e.jobs)
	return out
}

// FireAndForget runs enqueuer.Enqueue(ctx, job) on its own goroutine,
// logging any error rather than propagating it: enqueue failures must never
// block or fail the inbound pipeline (spec §4.13 step l).
func FireAndForget(ctx context.Context, enqueuer Enqueuer, job Job) {
	go func() {
		if err := enqueuer.Enqueue(ctx, job); err != nil {
			slog.Error("outbound_enqueue_failed",
				"correlation_id", job.CorrelationID,
				"idempotency_key", job.IdempotencyKey,
				"error", err,
			)
		}
	}()
}
