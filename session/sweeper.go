package session

import (
	"context"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"

	"github.com/goliatone/go-poto/adapters/gologger"
	glog "github.com/goliatone/go-logger/glog"
)

// JobIDSweep names the recurring cleanup_older_than job (memory backend
// only; §4.3).
const JobIDSweep = "session.sweep"

// Sweeper periodically enqueues a sweep job rather than running cleanup
// directly, so the actual eviction runs on whatever go-job worker pool the
// host already operates, with its own retry and backoff behavior.
type Sweeper struct {
	Enqueuer queue.Enqueuer
	MaxAge   time.Duration
	Interval time.Duration
	Logger   glog.Logger
}

// Run blocks, enqueueing a sweep job every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	_, logger := gologger.Resolve("session.sweeper", nil, s.Logger)
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			msg := &job.ExecutionMessage{
				JobID:       JobIDSweep,
				Parameters:  map[string]any{"maxAgeMs": s.MaxAge.Milliseconds()},
				DedupPolicy: job.DeduplicationPolicy("replace"),
			}
			if err := s.Enqueuer.Enqueue(ctx, msg); err != nil {
				logger.Error("session sweep enqueue failed", "error", err)
			}
		}
	}
}

// ProcessDelivery runs one dequeued sweep job against store and
// acks/nacks the delivery accordingly. A host wires this as the handler
// its go-job worker pool invokes for JobIDSweep deliveries.
func ProcessDelivery(ctx context.Context, store Store, delivery queue.Delivery) error {
	msg := delivery.Message()
	if msg == nil || msg.JobID != JobIDSweep {
		return delivery.Nack(ctx, queue.NackOptions{Reason: "unrecognized job id", DeadLetter: true})
	}
	maxAgeMs, _ := msg.Parameters["maxAgeMs"].(int64)
	if _, err := store.CleanupOlderThan(ctx, time.Duration(maxAgeMs)*time.Millisecond); err != nil {
		return delivery.Nack(ctx, queue.NackOptions{Requeue: true, Reason: err.Error()})
	}
	return delivery.Ack(ctx)
}
