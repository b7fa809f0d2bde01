package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/internal/metrics"
	"github.com/aura-media/vod-backend/internal/reconcile"
	"github.com/aura-media/vod-backend/pkg/queue"
)

// Reconciler applies one completion event to the catalog.
type Reconciler interface {
	Reconcile(ctx context.Context, ev reconcile.Event) (reconcile.Result, error)
}

// JobQueue is the subset of the Redis queue the processor drives.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job, cause error) (bool, error)
	DeadLetter(ctx context.Context, job *queue.Job, cause error) error
}

// requeueTimeout bounds the DLQ/retry push made after the worker context is cancelled.
const requeueTimeout = 5 * time.Second

// errPoison marks jobs that can never succeed and skip retries.
var errPoison = errors.New("poison job")

// CompletionProcessor drains completion events into the reconciler.
type CompletionProcessor struct {
	reconciler Reconciler
	queue      JobQueue
	backoff    time.Duration
	logger     *zap.Logger
}

// NewCompletionProcessor creates a completion event processor.
func NewCompletionProcessor(r Reconciler, q JobQueue, logger *zap.Logger) *CompletionProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionProcessor{reconciler: r, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one queued completion event.
func (p *CompletionProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTranscodeComplete {
		return fmt.Errorf("%w: unknown job type %q", errPoison, job.Type)
	}
	var ev reconcile.Event
	if err := json.Unmarshal(job.Payload, &ev); err != nil {
		return fmt.Errorf("%w: unmarshal event: %v", errPoison, err)
	}
	res, err := p.reconciler.Reconcile(ctx, ev)
	if errors.Is(err, reconcile.ErrMalformedEvent) {
		return fmt.Errorf("%w: %v", errPoison, err)
	}
	if err != nil {
		return err
	}
	p.logger.Debug("completion processed",
		zap.String("queue_job_id", job.ID),
		zap.String("job_id", ev.JobID),
		zap.String("outcome", string(res.Outcome)),
	)
	return nil
}

// Handle processes a job and routes failures: poison jobs go to the DLQ at
// once, anything else is retried by the queue.
func (p *CompletionProcessor) Handle(ctx context.Context, job *queue.Job) {
	err := p.Process(ctx, job)
	if err == nil {
		metrics.QueueJobs.WithLabelValues("done").Inc()
		return
	}
	p.logger.Error("job failed", zap.String("queue_job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))

	// The job is already off the list; put it back even when shutdown cancelled ctx.
	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	if errors.Is(err, errPoison) {
		if dlqErr := p.queue.DeadLetter(qctx, job, err); dlqErr != nil {
			p.logger.Error("dead-letter failed", zap.Error(dlqErr))
		}
		metrics.QueueJobs.WithLabelValues("dead_lettered").Inc()
		return
	}
	dead, reErr := p.queue.Retry(qctx, job, err)
	if reErr != nil {
		p.logger.Error("retry enqueue failed", zap.Error(reErr))
		return
	}
	if dead {
		metrics.QueueJobs.WithLabelValues("dead_lettered").Inc()
		return
	}
	metrics.QueueJobs.WithLabelValues("retried").Inc()
	p.sleep(ctx)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *CompletionProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("completion worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, queue.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p.Handle(ctx, job)
	}
}

func (p *CompletionProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
