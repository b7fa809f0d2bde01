package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueCompletions is the Redis list key for transcoding completion events.
	QueueCompletions = "worker:completions"
	// QueueDLQ is the dead-letter queue for jobs that exhausted retries or cannot be decoded.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of attempts before a job is moved to the DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
	// PollTimeout bounds a single blocking pop so the worker notices cancellation.
	PollTimeout = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeTranscodeComplete JobType = "transcode_complete"
)

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
	// LastError is set when the job is dead-lettered.
	LastError string `json:"last_error,omitempty"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// Enqueue pushes a job of type t carrying payload and returns its id.
func (q *Queue) Enqueue(ctx context.Context, t JobType, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      t,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueCompletions, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("queue_job_id", job.ID), zap.String("type", string(t)))
	return job.ID, nil
}

// Dequeue blocks for up to timeout waiting for a job. It returns nil, nil when
// nothing arrived. Undecodable entries are moved to the DLQ as-is.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueCompletions).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job envelope", zap.String("raw", result[1]), zap.Error(err))
		if pushErr := q.client.RPush(ctx, QueueDLQ, result[1]).Err(); pushErr != nil {
			return nil, fmt.Errorf("dlq push: %w", pushErr)
		}
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with incremented attempt. Once the attempt count
// reaches MaxRetries the job goes to the DLQ instead. It reports whether the
// job was dead-lettered.
func (q *Queue) Retry(ctx context.Context, job *Job, cause error) (bool, error) {
	job.Attempt++
	if job.Attempt >= MaxRetries {
		return true, q.DeadLetter(ctx, job, cause)
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return false, err
	}
	if err := q.client.RPush(ctx, QueueCompletions, raw).Err(); err != nil {
		return false, err
	}
	q.logger.Info("job retried", zap.String("queue_job_id", job.ID), zap.Int("attempt", job.Attempt))
	return false, nil
}

// DeadLetter moves a job to the DLQ without further attempts.
func (q *Queue) DeadLetter(ctx context.Context, job *Job, cause error) error {
	if cause != nil {
		job.LastError = cause.Error()
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		q.logger.Error("dlq push failed", zap.Error(err), zap.String("queue_job_id", job.ID))
		return err
	}
	q.logger.Warn("job moved to DLQ", zap.String("queue_job_id", job.ID), zap.Int("attempt", job.Attempt), zap.String("error", job.LastError))
	return nil
}

// Depth returns the length of a queue list.
func (q *Queue) Depth(ctx context.Context, key string) (int64, error) {
	return q.client.LLen(ctx, key).Result()
}
