package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeue(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, JobTypeTranscodeComplete, map[string]string{"jobId": "j-1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeTranscodeComplete, job.Type)
	assert.Zero(t, job.Attempt)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.Equal(t, "j-1", payload["jobId"])
}

func TestDequeueEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	job, err := q.Dequeue(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDequeueMovesGarbageToDLQ(t *testing.T) {
	q, mr := newTestQueue(t)
	_, err := mr.Push(QueueCompletions, "not json")
	require.NoError(t, err)

	job, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, job)

	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	assert.Equal(t, []string{"not json"}, dlq)
}

func TestRetryThenDeadLetter(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	job := &Job{ID: "q-1", Type: JobTypeTranscodeComplete, Payload: json.RawMessage(`{}`)}
	cause := errors.New("catalog store unavailable")

	for i := 1; i < MaxRetries; i++ {
		dead, err := q.Retry(ctx, job, cause)
		require.NoError(t, err)
		assert.False(t, dead)
		assert.Equal(t, i, job.Attempt)
	}
	depth, err := q.Depth(ctx, QueueCompletions)
	require.NoError(t, err)
	assert.EqualValues(t, MaxRetries-1, depth)

	dead, err := q.Retry(ctx, job, cause)
	require.NoError(t, err)
	assert.True(t, dead)

	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	var got Job
	require.NoError(t, json.Unmarshal([]byte(dlq[0]), &got))
	assert.Equal(t, "q-1", got.ID)
	assert.Equal(t, MaxRetries, got.Attempt)
	assert.Equal(t, "catalog store unavailable", got.LastError)
}
