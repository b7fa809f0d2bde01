package reconcile

import (
	"context"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/internal/middleware"
	"github.com/aura-media/vod-backend/pkg/queue"
	"github.com/aura-media/vod-backend/pkg/response"
)

// Enqueuer hands completion events to the background worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, t queue.JobType, payload any) (string, error)
}

// WebhookHandler receives transcoding job state changes.
type WebhookHandler struct {
	queue  Enqueuer
	logger *zap.Logger
}

// NewWebhookHandler creates the completion webhook handler.
func NewWebhookHandler(q Enqueuer, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{queue: q, logger: logger}
}

// TranscodeComplete handles POST /webhooks/transcode-complete. Accepts either the
// event-bus envelope or a bare job detail, validates it and enqueues it.
func (h *WebhookHandler) TranscodeComplete(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, middleware.MaxWebhookBody))
	if err != nil {
		response.BadRequest(c, "could not read request body")
		return
	}
	ev, err := DecodeEvent(body)
	if err != nil {
		response.BadRequest(c, "invalid event: "+err.Error())
		return
	}
	if ev.JobID == "" || ev.Status == "" {
		response.BadRequest(c, ErrMalformedEvent.Error())
		return
	}

	id, err := h.queue.Enqueue(c.Request.Context(), queue.JobTypeTranscodeComplete, ev)
	if err != nil {
		h.logger.Error("enqueue completion event failed", zap.Error(err), zap.String("job_id", ev.JobID))
		response.ServiceUnavailable(c, "failed to enqueue event")
		return
	}
	h.logger.Info("completion event accepted", zap.String("job_id", ev.JobID), zap.String("status", ev.Status), zap.String("queue_job_id", id))
	response.Accepted(c, gin.H{"accepted": true, "jobId": ev.JobID})
}

// DecodeEvent parses an event-bus envelope, or a bare job detail when the body has no detail.
func DecodeEvent(body []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Event{}, err
	}
	if env.Detail.JobID != "" || env.Detail.Status != "" {
		return env.Detail, nil
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
