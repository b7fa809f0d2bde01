package reconcile

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-media/vod-backend/pkg/queue"
)

type fakeEnqueuer struct {
	events []Event
	err    error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, t queue.JobType, payload any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if t != queue.JobTypeTranscodeComplete {
		return "", errors.New("unexpected job type")
	}
	f.events = append(f.events, payload.(Event))
	return "q-1", nil
}

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/transcode-complete", h.TranscodeComplete)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/transcode-complete", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const envelopeBody = `{"source":"aws.mediaconvert","detail":{"jobId":"j-1","status":"COMPLETE",
	"outputGroupDetails":[{"outputDetails":[{"outputFilePaths":["s3://out/free/clip_free_480p.mp4"]}]}]}}`

func TestWebhookEnqueuesEnvelope(t *testing.T) {
	q := &fakeEnqueuer{}
	w := postWebhook(NewWebhookHandler(q, nil), envelopeBody)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, q.events, 1)
	assert.Equal(t, "j-1", q.events[0].JobID)
	assert.Equal(t, []string{"s3://out/free/clip_free_480p.mp4"}, q.events[0].OutputPaths())
}

func TestWebhookAcceptsBareDetail(t *testing.T) {
	q := &fakeEnqueuer{}
	w := postWebhook(NewWebhookHandler(q, nil), `{"jobId":"j-2","status":"ERROR","errorCode":1010}`)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, q.events, 1)
	assert.Equal(t, FlexString("1010"), q.events[0].ErrorCode)
}

func TestWebhookRejectsMalformed(t *testing.T) {
	q := &fakeEnqueuer{}
	h := NewWebhookHandler(q, nil)

	for _, body := range []string{`{"detail":{"status":"COMPLETE"}}`, `{"detail":{"jobId":"x"}}`, `not json`} {
		w := postWebhook(h, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, q.events)
}

func TestWebhookQueueDown(t *testing.T) {
	w := postWebhook(NewWebhookHandler(&fakeEnqueuer{err: errors.New("dial tcp: refused")}, nil), envelopeBody)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
