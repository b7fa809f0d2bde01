package ingest

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/pkg/response"
	"github.com/aura-media/vod-backend/pkg/storage"
)

// ObjectStore is the storage surface ingest needs.
type ObjectStore interface {
	GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error)
	HeadObject(ctx context.Context, bucket, key string) (int64, error)
	PresignExpire() time.Duration
	InputBucket() string
}

// JobSubmitter submits the transcoding jobs for one source.
type JobSubmitter interface {
	Submit(ctx context.Context, src Source) (Submission, error)
}

// UploadRequest is the body for POST /uploads.
type UploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
}

// UploadResponse is returned by POST /uploads.
type UploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

// S3Event is an S3 object-created notification.
type S3Event struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// Handler handles source uploads.
type Handler struct {
	store     ObjectStore
	submitter JobSubmitter
	logger    *zap.Logger
}

// NewHandler creates an ingest handler.
func NewHandler(store ObjectStore, submitter JobSubmitter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, submitter: submitter, logger: logger}
}

// CreateUpload handles POST /uploads: returns a pre-signed PUT URL for a source video.
func (h *Handler) CreateUpload(c *gin.Context) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !storage.IsVideoFile(req.Filename) {
		response.BadRequest(c, "unsupported file type (allowed: .mp4, .mov, .avi, .mkv, .webm)")
		return
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(req.Filename)
	}
	bucket := h.store.InputBucket()
	key := storage.UploadKey(req.Filename)
	expires := h.store.PresignExpire()

	u, err := h.store.GeneratePresignedUploadURL(c.Request.Context(), bucket, key, contentType, expires)
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("key", key))
		response.Internal(c, "failed to generate upload URL")
		return
	}
	response.OK(c, UploadResponse{UploadURL: u, Bucket: bucket, Key: key, ExpiresIn: int(expires.Seconds())})
}

// UploadCreated handles POST /webhooks/upload-created: submits the free and full
// jobs for every new video object in the notification.
func (h *Handler) UploadCreated(c *gin.Context) {
	var ev S3Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(ev.Records) == 0 {
		response.BadRequest(c, "no records in event")
		return
	}

	ctx := c.Request.Context()
	submitted := make([]Submission, 0, len(ev.Records))
	skipped := []string{}
	for _, rec := range ev.Records {
		bucket := rec.S3.Bucket.Name
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil || bucket == "" || key == "" {
			response.BadRequest(c, "invalid object reference in event")
			return
		}
		if !storage.IsVideoFile(key) {
			h.logger.Info("skipping non-video file", zap.String("key", key))
			skipped = append(skipped, key)
			continue
		}

		size := rec.S3.Object.Size
		if size <= 0 {
			size, err = h.store.HeadObject(ctx, bucket, key)
			if errors.Is(err, storage.ErrObjectNotFound) {
				h.logger.Warn("uploaded object vanished", zap.String("bucket", bucket), zap.String("key", key))
				skipped = append(skipped, key)
				continue
			}
			if err != nil {
				h.logger.Warn("head object failed, submitting without size", zap.String("key", key), zap.Error(err))
			}
		}

		sub, err := h.submitter.Submit(ctx, Source{
			Bucket:   bucket,
			Key:      key,
			Filename: storage.SourceName(key),
			FileSize: size,
		})
		if err != nil {
			h.logger.Error("submit transcoding jobs failed", zap.Error(err), zap.String("key", key))
			response.Internal(c, "Failed to process video: "+err.Error())
			return
		}
		submitted = append(submitted, sub)
	}

	response.OK(c, gin.H{
		"message": "Video processing initiated successfully",
		"jobs":    submitted,
		"skipped": skipped,
	})
}
