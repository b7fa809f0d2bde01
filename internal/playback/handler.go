package playback

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/internal/catalog"
	"github.com/aura-media/vod-backend/internal/metrics"
	"github.com/aura-media/vod-backend/internal/middleware"
	"github.com/aura-media/vod-backend/internal/models"
	"github.com/aura-media/vod-backend/pkg/response"
)

// TierResolver maps a username to a subscription tier.
type TierResolver interface {
	Resolve(ctx context.Context, username string) models.Tier
}

// VideoReader loads catalog records.
type VideoReader interface {
	Get(ctx context.Context, videoID string) (*models.Video, error)
}

// Handler serves playback grants.
type Handler struct {
	videos VideoReader
	tiers  TierResolver
	now    func() time.Time
	logger *zap.Logger
}

// NewHandler creates a playback handler.
func NewHandler(videos VideoReader, tiers TierResolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{videos: videos, tiers: tiers, now: time.Now, logger: logger}
}

// Stream handles GET /videos/:videoId/stream?quality=. Requires the JWT middleware.
func (h *Handler) Stream(c *gin.Context) {
	username := middleware.Username(c)
	if username == "" {
		response.Unauthorized(c, "Invalid or missing authorization")
		return
	}
	videoID := c.Param("videoId")
	if videoID == "" {
		response.BadRequest(c, "Video ID is required")
		return
	}

	ctx := c.Request.Context()
	tier := h.tiers.Resolve(ctx, username)

	v, err := h.videos.Get(ctx, videoID)
	if errors.Is(err, catalog.ErrNotFound) {
		h.record(tier, "not_found")
		response.NotFound(c, "Video not found")
		return
	}
	if err != nil {
		h.record(tier, "unavailable")
		h.logger.Error("catalog lookup failed", zap.String("video_id", videoID), zap.Error(err))
		response.ServiceUnavailable(c, "Catalog temporarily unavailable")
		return
	}
	switch v.Status {
	case models.VideoStatusProcessing:
		h.record(tier, "processing")
		response.Pending(c, "Video is still processing")
		return
	case models.VideoStatusFailed:
		h.record(tier, "not_found")
		response.NotFound(c, "Video not found")
		return
	}

	d, err := Authorize(tier, v, c.Query("quality"), h.now())
	switch {
	case errors.Is(err, ErrNotFound):
		h.record(tier, "not_found")
		response.NotFound(c, "Video not found")
		return
	case errors.Is(err, ErrRenditionUnavailable):
		h.record(tier, "rendition_unavailable")
		h.logger.Error("rendition missing on completed video",
			zap.String("video_id", videoID), zap.String("tier", string(tier)), zap.Error(err))
		response.Internal(c, "Video not available for subscription type: "+string(tier))
		return
	case err != nil:
		h.record(tier, "error")
		response.Internal(c, "Internal server error")
		return
	}
	d.User = username

	h.record(tier, "granted")
	h.logger.Info("playback granted",
		zap.String("video_id", videoID),
		zap.String("username", username),
		zap.String("tier", string(tier)),
		zap.String("quality", d.Quality),
	)
	response.OK(c, d)
}

func (h *Handler) record(tier models.Tier, result string) {
	metrics.PlaybackRequests.WithLabelValues(string(tier), result).Inc()
}
