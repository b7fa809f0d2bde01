package catalog

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/internal/models"
	"github.com/aura-media/vod-backend/pkg/response"
)

// Handler handles catalog read endpoints.
type Handler struct {
	lister *Lister
	logger *zap.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(lister *Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{lister: lister, logger: logger}
}

// List handles GET /videos?page=&limit=&status=.
func (h *Handler) List(c *gin.Context) {
	page, err := intQuery(c, "page", DefaultPage)
	if err != nil {
		response.BadRequest(c, "invalid page")
		return
	}
	limit, err := intQuery(c, "limit", DefaultPageSize)
	if err != nil {
		response.BadRequest(c, "invalid limit")
		return
	}
	status := models.VideoStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.BadRequest(c, "invalid status")
		return
	}

	out, err := h.lister.List(c.Request.Context(), status, page, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidPage) {
			response.BadRequest(c, err.Error())
			return
		}
		h.logger.Error("list videos failed", zap.Error(err), zap.Int("page", page), zap.Int("limit", limit))
		response.ServiceUnavailable(c, "catalog temporarily unavailable")
		return
	}
	response.OK(c, out)
}

// Get handles GET /videos/:videoId.
func (h *Handler) Get(c *gin.Context) {
	videoID := c.Param("videoId")
	out, err := h.lister.Get(c.Request.Context(), videoID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Video not found")
			return
		}
		h.logger.Error("get video failed", zap.Error(err), zap.String("video_id", videoID))
		response.ServiceUnavailable(c, "catalog temporarily unavailable")
		return
	}
	response.OK(c, out)
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
