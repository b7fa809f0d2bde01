package playback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-media/vod-backend/internal/catalog"
	"github.com/aura-media/vod-backend/internal/middleware"
	"github.com/aura-media/vod-backend/internal/models"
)

type staticTiers map[string]models.Tier

func (s staticTiers) Resolve(_ context.Context, username string) models.Tier {
	if t, ok := s[username]; ok {
		return t
	}
	return models.TierFree
}

type brokenReader struct{}

func (brokenReader) Get(context.Context, string) (*models.Video, error) {
	return nil, errors.New("connection reset")
}

func newPlaybackRouter(videos VideoReader, username string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(videos, staticTiers{"pat": models.TierPremium, "sam": models.TierStandard}, nil)
	h.now = func() time.Time { return now }
	r := gin.New()
	r.GET("/videos/:videoId/stream", func(c *gin.Context) {
		if username != "" {
			c.Set(middleware.ContextUsername, username)
		}
		c.Next()
	}, h.Stream)
	return r
}

func seeded(t *testing.T, videos ...*models.Video) *catalog.MemoryStore {
	t.Helper()
	s := catalog.NewMemoryStore()
	for _, v := range videos {
		require.NoError(t, s.Insert(context.Background(), v))
	}
	return s
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestStreamPremium(t *testing.T) {
	r := newPlaybackRouter(seeded(t, completedVideo()), "pat")

	w := get(r, "/videos/v-1/stream?quality=1080p")
	require.Equal(t, http.StatusOK, w.Code)

	var d Descriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, models.TierPremium, d.SubscriptionType)
	assert.Equal(t, "1080p", d.Quality)
	assert.Equal(t, "pat", d.User)
	assert.Equal(t, "https://cdn/premium/myclip_premium_1080p.mp4?expires=1714572000", d.VideoURL)
}

func TestStreamFreeDefault(t *testing.T) {
	r := newPlaybackRouter(seeded(t, completedVideo()), "nobody")

	w := get(r, "/videos/v-1/stream?quality=1080p")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subscriptionType":"free"`)
	assert.Contains(t, w.Body.String(), `"maxDuration":10`)
	assert.Contains(t, w.Body.String(), `myclip_free_480p.mp4?expires=1714565700`)
}

func TestStreamStatuses(t *testing.T) {
	processing := completedVideo()
	processing.VideoID = "v-proc"
	processing.OriginalFilename = "proc"
	processing.Status = models.VideoStatusProcessing

	failed := completedVideo()
	failed.VideoID = "v-fail"
	failed.OriginalFilename = "fail"
	failed.Status = models.VideoStatusFailed

	missing := completedVideo()
	missing.VideoID = "v-missing"
	missing.OriginalFilename = "missing"
	delete(missing.RenditionURLs, models.RenditionStandard)

	r := newPlaybackRouter(seeded(t, processing, failed, missing), "sam")

	w := get(r, "/videos/v-proc/stream")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "Video is still processing")

	assert.Equal(t, http.StatusNotFound, get(r, "/videos/v-fail/stream").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/videos/nope/stream").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/videos/v-missing/stream").Code)
}

func TestStreamCatalogDown(t *testing.T) {
	r := newPlaybackRouter(brokenReader{}, "pat")
	assert.Equal(t, http.StatusServiceUnavailable, get(r, "/videos/v-1/stream").Code)
}

func TestStreamRequiresIdentity(t *testing.T) {
	r := newPlaybackRouter(seeded(t, completedVideo()), "")
	assert.Equal(t, http.StatusUnauthorized, get(r, "/videos/v-1/stream").Code)
}
