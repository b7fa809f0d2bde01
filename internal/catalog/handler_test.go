package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRouter(s Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewLister(s), nil)
	r := gin.New()
	r.GET("/videos", h.List)
	r.GET("/videos/:videoId", h.Get)
	return r
}

func TestHandlerListDefaults(t *testing.T) {
	r := newCatalogRouter(seedStore(t, 15, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var page Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Videos, DefaultPageSize)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
	assert.Equal(t, 15, page.Pagination.TotalItems)
	assert.True(t, page.Pagination.HasNext)
}

func TestHandlerListPastEnd(t *testing.T) {
	r := newCatalogRouter(seedStore(t, 3, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos?page=9&limit=5&status=completed", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"videos":[]`)
	assert.Contains(t, w.Body.String(), `"totalItems":3`)
	assert.Contains(t, w.Body.String(), `"hasNext":false`)
}

func TestHandlerListHugePage(t *testing.T) {
	r := newCatalogRouter(seedStore(t, 3, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos?page=768614336404564652&limit=12", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"videos":[]`)
	assert.Contains(t, w.Body.String(), `"totalItems":3`)
}

func TestHandlerListBadQuery(t *testing.T) {
	r := newCatalogRouter(NewMemoryStore())
	for _, target := range []string{"/videos?page=abc", "/videos?limit=0", "/videos?status=deleted"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHandlerGet(t *testing.T) {
	r := newCatalogRouter(seedStore(t, 2, 0))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos/c01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"c01"`)
	assert.Contains(t, w.Body.String(), `"videoUrls":{}`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/videos/zzz", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
