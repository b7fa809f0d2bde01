package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aura-media/vod-backend/internal/models"
)

const (
	// DefaultPage is used when the caller does not ask for a page.
	DefaultPage = 1
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 12
	// MaxPageSize bounds a single page.
	MaxPageSize = 100
)

// ErrInvalidPage is returned for non-positive page numbers or sizes.
var ErrInvalidPage = errors.New("page and limit must be positive")

// Item is the list view of a catalog record.
type Item struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Thumbnail        string   `json:"thumbnail"`
	Duration         float64  `json:"duration"`
	UploadDate       string   `json:"uploadDate"`
	Status           string   `json:"status"`
	Qualities        []string `json:"qualities"`
	FileSize         int64    `json:"fileSize"`
	OriginalFilename string   `json:"originalFilename"`
}

// Detail is the single-video view; it adds the rendition URLs to Item.
type Detail struct {
	Item
	VideoURLs map[models.RenditionTag]string `json:"videoUrls"`
}

// Pagination describes where a page sits in the result set.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNext      bool `json:"hasNext"`
	HasPrevious  bool `json:"hasPrevious"`
}

// Page is one page of the catalog listing.
type Page struct {
	Videos     []Item     `json:"videos"`
	Pagination Pagination `json:"pagination"`
}

// Lister is the read-only, offset-paginated view over the catalog.
type Lister struct {
	store Store
}

// NewLister creates a catalog lister.
func NewLister(store Store) *Lister {
	return &Lister{store: store}
}

// List returns page number page of size pageSize, optionally restricted to one status.
// The store is asked for the first page*pageSize records and the page is sliced out of that window.
func (l *Lister) List(ctx context.Context, status models.VideoStatus, page, pageSize int) (*Page, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page > math.MaxInt/pageSize {
		// page*pageSize would overflow, so the page is past the end.
		total, err := l.store.Count(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		return newPage([]Item{}, page, pageSize, total), nil
	}
	window := page * pageSize
	items, err := l.store.List(ctx, status, window)
	if err != nil {
		return nil, fmt.Errorf("list window: %w", err)
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	videos := make([]Item, 0, pageSize)
	for i := start; i < end && i < len(items); i++ {
		videos = append(videos, toItem(&items[i]))
	}

	total := len(items)
	if total >= window {
		// A full window means there may be more records than we fetched.
		total, err = l.store.Count(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	return newPage(videos, page, pageSize, total), nil
}

func newPage(videos []Item, page, pageSize, total int) *Page {
	totalPages := 1
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &Page{
		Videos: videos,
		Pagination: Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: pageSize,
			HasNext:      page < totalPages,
			HasPrevious:  page > 1,
		},
	}
}

// Get returns the detail view of one video.
func (l *Lister) Get(ctx context.Context, videoID string) (*Detail, error) {
	v, err := l.store.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	urls := v.RenditionURLs
	if urls == nil {
		urls = map[models.RenditionTag]string{}
	}
	return &Detail{Item: toItem(v), VideoURLs: urls}, nil
}

func toItem(v *models.Video) Item {
	it := Item{
		ID:               v.VideoID,
		Title:            v.Title,
		Description:      v.Description,
		Thumbnail:        v.ThumbnailURL,
		Status:           string(v.Status),
		Qualities:        v.AvailableQualities,
		FileSize:         v.FileSize,
		OriginalFilename: v.OriginalFilename,
	}
	if it.Title == "" {
		it.Title = "Untitled Video"
	}
	if it.Status == "" {
		it.Status = string(models.VideoStatusProcessing)
	}
	if len(it.Qualities) == 0 {
		it.Qualities = []string{models.Quality480p}
	}
	if v.DurationSeconds != nil {
		it.Duration = *v.DurationSeconds
	}
	if !v.CreatedAt.IsZero() {
		it.UploadDate = v.CreatedAt.UTC().Format(time.RFC3339)
	}
	return it
}
