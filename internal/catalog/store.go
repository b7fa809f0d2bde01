// Package catalog holds the video catalog: one record per source video, its
// persistence backends and the paginated read view over it.
package catalog

import (
	"context"
	"errors"

	"github.com/aura-media/vod-backend/internal/models"
)

var (
	// ErrNotFound is returned by Get for an unknown video id.
	ErrNotFound = errors.New("video not found")
	// ErrConflict is returned when a conditional write lost against a concurrent writer:
	// the record version moved, or another active record already owns the filename.
	ErrConflict = errors.New("video record changed concurrently")
)

// Store is the catalog persistence contract. It is the only shared mutable state
// between handler invocations.
type Store interface {
	// Get returns the record for videoID or ErrNotFound.
	Get(ctx context.Context, videoID string) (*models.Video, error)
	// FindActiveByFilename returns the non-failed record for filename, or nil if none exists.
	FindActiveByFilename(ctx context.Context, filename string) (*models.Video, error)
	// Insert stores a new record with Version 1. Non-failed records must have a unique filename.
	Insert(ctx context.Context, v *models.Video) error
	// Update replaces the record if its stored version still equals v.Version, then bumps v.Version.
	Update(ctx context.Context, v *models.Video) error
	// List returns at most limit records. With a status filter the window is ordered by upload date, newest first.
	List(ctx context.Context, status models.VideoStatus, limit int) ([]models.Video, error)
	// Count returns the number of records matching status (all records when status is empty).
	Count(ctx context.Context, status models.VideoStatus) (int, error)
}
