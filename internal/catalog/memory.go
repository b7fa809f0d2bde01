package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/aura-media/vod-backend/internal/models"
)

// MemoryStore is an in-process Store. Records are copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	videos map[string]*models.Video
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{videos: make(map[string]*models.Video)}
}

// Get returns a copy of the record for videoID.
func (s *MemoryStore) Get(_ context.Context, videoID string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[videoID]
	if !ok {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

// FindActiveByFilename returns the non-failed record for filename, if any.
func (s *MemoryStore) FindActiveByFilename(_ context.Context, filename string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v := s.activeByFilenameLocked(filename); v != nil {
		return v.Clone(), nil
	}
	return nil, nil
}

func (s *MemoryStore) activeByFilenameLocked(filename string) *models.Video {
	for _, v := range s.videos {
		if v.OriginalFilename == filename && v.Status != models.VideoStatusFailed {
			return v
		}
	}
	return nil
}

// Insert adds a new record.
func (s *MemoryStore) Insert(_ context.Context, v *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.videos[v.VideoID]; exists {
		return ErrConflict
	}
	if v.Status != models.VideoStatusFailed && s.activeByFilenameLocked(v.OriginalFilename) != nil {
		return ErrConflict
	}
	v.Version = 1
	s.videos[v.VideoID] = v.Clone()
	return nil
}

// Update replaces the record when the stored version matches v.Version.
func (s *MemoryStore) Update(_ context.Context, v *models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.videos[v.VideoID]
	if !ok || cur.Version != v.Version {
		return ErrConflict
	}
	v.Version++
	s.videos[v.VideoID] = v.Clone()
	return nil
}

// List returns up to limit records, newest upload first.
func (s *MemoryStore) List(_ context.Context, status models.VideoStatus, limit int) ([]models.Video, error) {
	s.mu.RLock()
	out := make([]models.Video, 0, len(s.videos))
	for _, v := range s.videos {
		if status != "" && v.Status != status {
			continue
		}
		out = append(out, *v.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of records matching status.
func (s *MemoryStore) Count(_ context.Context, status models.VideoStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == "" {
		return len(s.videos), nil
	}
	n := 0
	for _, v := range s.videos {
		if v.Status == status {
			n++
		}
	}
	return n, nil
}
