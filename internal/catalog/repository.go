package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aura-media/vod-backend/internal/models"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

const videoColumns = `video_id, original_filename, original_key, input_bucket, status, rendition_urls, thumbnail_url,
	duration_seconds, file_size, job_ids, available_qualities, title, description, error_code, error_message,
	created_at, completed_at, failed_at, version`

// Repository is the PostgreSQL catalog store.
type Repository struct {
	db DBTX
}

// NewRepository creates a catalog repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// Get returns a video by id.
func (r *Repository) Get(ctx context.Context, videoID string) (*models.Video, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos WHERE video_id = $1`
	v, err := scanVideo(r.db.QueryRow(ctx, q, videoID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

// FindActiveByFilename returns the non-failed video for filename, or nil.
func (r *Repository) FindActiveByFilename(ctx context.Context, filename string) (*models.Video, error) {
	const q = `SELECT ` + videoColumns + ` FROM videos WHERE original_filename = $1 AND status <> 'failed' LIMIT 1`
	v, err := scanVideo(r.db.QueryRow(ctx, q, filename))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find video by filename: %w", err)
	}
	return v, nil
}

// Insert creates a video row. A second active row for the same filename violates
// videos_active_filename_idx and is reported as ErrConflict.
func (r *Repository) Insert(ctx context.Context, v *models.Video) error {
	urls, err := marshalURLs(v.RenditionURLs)
	if err != nil {
		return err
	}
	const q = `INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1)`
	_, err = r.db.Exec(ctx, q,
		v.VideoID, v.OriginalFilename, v.OriginalKey, v.InputBucket, string(v.Status), urls, v.ThumbnailURL,
		v.DurationSeconds, v.FileSize, nonNil(v.JobIDs), nonNil(v.AvailableQualities), v.Title, v.Description,
		v.ErrorCode, v.ErrorMessage, v.CreatedAt, v.CompletedAt, v.FailedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert video: %w", err)
	}
	v.Version = 1
	return nil
}

// Update writes v only if the stored version still equals v.Version.
func (r *Repository) Update(ctx context.Context, v *models.Video) error {
	urls, err := marshalURLs(v.RenditionURLs)
	if err != nil {
		return err
	}
	const q = `UPDATE videos SET original_key = $2, input_bucket = $3, status = $4, rendition_urls = $5,
		thumbnail_url = $6, duration_seconds = $7, file_size = $8, job_ids = $9, available_qualities = $10,
		title = $11, description = $12, error_code = $13, error_message = $14, completed_at = $15, failed_at = $16,
		version = version + 1
		WHERE video_id = $1 AND version = $17`
	tag, err := r.db.Exec(ctx, q,
		v.VideoID, v.OriginalKey, v.InputBucket, string(v.Status), urls, v.ThumbnailURL, v.DurationSeconds,
		v.FileSize, nonNil(v.JobIDs), nonNil(v.AvailableQualities), v.Title, v.Description, v.ErrorCode,
		v.ErrorMessage, v.CompletedAt, v.FailedAt, v.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	v.Version++
	return nil
}

// List returns up to limit videos. Filtered listings use videos_status_created_idx.
func (r *Repository) List(ctx context.Context, status models.VideoStatus, limit int) ([]models.Video, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		const q = `SELECT ` + videoColumns + ` FROM videos WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		rows, err = r.db.Query(ctx, q, string(status), limit)
	} else {
		const q = `SELECT ` + videoColumns + ` FROM videos LIMIT $1`
		rows, err = r.db.Query(ctx, q, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	var list []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// Count returns the number of videos matching status.
func (r *Repository) Count(ctx context.Context, status models.VideoStatus) (int, error) {
	var n int
	var err error
	if status != "" {
		err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos WHERE status = $1`, string(status)).Scan(&n)
	} else {
		err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM videos`).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return n, nil
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var (
		v      models.Video
		status string
		urls   []byte
	)
	err := row.Scan(&v.VideoID, &v.OriginalFilename, &v.OriginalKey, &v.InputBucket, &status, &urls, &v.ThumbnailURL,
		&v.DurationSeconds, &v.FileSize, &v.JobIDs, &v.AvailableQualities, &v.Title, &v.Description, &v.ErrorCode,
		&v.ErrorMessage, &v.CreatedAt, &v.CompletedAt, &v.FailedAt, &v.Version)
	if err != nil {
		return nil, err
	}
	v.Status = models.VideoStatus(status)
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &v.RenditionURLs); err != nil {
			return nil, fmt.Errorf("decode rendition urls: %w", err)
		}
	}
	return &v, nil
}

func marshalURLs(urls map[models.RenditionTag]string) ([]byte, error) {
	if urls == nil {
		urls = map[models.RenditionTag]string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode rendition urls: %w", err)
	}
	return b, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
