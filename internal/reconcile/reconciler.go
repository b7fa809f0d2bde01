// Package reconcile merges asynchronous transcoding completion events into the
// video catalog. The free-preview job and the full-rendition job for one source
// file complete independently and correlate on the source filename only.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-media/vod-backend/internal/catalog"
	"github.com/aura-media/vod-backend/internal/metrics"
	"github.com/aura-media/vod-backend/internal/models"
)

var (
	// ErrMalformedEvent means the event lacks jobId or status. Nothing was written.
	ErrMalformedEvent = errors.New("malformed completion event: jobId and status are required")
	// ErrUpstreamUnavailable wraps catalog store failures.
	ErrUpstreamUnavailable = errors.New("catalog store unavailable")
	// ErrContention means every conditional write attempt lost to a concurrent writer.
	ErrContention = errors.New("catalog record contended")
)

// Outcome is what a Reconcile call did.
type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeMerged         Outcome = "merged"
	OutcomeFailedRecorded Outcome = "failed_recorded"
	// OutcomeSkipped is a success event with no recognisable output path.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIgnored is a non-terminal or unhandled job status.
	OutcomeIgnored Outcome = "ignored"
)

// Result reports the effect of one Reconcile call.
type Result struct {
	Outcome  Outcome
	VideoID  string
	Filename string
	Category JobCategory
}

const defaultMaxAttempts = 5

// Reconciler applies completion events to the catalog.
type Reconciler struct {
	store       catalog.Store
	cdnDomain   string
	maxAttempts int
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

// WithIDGenerator overrides video id generation.
func WithIDGenerator(f func() string) Option { return func(r *Reconciler) { r.newID = f } }

// WithMaxAttempts bounds the optimistic read-merge-write loop.
func WithMaxAttempts(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// NewReconciler creates a reconciler writing rendition URLs under cdnDomain.
func NewReconciler(store catalog.Store, cdnDomain string, logger *zap.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		store:       store,
		cdnDomain:   cdnDomain,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		logger:      logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile applies one completion event. It is safe to call repeatedly with the same event.
func (r *Reconciler) Reconcile(ctx context.Context, ev Event) (Result, error) {
	res, err := r.reconcile(ctx, ev)
	switch {
	case errors.Is(err, ErrMalformedEvent):
		metrics.ReconcileEvents.WithLabelValues("malformed").Inc()
	case err != nil:
		metrics.ReconcileEvents.WithLabelValues("error").Inc()
	default:
		metrics.ReconcileEvents.WithLabelValues(string(res.Outcome)).Inc()
	}
	return res, err
}

func (r *Reconciler) reconcile(ctx context.Context, ev Event) (Result, error) {
	if ev.JobID == "" || ev.Status == "" {
		r.logger.Warn("completion event missing required fields", zap.String("job_id", ev.JobID), zap.String("status", ev.Status))
		return Result{}, ErrMalformedEvent
	}
	switch ev.Status {
	case StatusComplete:
		return r.completeJob(ctx, &ev)
	case StatusError:
		return r.failJob(ctx, &ev)
	default:
		r.logger.Info("unhandled job status", zap.String("job_id", ev.JobID), zap.String("status", ev.Status))
		return Result{Outcome: OutcomeIgnored}, nil
	}
}

func (r *Reconciler) completeJob(ctx context.Context, ev *Event) (Result, error) {
	filename, ok := ExtractFilename(ev)
	if !ok {
		r.logger.Warn("no filename in completion event outputs", zap.String("job_id", ev.JobID))
		return Result{Outcome: OutcomeSkipped}, nil
	}
	cat := ClassifyJob(ev)
	res := Result{Filename: filename, Category: cat}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		existing, err := r.store.FindActiveByFilename(ctx, filename)
		if err != nil {
			return res, fmt.Errorf("%w: find by filename: %v", ErrUpstreamUnavailable, err)
		}

		var v *models.Video
		if existing == nil {
			v = r.newCompletedVideo(ev, filename, cat)
			err = r.store.Insert(ctx, v)
			res.Outcome = OutcomeCreated
		} else {
			v = existing
			r.mergeCompletion(v, ev, cat)
			err = r.store.Update(ctx, v)
			res.Outcome = OutcomeMerged
		}
		if errors.Is(err, catalog.ErrConflict) {
			metrics.ReconcileConflicts.Inc()
			r.logger.Debug("catalog write conflict, re-reading",
				zap.String("job_id", ev.JobID), zap.String("filename", filename), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return res, fmt.Errorf("%w: write: %v", ErrUpstreamUnavailable, err)
		}

		res.VideoID = v.VideoID
		r.logger.Info("completion reconciled",
			zap.String("job_id", ev.JobID),
			zap.String("video_id", v.VideoID),
			zap.String("filename", filename),
			zap.String("category", string(cat)),
			zap.String("outcome", string(res.Outcome)),
		)
		return res, nil
	}
	return res, fmt.Errorf("%w: %s after %d attempts", ErrContention, filename, r.maxAttempts)
}

func (r *Reconciler) newCompletedVideo(ev *Event, filename string, cat JobCategory) *models.Video {
	now := r.now().UTC()
	key := filename + ".mp4"
	v := &models.Video{
		VideoID:            r.newID(),
		OriginalFilename:   filename,
		OriginalKey:        key,
		InputBucket:        "processed",
		Status:             models.VideoStatusCompleted,
		RenditionURLs:      RenditionURLs(r.cdnDomain, filename, cat),
		JobIDs:             []string{ev.JobID},
		AvailableQualities: slices.Clone(models.AllQualities),
		Title:              Title(filename),
		Description:        "Video processed from " + key,
		CreatedAt:          now,
		CompletedAt:        &now,
	}
	// Only the full job captures a thumbnail.
	if cat == CategoryFull {
		v.ThumbnailURL = ThumbnailURL(ev, r.cdnDomain, filename)
	}
	if d, ok := ExtractDuration(ev); ok {
		v.DurationSeconds = &d
	}
	if n, ok := ExtractFileSize(ev); ok {
		v.FileSize = n
	}
	return v
}

// mergeCompletion folds a success event into an existing record. Only the tags
// owned by the event's category are written; sibling tags are left alone.
func (r *Reconciler) mergeCompletion(v *models.Video, ev *Event, cat JobCategory) {
	now := r.now().UTC()
	if v.RenditionURLs == nil {
		v.RenditionURLs = make(map[models.RenditionTag]string)
	}
	for tag, u := range RenditionURLs(r.cdnDomain, v.OriginalFilename, cat) {
		v.RenditionURLs[tag] = u
	}
	if !slices.Contains(v.JobIDs, ev.JobID) {
		v.JobIDs = append(v.JobIDs, ev.JobID)
	}
	v.Status = models.VideoStatusCompleted
	v.CompletedAt = &now
	if cat == CategoryFull {
		v.ThumbnailURL = ThumbnailURL(ev, r.cdnDomain, v.OriginalFilename)
	}
	// The free job is a clipped preview, so its duration only fills a gap.
	if d, ok := ExtractDuration(ev); ok && (cat == CategoryFull || v.DurationSeconds == nil) {
		v.DurationSeconds = &d
	}
	if n, ok := ExtractFileSize(ev); ok && v.FileSize == 0 {
		v.FileSize = n
	}
}

// failJob records a failed job as its own record. Failures never merge into an
// existing record; without an output path they cannot correlate at all.
func (r *Reconciler) failJob(ctx context.Context, ev *Event) (Result, error) {
	filename, ok := ExtractFilename(ev)
	if !ok {
		filename = "failed_job_" + ev.JobID
		r.logger.Info("no filename in failed job event, using job id", zap.String("job_id", ev.JobID))
	}
	now := r.now().UTC()
	key := filename + ".mp4"
	v := &models.Video{
		VideoID:          r.newID(),
		OriginalFilename: filename,
		OriginalKey:      key,
		InputBucket:      "failed",
		Status:           models.VideoStatusFailed,
		JobIDs:           []string{ev.JobID},
		Title:            Title(filename),
		Description:      "Failed to process video from " + key,
		ErrorCode:        string(ev.ErrorCode),
		ErrorMessage:     ev.ErrorMessage,
		CreatedAt:        now,
		FailedAt:         &now,
	}
	if v.ErrorCode == "" {
		v.ErrorCode = "UNKNOWN_ERROR"
	}
	if v.ErrorMessage == "" {
		v.ErrorMessage = "Unknown error"
	}
	if err := r.store.Insert(ctx, v); err != nil {
		return Result{Filename: filename}, fmt.Errorf("%w: insert failed record: %v", ErrUpstreamUnavailable, err)
	}
	r.logger.Warn("transcoding job failed",
		zap.String("job_id", ev.JobID),
		zap.String("video_id", v.VideoID),
		zap.String("filename", filename),
		zap.String("error_code", v.ErrorCode),
		zap.String("error_message", v.ErrorMessage),
	)
	return Result{Outcome: OutcomeFailedRecorded, VideoID: v.VideoID, Filename: filename}, nil
}
