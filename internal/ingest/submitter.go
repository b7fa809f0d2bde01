// Package ingest accepts source uploads and submits the transcoding jobs for them.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aura-media/vod-backend/internal/metrics"
)

// MediaConvertAPI is the part of the MediaConvert client used to submit jobs.
type MediaConvertAPI interface {
	CreateJob(ctx context.Context, in *mediaconvert.CreateJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error)
}

// Submission holds the ids of the two correlated jobs created for one source.
type Submission struct {
	Filename  string `json:"filename"`
	FreeJobID string `json:"freeJobId"`
	FullJobID string `json:"fullJobId"`
}

// Submitter creates the free and full transcoding jobs for a source.
type Submitter struct {
	api      MediaConvertAPI
	template JobTemplate
	logger   *zap.Logger
}

// NewSubmitter creates a job submitter.
func NewSubmitter(api MediaConvertAPI, template JobTemplate, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{api: api, template: template, logger: logger}
}

// NewMediaConvertClient builds a MediaConvert client, pinned to the
// account-specific endpoint when one is configured.
func NewMediaConvertClient(cfg aws.Config, endpoint string) *mediaconvert.Client {
	return mediaconvert.NewFromConfig(cfg, func(o *mediaconvert.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// Submit creates both jobs concurrently. Either job failing fails the submission;
// a job that was already created is reported in the returned Submission.
func (s *Submitter) Submit(ctx context.Context, src Source) (Submission, error) {
	sub := Submission{Filename: src.Filename}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		id, err := s.create(gctx, s.template.FreeJob(src), JobTypeFree)
		sub.FreeJobID = id
		return err
	})
	g.Go(func() error {
		id, err := s.create(gctx, s.template.FullJob(src), JobTypeFull)
		sub.FullJobID = id
		return err
	})
	if err := g.Wait(); err != nil {
		return sub, err
	}
	s.logger.Info("transcoding jobs submitted",
		zap.String("filename", src.Filename),
		zap.String("source", src.URI()),
		zap.String("free_job_id", sub.FreeJobID),
		zap.String("full_job_id", sub.FullJobID),
	)
	return sub, nil
}

func (s *Submitter) create(ctx context.Context, in *mediaconvert.CreateJobInput, jobType string) (string, error) {
	out, err := s.api.CreateJob(ctx, in)
	if err != nil {
		return "", fmt.Errorf("create %s job: %w", jobType, err)
	}
	if out == nil || out.Job == nil || aws.ToString(out.Job.Id) == "" {
		return "", errors.New("create " + jobType + " job: empty job id")
	}
	metrics.TranscodeJobsSubmitted.WithLabelValues(jobType).Inc()
	return aws.ToString(out.Job.Id), nil
}
