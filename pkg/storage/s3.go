package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// FolderUploads is the S3 prefix for source uploads in the input bucket.
const FolderUploads = "uploads"

// ErrObjectNotFound is returned by HeadObject for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// AllowedVideoExtensions maps accepted source extensions to their MIME type.
var AllowedVideoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
}

// S3Config holds S3 client configuration.
type S3Config struct {
	InputBucket          string
	OutputBucket         string
	PresignExpireMinutes int
}

// S3API is the part of the S3 client used here.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// PresignAPI is the part of the S3 presign client used here.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3 provides source upload URLs and object metadata.
type S3 struct {
	client  S3API
	presign PresignAPI
	cfg     S3Config
	logger  *zap.Logger
}

// NewS3 creates an S3 client from a loaded AWS config.
func NewS3(awsCfg aws.Config, cfg S3Config, logger *zap.Logger) *S3 {
	client := s3.NewFromConfig(awsCfg)
	return NewS3WithClients(client, s3.NewPresignClient(client), cfg, logger)
}

// NewS3WithClients wires explicit clients, for tests.
func NewS3WithClients(client S3API, presign PresignAPI, cfg S3Config, logger *zap.Logger) *S3 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3{client: client, presign: presign, cfg: cfg, logger: logger}
}

// IsVideoFile reports whether key has an accepted video extension.
func IsVideoFile(key string) bool {
	_, ok := AllowedVideoExtensions[strings.ToLower(path.Ext(key))]
	return ok
}

// ContentTypeForFilename returns the MIME type for a video filename extension.
func ContentTypeForFilename(filename string) string {
	if ct, ok := AllowedVideoExtensions[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// UploadKey returns the S3 object key for a source upload: uploads/{filename}.
func UploadKey(filename string) string {
	return path.Join(FolderUploads, path.Base(filename))
}

// SourceName returns the catalog filename for an object key: the base name up
// to its first dot.
func SourceName(key string) string {
	base := path.Base(key)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// GeneratePresignedUploadURL returns a pre-signed PUT URL for direct upload.
func (s *S3) GeneratePresignedUploadURL(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// InputBucket returns the source upload bucket name.
func (s *S3) InputBucket() string { return s.cfg.InputBucket }

// OutputBucket returns the transcoded output bucket name.
func (s *S3) OutputBucket() string { return s.cfg.OutputBucket }

// HeadObject returns the size of an object, or ErrObjectNotFound.
func (s *S3) HeadObject(ctx context.Context, bucket, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf("head object: %w", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}
