// Package storage uploads media objects to S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"atomvideo/internal/config"
	"atomvideo/internal/observability"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotConfigured is returned when no bucket is configured.
var ErrNotConfigured = errors.New("object storage is not configured")

// Uploader is the subset of *s3manager.Uploader used here.
type Uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// Object describes a stored upload.
type Object struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store writes objects into one bucket.
type Store struct {
	uploader Uploader
	bucket   string
}

// New creates a Store from AWS settings. A custom S3_ENDPOINT (MinIO, LocalStack)
// switches to path-style addressing.
func New(cfg *config.Config) (*Store, error) {
	if !cfg.S3Configured() {
		return nil, ErrNotConfigured
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.AWSRegion)}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return NewWithUploader(s3manager.NewUploader(sess), cfg.S3Bucket), nil
}

// NewWithUploader returns a Store over an explicit uploader.
func NewWithUploader(u Uploader, bucket string) *Store {
	return &Store{uploader: u, bucket: bucket}
}

// Put uploads body under key and returns its public location.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (obj *Object, err error) {
	ctx, span := observability.StartSpan(ctx, "storage", "put",
		attribute.String("s3.bucket", s.bucket), attribute.String("s3.key", key))
	defer func() { observability.EndSpan(span, err) }()

	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	return &Object{Key: key, URL: out.Location}, nil
}

// VideoKey returns a fresh object key for an uploaded video file.
func VideoKey(filename string) string {
	return "videos/" + uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// ThumbnailKey returns a fresh object key for a video's WebP thumbnail.
func ThumbnailKey(videoID uint) string {
	return fmt.Sprintf("thumbnails/%d-%s.webp", videoID, uuid.NewString())
}
