package fetch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/kotyarick/ttgt-schedule-api/pkg/config"
	appErrors "github.com/kotyarick/ttgt-schedule-api/pkg/errors"
	"github.com/kotyarick/ttgt-schedule-api/pkg/storage"
)

// ArchiveSource retrieves the current full-timetable export and returns the
// path of a local copy.
type ArchiveSource interface {
	Retrieve(ctx context.Context) (string, error)
}

// HTTPArchiveSource downloads the export over HTTP through the fetcher.
type HTTPArchiveSource struct {
	fetcher *Fetcher
	url     string
}

// NewHTTPArchiveSource builds an HTTP-backed archive source.
func NewHTTPArchiveSource(fetcher *Fetcher, url string) *HTTPArchiveSource {
	return &HTTPArchiveSource{fetcher: fetcher, url: url}
}

// Retrieve fetches the export archive. A forced rebuild removes the local
// copy first so the fetcher cannot reuse a stale one.
func (s *HTTPArchiveSource) Retrieve(ctx context.Context) (string, error) {
	if s.url == "" {
		return "", appErrors.Wrap(fmt.Errorf("archive url not configured"),
			appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "retrieve archive")
	}
	if err := s.fetcher.Remove(s.url); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "retrieve archive")
	}
	return s.fetcher.Fetch(ctx, s.url)
}

// MinIOArchiveSource pulls the export object out of a MinIO bucket into the
// local work directory.
type MinIOArchiveSource struct {
	client *minio.Client
	bucket string
	object string
	work   *storage.LocalStorage
	logger *zap.Logger
}

// NewMinIOArchiveSource connects to the configured MinIO endpoint.
func NewMinIOArchiveSource(cfg config.MinIOConfig, object string, work *storage.LocalStorage, logger *zap.Logger) (*MinIOArchiveSource, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MinIOArchiveSource{
		client: client,
		bucket: cfg.Bucket,
		object: object,
		work:   work,
		logger: logger,
	}, nil
}

// Retrieve streams the export object into the work directory.
func (s *MinIOArchiveSource) Retrieve(ctx context.Context) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "get archive object")
	}
	defer obj.Close() //nolint:errcheck

	name := filepath.Base(s.object)
	if _, err := s.work.SaveStream(name, obj); err != nil {
		// A truncated archive must not survive to be mistaken for a fresh one.
		_ = s.work.Delete(name)
		return "", appErrors.Wrap(err, appErrors.ErrFetchFailed.Code, appErrors.ErrFetchFailed.Status, "download archive object")
	}

	s.logger.Info("archive retrieved", zap.String("bucket", s.bucket), zap.String("object", s.object))
	return s.work.Path(name), nil
}
