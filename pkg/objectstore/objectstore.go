package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"medimate-be/internal/apperror"
	"medimate-be/internal/config"
	"medimate-be/internal/pkg/logger"
	"medimate-be/pkg/backend"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage uploads objects to an S3-compatible bucket and returns
// their public URL.
type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    logger.ILogger

	once      sync.Once
	bucketErr error
}

var _ backend.Storage = (*MinioStorage)(nil)

func NewMinioStorage(cfg config.StorageConfig, log logger.ILogger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    log,
	}, nil
}

func (s *MinioStorage) ensureBucket(ctx context.Context) error {
	s.once.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = err
			return
		}
		if !exists {
			s.bucketErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		}
	})
	return s.bucketErr
}

func (s *MinioStorage) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string, onProgress backend.ProgressFunc) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", apperror.Translate(err, "Storage bucket unavailable")
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if onProgress != nil {
		opts.Progress = NewProgressReader(size, onProgress)
	}

	info, err := s.client.PutObject(ctx, s.bucket, path, body, size, opts)
	if err != nil {
		return "", apperror.Translate(err, "Failed to upload object")
	}

	s.logger.Info("ObjectStore", "Object uploaded", map[string]interface{}{
		"key":  info.Key,
		"size": info.Size,
	})
	return s.URL(path), nil
}

// URL is the public download URL of an object key.
func (s *MinioStorage) URL(path string) string {
	return s.publicURL + "/" + strings.TrimLeft(path, "/")
}

// ProgressReader reports the fraction of bytes read so far. minio reads
// from it as it streams the object body.
type ProgressReader struct {
	total    int64
	read     int64
	onUpdate backend.ProgressFunc
	mu       sync.Mutex
}

func NewProgressReader(total int64, onUpdate backend.ProgressFunc) *ProgressReader {
	return &ProgressReader{total: total, onUpdate: onUpdate}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	p.mu.Lock()
	p.read += int64(len(b))
	fraction := 1.0
	if p.total > 0 {
		fraction = float64(p.read) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}
	}
	p.mu.Unlock()

	p.onUpdate(fraction)
	return len(b), nil
}
