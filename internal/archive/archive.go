// Package archive keeps a copy of every uploaded resume in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"atscore/internal/config"
	"atscore/internal/errors"
)

// Archive stores raw upload bytes under a key.
type Archive interface {
	Put(ctx context.Context, key string, content []byte) (string, error)
}

// New returns a MinIO archive when enabled and a no-op archive otherwise.
func New(ctx context.Context, cfg config.ArchiveConfig, logger *errors.Logger) (Archive, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	store, err := NewMinIO(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Nop discards uploads.
type Nop struct{}

func (Nop) Put(context.Context, string, []byte) (string, error) { return "", nil }

// MinIO writes uploads to an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	logger *errors.Logger
}

// NewMinIO connects to the endpoint and makes sure the bucket exists.
func NewMinIO(ctx context.Context, cfg config.ArchiveConfig, logger *errors.Logger) (*MinIO, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "archive endpoint and bucket are required", nil)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to create MinIO client", err)
	}

	m := &MinIO{client: client, bucket: cfg.Bucket, logger: logger}
	if err := m.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	logger.Info("Upload archive ready", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageWriteFailed,
			fmt.Sprintf("failed to check bucket %s", m.bucket), err)
	}
	if exists {
		return nil
	}

	m.logger.Info("Creating archive bucket", "bucket", m.bucket)
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageWriteFailed,
			fmt.Sprintf("failed to create bucket %s", m.bucket), err)
	}
	return nil
}

// Put uploads content and returns the bucket-qualified object path.
func (m *MinIO) Put(ctx context.Context, key string, content []byte) (string, error) {
	info, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: ContentType(key, content)})
	if err != nil {
		return "", errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "failed to archive upload", err).
			WithContext("key", key)
	}
	m.logger.Debug("Archived upload", "key", info.Key, "size", info.Size, "etag", info.ETag)
	return path.Join(m.bucket, info.Key), nil
}

// ObjectKey builds the object name for an upload: a dated prefix, the
// report id and the original file extension.
func ObjectKey(id, filename string, now time.Time) string {
	return path.Join("uploads", now.UTC().Format("2006/01/02"), id+path.Ext(filename))
}

// ContentType sniffs the upload type, preferring the extension for PDFs.
func ContentType(key string, content []byte) string {
	if path.Ext(key) == ".pdf" {
		return "application/pdf"
	}
	return http.DetectContentType(content)
}
