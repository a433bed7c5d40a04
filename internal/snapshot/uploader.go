// Package snapshot uploads database backups to S3-compatible storage.
// When a bucket is not configured, the NoopUploader is used and backups are
// skipped, keeping the system in local-only mode.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/playnext/playnext/internal/config"
)

// ErrNotConfigured is returned when backup storage is not configured.
var ErrNotConfigured = errors.New("backup storage not configured")

// Uploader uploads database backups.
type Uploader interface {
	// Upload uploads the database file to the backup bucket.
	Upload(ctx context.Context, filePath string) error

	// Configured reports whether a real backend is wired.
	Configured() bool
}

// s3Client defines the minimal minio.Client operations used by S3Uploader.
// This interface enables testing with mock implementations.
type s3Client interface {
	FPutObject(ctx context.Context, bucket, objectName, filePath string) error
}

// minioClientWrapper wraps *minio.Client to satisfy the s3Client interface.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) FPutObject(ctx context.Context, bucket, objectName, filePath string) error {
	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}
	_, err := w.client.FPutObject(ctx, bucket, objectName, filePath, opts)
	return err
}

// S3Uploader uploads backups to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
}

// Upload uploads the database file, keyed by backup date so older backups
// are retained day-over-day.
func (u *S3Uploader) Upload(ctx context.Context, filePath string) error {
	if err := u.client.FPutObject(ctx, u.bucket, objectKey(time.Now()), filePath); err != nil {
		return fmt.Errorf("upload backup to S3: %w", err)
	}
	return nil
}

// Configured reports true for a real S3 backend.
func (u *S3Uploader) Configured() bool { return true }

// NoopUploader is used when backup storage is not configured.
type NoopUploader struct{}

// Upload is a no-op when backups are not configured.
func (u *NoopUploader) Upload(ctx context.Context, filePath string) error {
	return nil
}

// Configured reports false for the noop backend.
func (u *NoopUploader) Configured() bool { return false }

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client: &minioClientWrapper{client: client},
		bucket: cfg.Bucket,
	}, nil
}

// objectKey returns the object key for a backup taken at t.
// Convention: backups/playnext-YYYY-MM-DD.db
func objectKey(t time.Time) string {
	return "backups/playnext-" + t.UTC().Format("2006-01-02") + ".db"
}
