// Package storage archives raw ingest payloads to object storage. The ML
// training pipeline consumes these untouched bodies later; the live ingest
// path only ever writes them, best-effort.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver stores raw payload bytes under a measurement key.
type Archiver interface {
	ArchivePayload(ctx context.Context, deviceID, measurementID string, measuredAt time.Time, payload []byte) error
}

// MinIOArchive implements Archiver using MinIO/S3.
type MinIOArchive struct {
	client *minio.Client
	bucket string
}

// Config holds MinIO connection configuration
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NewMinIOArchive creates the archive client and ensures the bucket exists.
func NewMinIOArchive(cfg Config) (*MinIOArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("📦 Created MinIO bucket: %s", cfg.Bucket)
	}

	return &MinIOArchive{client: client, bucket: cfg.Bucket}, nil
}

// ArchivePayload writes one raw ingest body. Objects are keyed by device and
// measured-at day so training jobs can list a device's history cheaply; the
// measurement id makes the object name stable under idempotent re-ingest.
func (a *MinIOArchive) ArchivePayload(ctx context.Context, deviceID, measurementID string, measuredAt time.Time, payload []byte) error {
	objectName := fmt.Sprintf("raw/%s/%s/%s.json",
		deviceID,
		measuredAt.UTC().Format("2006/01/02"),
		measurementID,
	)

	_, err := a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("failed to archive payload: %w", err)
	}
	return nil
}
