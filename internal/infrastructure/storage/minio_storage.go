package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	minioSDK "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/garyjia/fund-review/internal/application/port"
)

// MinioConfig holds object storage connection settings
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioFileStorage implements port.FileStorage on an S3-compatible bucket
type MinioFileStorage struct {
	client *minioSDK.Client
	bucket string
	logger *zap.Logger
}

// NewMinioFileStorage connects to the object store and makes sure the bucket exists
func NewMinioFileStorage(ctx context.Context, cfg MinioConfig, logger *zap.Logger) (*MinioFileStorage, error) {
	client, err := minioSDK.New(cfg.Endpoint, &minioSDK.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minioSDK.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Bucket created", zap.String("bucket", cfg.Bucket))
	}

	logger.Info("Object storage connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket))

	return &MinioFileStorage{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

// Save uploads content under the key
func (s *MinioFileStorage) Save(ctx context.Context, key string, content []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(content), int64(len(content)), minioSDK.PutObjectOptions{
		ContentType: http.DetectContentType(content),
	})
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Read downloads the content stored under the key
func (s *MinioFileStorage) Read(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minioSDK.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		s.logger.Error("Failed to read object", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return content, nil
}

// Exists checks whether the key is stored
func (s *MinioFileStorage) Exists(ctx context.Context, key string) bool {
	_, err := s.client.StatObject(ctx, s.bucket, key, minioSDK.StatObjectOptions{})
	return err == nil
}

// Delete removes the key. Removing a missing key succeeds.
func (s *MinioFileStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minioSDK.RemoveObjectOptions{}); err != nil {
		s.logger.Error("Failed to remove object", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.FileStorage = (*MinioFileStorage)(nil)
