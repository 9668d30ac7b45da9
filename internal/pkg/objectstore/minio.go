package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dealflowbot/backend/config"
)

// MinioClient stores deal folders as key prefixes inside one bucket.
type MinioClient struct {
	client *minio.Client
	cfg    *config.StorageConfig
}

func NewMinioClient(cfg *config.StorageConfig) (*MinioClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioClient{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// CreateFolder writes a zero-byte marker object under the folder prefix.
// Object stores have no real directories; the marker makes the folder
// listable before the first document arrives.
func (c *MinioClient) CreateFolder(ctx context.Context, name string) (string, error) {
	folder := path.Join(c.cfg.BasePrefix, name)
	marker := folder + "/.keep"
	_, err := c.client.PutObject(ctx, c.cfg.Bucket, marker,
		bytes.NewReader(nil), 0, minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", folder, err)
	}
	return folder, nil
}

func (c *MinioClient) Upload(ctx context.Context, folder, localPath, remoteName string) error {
	objectName := path.Join(folder, remoteName)
	_, err := c.client.FPutObject(ctx, c.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// Publish returns a public URL for the folder prefix. Visibility relies
// on the bucket policy, matching how the review side shares deal folders.
func (c *MinioClient) Publish(ctx context.Context, folder string) (string, error) {
	protocol := "http"
	if c.cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", protocol, c.cfg.Endpoint, c.cfg.Bucket, folder), nil
}
