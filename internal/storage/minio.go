// Package storage archives run artifacts, mainly the pre-submission
// screenshots the review gate works from, in S3-compatible object
// storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/jobreach/jobreach/internal/config"
)

// Client wraps a MinIO connection scoped to one bucket
type Client struct {
	client         *minio.Client
	bucket         string
	screenshotPath string
}

// New creates a storage client from config
func New(cfg config.StorageConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &Client{
		client:         client,
		bucket:         cfg.Bucket,
		screenshotPath: cfg.ScreenshotPath,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket existence: %w", err)
	}

	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}
	return nil
}

// presignExpiry is how long a reviewer's screenshot link stays valid
const presignExpiry = 24 * time.Hour

// Save archives a screenshot under the configured prefix and returns a
// link a reviewer can open, falling back to the S3-style URI when the
// link cannot be presigned. Satisfies the application engine's
// screenshot store.
func (c *Client) Save(ctx context.Context, name string, png []byte) (string, error) {
	key := path.Join(c.screenshotPath, name)
	uri, err := c.upload(ctx, key, png, contentTypeFor(name))
	if err != nil {
		return "", err
	}
	if url, err := c.PresignedURL(ctx, key, presignExpiry); err == nil {
		return url, nil
	}
	return uri, nil
}

// UploadJSON archives a JSON artifact, e.g. a search run summary
func (c *Client) UploadJSON(ctx context.Context, key string, data []byte) (string, error) {
	return c.upload(ctx, key, data, "application/json")
}

func (c *Client) upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

// PresignedURL returns a time-limited download link for a reviewer
func (c *Client) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := c.client.PresignedGetObject(ctx, c.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", key, err)
	}
	return url.String(), nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
