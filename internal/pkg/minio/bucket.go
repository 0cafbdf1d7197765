package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MakeBucketOptions holds the options for creating a bucket.
type MakeBucketOptions struct {
	Region string
}

// BucketExists reports whether the bucket exists.
func (c *Client) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	exists, err := c.client.BucketExists(ctx, bucketName)
	if err != nil {
		return false, fmt.Errorf("minio: bucket exists %q: %w", bucketName, err)
	}
	return exists, nil
}

// MakeBucket creates the bucket.
func (c *Client) MakeBucket(ctx context.Context, bucketName string, opts MakeBucketOptions) error {
	err := c.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: opts.Region})
	if err != nil {
		return fmt.Errorf("minio: make bucket %q: %w", bucketName, err)
	}

	if c.logger != nil {
		c.logger.Info("bucket created", zap.String("bucket", bucketName))
	}
	return nil
}
