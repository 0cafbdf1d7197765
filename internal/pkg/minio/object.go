package minio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PutObjectOptions holds the upload options the server uses.
type PutObjectOptions struct {
	ContentType  string
	UserMetadata map[string]string
}

// StatObjectOptions holds options for reading object metadata.
type StatObjectOptions struct {
	VersionID string
}

// RemoveObjectOptions holds options for removing an object.
type RemoveObjectOptions struct {
	VersionID string
}

// UploadInfo describes a completed upload.
type UploadInfo struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// PutObject streams reader into the bucket under objectName.
func (c *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts PutObjectOptions) (UploadInfo, error) {
	info, err := c.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.UserMetadata,
	})
	if err != nil {
		return UploadInfo{}, fmt.Errorf("minio: put object %s/%s: %w", bucketName, objectName, err)
	}

	if c.logger != nil {
		c.logger.Debug("object uploaded",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
			zap.Int64("size", info.Size),
		)
	}

	return UploadInfo{
		Bucket: info.Bucket,
		Key:    info.Key,
		ETag:   info.ETag,
		Size:   info.Size,
	}, nil
}

// StatObject returns metadata for a stored object. A missing object is an
// error (minio reports NoSuchKey).
func (c *Client) StatObject(ctx context.Context, bucketName, objectName string, opts StatObjectOptions) (ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{VersionID: opts.VersionID})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("minio: stat object %s/%s: %w", bucketName, objectName, err)
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// RemoveObject deletes a stored object. Removing a missing object succeeds.
func (c *Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts RemoveObjectOptions) error {
	err := c.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{VersionID: opts.VersionID})
	if err != nil {
		return fmt.Errorf("minio: remove object %s/%s: %w", bucketName, objectName, err)
	}
	return nil
}
