package data

import (
	"context"
	"io"
	"net/url"
	"time"

	miniopkg "github.com/localboxhq/localbox-server/internal/pkg/minio"
)

// MinIOStorage implements biz.StorageService against a single bucket.
type MinIOStorage struct {
	client *miniopkg.Client
	bucket string
}

// NewMinIOStorage creates the blob storage collaborator.
func NewMinIOStorage(client *miniopkg.Client, bucket string) *MinIOStorage {
	return &MinIOStorage{client: client, bucket: bucket}
}

func (s *MinIOStorage) PresignedUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinIOStorage) PresignedDownload(ctx context.Context, key, filename string, expiry time.Duration) (string, error) {
	params := url.Values{}
	if filename != "" {
		params.Set("response-content-disposition", `attachment; filename="`+filename+`"`)
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinIOStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, miniopkg.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinIOStorage) Stat(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, miniopkg.StatObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (s *MinIOStorage) Remove(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, miniopkg.RemoveObjectOptions{})
}

func (s *MinIOStorage) SetObjectTags(ctx context.Context, key string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	return s.client.PutObjectTagging(ctx, s.bucket, key, tags)
}
