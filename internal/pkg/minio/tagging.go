package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/tags"
)

// PutObjectTagging replaces the tag set stored on an object.
func (c *Client) PutObjectTagging(ctx context.Context, bucketName, objectName string, tagMap map[string]string) error {
	objectTags, err := tags.NewTags(tagMap, true)
	if err != nil {
		return fmt.Errorf("minio: build tags for %s/%s: %w", bucketName, objectName, err)
	}

	err = c.client.PutObjectTagging(ctx, bucketName, objectName, objectTags, minio.PutObjectTaggingOptions{})
	if err != nil {
		return fmt.Errorf("minio: put object tagging %s/%s: %w", bucketName, objectName, err)
	}
	return nil
}
