package minio

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// PresignedPutObject returns a URL that lets the holder upload the object
// directly, without the server relaying the bytes.
func (c *Client) PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error) {
	if expiry <= 0 {
		return nil, fmt.Errorf("minio: presign put %s/%s: expiry must be > 0", bucketName, objectName)
	}

	u, err := c.client.PresignedPutObject(ctx, bucketName, objectName, expiry)
	if err != nil {
		return nil, fmt.Errorf("minio: presign put %s/%s: %w", bucketName, objectName, err)
	}
	return u, nil
}

// PresignedGetObject returns a URL that lets the holder download the object.
// reqParams may carry response header overrides such as content disposition.
func (c *Client) PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error) {
	if expiry <= 0 {
		return nil, fmt.Errorf("minio: presign get %s/%s: expiry must be > 0", bucketName, objectName)
	}

	u, err := c.client.PresignedGetObject(ctx, bucketName, objectName, expiry, reqParams)
	if err != nil {
		return nil, fmt.Errorf("minio: presign get %s/%s: %w", bucketName, objectName, err)
	}
	return u, nil
}
