package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Client wraps the minio-go client for the blob operations the file store
// uses: bucket bootstrap, presigned URLs, uploads, stat, remove and tagging.
type Client struct {
	client *minio.Client
	logger *zap.Logger
}

// NewClient connects to the object store.
func NewClient(cfg *Config, log *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: connect to %s: %w", cfg.Endpoint, err)
	}

	if log != nil {
		log.Info("minio client initialized",
			zap.String("endpoint", cfg.Endpoint),
			zap.Bool("use_ssl", cfg.UseSSL),
		)
	}

	return &Client{client: mc, logger: log}, nil
}

// Ping verifies the server is reachable by listing buckets.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("minio: ping: %w", err)
	}
	return nil
}

// Close releases the client. minio-go holds no persistent connections, so
// this only exists for symmetry with the other data-layer clients.
func (c *Client) Close() error {
	if c.logger != nil {
		c.logger.Info("minio client closed")
	}
	return nil
}
