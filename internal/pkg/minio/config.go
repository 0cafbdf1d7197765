package minio

import "errors"

// Config holds the connection settings for an S3-compatible object store.
type Config struct {
	// Endpoint is the host:port of the object store, e.g. "localhost:9000".
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string

	// Region is optional; MinIO itself ignores it in most setups.
	Region string

	// UseSSL selects https over http.
	UseSSL bool
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	return nil
}
