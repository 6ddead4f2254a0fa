// Package minio implements provider.Provider on top of minio-go.
//
// It serves MinIO and other S3-compatible stores whose ACL support is limited
// to canned ACL headers: ACL changes are applied by copying an object onto
// itself with an x-amz-acl header.
package minio

import (
	"github.com/minio/minio-go/v7"
)

// Config holds MinIO provider configuration.
type Config struct {
	// Endpoint is the server host and port without scheme (e.g., "localhost:9000").
	Endpoint string

	// AccessKey is the access key ID for authentication.
	AccessKey string

	// SecretKey is the secret access key for authentication.
	SecretKey string

	// SessionToken accompanies temporary credentials.
	SessionToken string

	// UseSSL enables HTTPS connections.
	UseSSL bool

	// Region is sent with signed requests. Empty lets the client discover it.
	Region string

	// Client is an optional pre-configured MinIO client.
	// If provided, Endpoint, AccessKey, SecretKey and UseSSL are ignored.
	Client *minio.Client

	// MaxKeys is the default page size for ListObjects.
	MaxKeys int
}

// validate checks if the configuration is valid.
// Either Client OR (Endpoint + AccessKey + SecretKey) must be provided.
func (c *Config) validate() error {
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return &ConfigError{Field: "Endpoint", Message: "endpoint is required when client is not provided"}
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return &ConfigError{Field: "AccessKey/SecretKey", Message: "access key and secret key are required when client is not provided"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "minio config: " + e.Field + ": " + e.Message
}
