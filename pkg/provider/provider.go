// Package provider defines the object-store client consumed by the adapter.
//
// A Provider is a thin, synchronous request/response client over a flat key
// space. It knows nothing about directories, visibility or path prefixes;
// those live in package adapter. Authentication uses the SDK default
// credential chains - providers should not implement custom auth logic.
package provider

import (
	"context"
	"io"
)

// Delimiter is the separator used to simulate hierarchy in object keys.
const Delimiter = "/"

// MaxListKeys is the largest page a single ListObjects call may request.
const MaxListKeys = 1000

// MaxDeleteKeys is the largest batch a single DeleteObjects call accepts.
const MaxDeleteKeys = 1000

// Provider abstracts the object-store operations the adapter consumes.
//
// Implementations should:
//   - Use SDK default credential chains (AWS default config, MinIO static creds)
//   - Map SDK failures to the sentinel errors in this package
//   - Return "" as NextMarker only when no more pages exist
//   - Be safe for concurrent use
type Provider interface {
	// PutObject creates or overwrites an object.
	PutObject(ctx context.Context, in *PutObjectInput) error

	// GetObject opens the object body. The caller closes it.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// HeadObject returns the raw metadata record for one object.
	// Returns ErrNotFound if the object does not exist.
	HeadObject(ctx context.Context, bucket, key string) (*ObjectRecord, error)

	// DeleteObject removes one object. Deleting a missing key is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes up to MaxDeleteKeys objects in one request.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error

	// CopyObject copies an object within a bucket.
	CopyObject(ctx context.Context, in *CopyObjectInput) error

	// ListObjects returns one page of keys under Prefix.
	ListObjects(ctx context.Context, in *ListObjectsInput) (*ListObjectsOutput, error)

	// GetObjectACL returns the grants attached to an object.
	GetObjectACL(ctx context.Context, bucket, key string) ([]Grant, error)

	// SetObjectACL replaces the object ACL with a canned ACL token.
	SetObjectACL(ctx context.Context, bucket, key, acl string) error

	// CreateSignedURL builds a pre-signed request URL.
	CreateSignedURL(ctx context.Context, in *SignedURLInput) (string, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ProviderType identifies an object-store backend.
type ProviderType string

const (
	// ProviderS3 represents AWS S3, Huawei OBS or another S3-compatible store
	// reached through the AWS SDK.
	ProviderS3 ProviderType = "s3"

	// ProviderMinIO represents a store reached through minio-go.
	ProviderMinIO ProviderType = "minio"

	// ProviderMemory represents the in-process store used in tests.
	ProviderMemory ProviderType = "memory"
)

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	return string(p)
}
