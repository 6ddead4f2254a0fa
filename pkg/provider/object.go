package provider

import (
	"io"
	"time"
)

// ObjectRecord is a raw, backend-shaped metadata record.
//
// Listing calls populate Size; HeadObject populates ContentLength. A record
// standing for a common prefix carries only Prefix. LastModified is kept as
// the backend's timestamp string and parsed by the adapter.
type ObjectRecord struct {
	// Key is the full object key.
	Key string

	// Prefix is the common prefix this record stands for, or the directory
	// that was queried when the record came from a listing.
	Prefix string

	// ContentLength is the object size reported by a metadata request.
	ContentLength *int64

	// Size is the object size reported by a listing.
	Size *int64

	// LastModified is the raw timestamp, e.g. "Mon, 31 May 2021 06:52:32 GMT".
	LastModified string

	// ContentType is the MIME type stored with the object.
	ContentType string

	// StorageClass is the backend storage tier.
	StorageClass string

	// ETag is the entity tag without surrounding quotes.
	ETag string

	// VersionID is set when bucket versioning is enabled.
	VersionID string

	// Metadata contains user-defined metadata key-value pairs.
	Metadata map[string]string
}

// ObjectOptions are the pass-through options recognized on write and copy.
type ObjectOptions struct {
	ACL                     string
	StorageClass            string
	ContentType             string
	Metadata                map[string]string
	WebsiteRedirectLocation string
	ServerSideEncryption    string
	SSEKMSKeyID             string
	SSECustomerAlgorithm    string
	SSECustomerKey          string
	Expires                 *time.Time

	// SuccessRedirect is honoured by backends with form-upload semantics
	// (OBS); others ignore it.
	SuccessRedirect string
}

// PutObjectInput configures a PutObject call.
type PutObjectInput struct {
	Bucket string
	Key    string
	Body   io.Reader

	// ContentLength is the body size when known. Nil lets the backend
	// stream with an unknown length.
	ContentLength *int64

	ObjectOptions
}

// CopyObjectInput configures a CopyObject call.
//
// Metadata is copied from the source unless Metadata or ContentType is set,
// in which case the destination metadata is replaced.
type CopyObjectInput struct {
	Bucket    string
	SourceKey string
	Key       string

	ObjectOptions
}

// ReplacesMetadata reports whether the copy must replace source metadata.
func (in *CopyObjectInput) ReplacesMetadata() bool {
	return in.Metadata != nil || in.ContentType != ""
}

// ListObjectsInput configures one ListObjects page request.
type ListObjectsInput struct {
	Bucket string

	// Prefix filters results to keys starting with this value.
	Prefix string

	// Delimiter groups keys into CommonPrefixes. Empty lists every nested key.
	Delimiter string

	// Marker resumes listing after this key. Empty starts from the beginning.
	Marker string

	// MaxKeys limits the page size. Zero uses MaxListKeys.
	MaxKeys int
}

// ListObjectsOutput is one page of a listing.
type ListObjectsOutput struct {
	Contents       []ObjectRecord
	CommonPrefixes []string

	// NextMarker resumes the listing. Empty means no more pages.
	NextMarker string
}

// SignedURLInput configures CreateSignedURL.
type SignedURLInput struct {
	// Method is the HTTP method the URL authorizes (GET, PUT, HEAD, DELETE).
	Method string

	Bucket string
	Key    string

	// ExpiresSeconds is the validity window relative to now.
	ExpiresSeconds int64

	// QueryParams are extra signed parameters such as response-content-type.
	QueryParams map[string]string
}
