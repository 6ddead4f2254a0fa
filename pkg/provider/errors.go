package provider

import (
	"errors"
	"fmt"
)

// Backend failures are reported as one of these sentinels, wrapped in a
// *ProviderError. The adapter only ever inspects them with errors.Is, so a
// backend may wrap extra detail around a sentinel.
var (
	// ErrNotFound: no object is stored under the key.
	ErrNotFound = errors.New("object not found")

	// ErrBucketNotFound: the bucket itself is missing, so every key in it
	// is too.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrAccessDenied: the credentials are valid but the bucket policy or
	// object ACL refuses the request.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials: the store rejected the key pair or signature.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRequest: the request can never succeed as sent, for example
	// a delete batch over MaxDeleteKeys or a body shorter than its declared
	// content length.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrThrottled: the store asked the client to slow down.
	ErrThrottled = errors.New("request throttled")

	// ErrProviderUnavailable: the store could not be reached or failed
	// server-side.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// ProviderError records which backend call failed and on which object.
type ProviderError struct {
	// Op is the backend call, e.g. "PutObject" or "ListObjects".
	Op string

	Provider ProviderType

	// Bucket and Key locate the object. Key is empty for bucket-wide calls
	// and both are empty for client construction.
	Bucket string
	Key    string

	Err error
}

func (e *ProviderError) Error() string {
	if loc := e.location(); loc != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, loc, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// location renders the object as bucket/key, or the bucket alone.
func (e *ProviderError) location() string {
	switch {
	case e.Bucket == "":
		return ""
	case e.Key == "":
		return e.Bucket
	default:
		return e.Bucket + "/" + e.Key
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound reports a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsBucketNotFound reports a missing bucket.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsMissing reports a missing object or a missing bucket. Either way the
// path does not exist.
func IsMissing(err error) bool {
	return IsNotFound(err) || IsBucketNotFound(err)
}

// IsAccessDenied reports a refused request, whether by policy or because
// the credentials were rejected.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied) || errors.Is(err, ErrInvalidCredentials)
}

// IsInvalidRequest reports a request the store will never accept as sent.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsUnavailable reports a transient failure: throttling or an unreachable
// or failing store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrProviderUnavailable)
}
