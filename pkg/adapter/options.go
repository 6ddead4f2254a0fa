package adapter

import (
	"fmt"
	"maps"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// WriteOptions are the recognized write and copy options. Zero values mean
// "not set".
type WriteOptions struct {
	// Visibility is mapped to a canned ACL. ACL wins when both are set.
	Visibility Visibility `mapstructure:"visibility"`

	// ACL is a canned ACL token sent as-is.
	ACL string `mapstructure:"acl"`

	ContentType   string            `mapstructure:"content_type"`
	ContentLength *int64            `mapstructure:"-"`
	StorageClass  string            `mapstructure:"storage_class"`
	Metadata      map[string]string `mapstructure:"metadata"`

	WebsiteRedirectLocation string `mapstructure:"website_redirect_location"`

	// ServerSideEncryption is "AES256" or "aws:kms"; SSEKMSKeyID selects the
	// KMS key for the latter.
	ServerSideEncryption string `mapstructure:"server_side_encryption"`
	SSEKMSKeyID          string `mapstructure:"sse_kms_key_id"`

	// SSECustomerKey is the base64-encoded customer-provided key.
	SSECustomerAlgorithm string `mapstructure:"sse_customer_algorithm"`
	SSECustomerKey       string `mapstructure:"sse_customer_key"`

	Expires         time.Time `mapstructure:"expires"`
	SuccessRedirect string    `mapstructure:"success_redirect"`
}

// WriteOption sets one field of WriteOptions.
type WriteOption func(*WriteOptions)

// WithVisibility sets the object visibility.
func WithVisibility(v Visibility) WriteOption {
	return func(o *WriteOptions) { o.Visibility = v }
}

// WithACL sets a canned ACL, overriding any visibility.
func WithACL(acl string) WriteOption {
	return func(o *WriteOptions) { o.ACL = acl }
}

// WithContentType sets the content type instead of detecting it.
func WithContentType(ct string) WriteOption {
	return func(o *WriteOptions) { o.ContentType = ct }
}

// WithContentLength declares the body length. The backend rejects bodies of
// a different length.
func WithContentLength(n int64) WriteOption {
	return func(o *WriteOptions) { o.ContentLength = &n }
}

// WithStorageClass sets the storage class.
func WithStorageClass(class string) WriteOption {
	return func(o *WriteOptions) { o.StorageClass = class }
}

// WithMetadata sets custom metadata. It replaces any default metadata.
func WithMetadata(meta map[string]string) WriteOption {
	return func(o *WriteOptions) { o.Metadata = maps.Clone(meta) }
}

// WithWebsiteRedirect sets the website redirect location.
func WithWebsiteRedirect(location string) WriteOption {
	return func(o *WriteOptions) { o.WebsiteRedirectLocation = location }
}

// WithServerSideEncryption requests backend-managed encryption.
func WithServerSideEncryption(algorithm, kmsKeyID string) WriteOption {
	return func(o *WriteOptions) {
		o.ServerSideEncryption = algorithm
		o.SSEKMSKeyID = kmsKeyID
	}
}

// WithCustomerKey requests encryption with a caller-provided key.
func WithCustomerKey(algorithm, keyBase64 string) WriteOption {
	return func(o *WriteOptions) {
		o.SSECustomerAlgorithm = algorithm
		o.SSECustomerKey = keyBase64
	}
}

// WithExpires sets the Expires header.
func WithExpires(t time.Time) WriteOption {
	return func(o *WriteOptions) { o.Expires = t }
}

// WithSuccessRedirect sets the redirect used by browser form uploads.
func WithSuccessRedirect(location string) WriteOption {
	return func(o *WriteOptions) { o.SuccessRedirect = location }
}

// DecodeWriteOptions decodes configuration values (such as the
// storage.write_defaults section) into WriteOptions. Unknown keys are
// ignored; expires is RFC 3339.
func DecodeWriteOptions(raw map[string]any) (WriteOptions, error) {
	var out WriteOptions
	if len(raw) == 0 {
		return out, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("%w: write options: %v", ErrInvalidArgument, err)
	}
	if out.Visibility != "" {
		v, err := ParseVisibility(string(out.Visibility))
		if err != nil {
			return out, err
		}
		out.Visibility = v
	}
	return out, nil
}

// with returns a copy of o with opts applied.
func (o WriteOptions) with(opts []WriteOption) WriteOptions {
	o.Metadata = maps.Clone(o.Metadata)
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// hasAccessControl reports whether the caller chose an ACL or visibility.
func (o WriteOptions) hasAccessControl() bool {
	return o.ACL != "" || o.Visibility != ""
}

// resolveACL returns the ACL to send, or "" when none was chosen.
func (o WriteOptions) resolveACL(vc VisibilityConverter) string {
	if o.ACL != "" {
		return o.ACL
	}
	if o.Visibility != "" {
		return vc.VisibilityToACL(o.Visibility)
	}
	return ""
}

func (o WriteOptions) objectOptions(acl string) provider.ObjectOptions {
	opts := provider.ObjectOptions{
		ACL:                     acl,
		StorageClass:            o.StorageClass,
		ContentType:             o.ContentType,
		Metadata:                maps.Clone(o.Metadata),
		WebsiteRedirectLocation: o.WebsiteRedirectLocation,
		ServerSideEncryption:    o.ServerSideEncryption,
		SSEKMSKeyID:             o.SSEKMSKeyID,
		SSECustomerAlgorithm:    o.SSECustomerAlgorithm,
		SSECustomerKey:          o.SSECustomerKey,
		SuccessRedirect:         o.SuccessRedirect,
	}
	if !o.Expires.IsZero() {
		expires := o.Expires
		opts.Expires = &expires
	}
	return opts
}
