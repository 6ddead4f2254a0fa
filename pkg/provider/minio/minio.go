package minio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// aclHeader carries a canned ACL through UserMetadata; minio-go sends
// x-amz-* keys as raw headers.
const aclHeader = "x-amz-acl"

// Provider implements provider.Provider with minio-go.
type Provider struct {
	client  *minio.Client
	core    minio.Core
	maxKeys int
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider         = (*Provider)(nil)
	_ provider.PostPolicySigner = (*Provider)(nil)
)

// New creates a MinIO-backed provider.
func New(cfg Config) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
			Secure: cfg.UseSSL,
			Region: cfg.Region,
		})
		if err != nil {
			return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderMinIO, Err: err}
		}
	}

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 || maxKeys > provider.MaxListKeys {
		maxKeys = provider.MaxListKeys
	}

	return &Provider{client: client, core: minio.Core{Client: client}, maxKeys: maxKeys}, nil
}

// PutObject uploads an object. A nil ContentLength streams with unknown size.
func (p *Provider) PutObject(ctx context.Context, in *provider.PutObjectInput) error {
	opts, err := putOptions(in.ObjectOptions)
	if err != nil {
		return p.wrapError("PutObject", in.Bucket, in.Key, err)
	}

	size := int64(-1)
	if in.ContentLength != nil {
		size = *in.ContentLength
	}
	body := in.Body
	if body == nil {
		body = strings.NewReader("")
		size = 0
	}

	if _, err := p.client.PutObject(ctx, in.Bucket, in.Key, body, size, opts); err != nil {
		return p.wrapError("PutObject", in.Bucket, in.Key, err)
	}
	return nil
}

// GetObject opens the object body. The object is stat'ed first so a missing
// key fails here rather than on the first read.
func (p *Provider) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := p.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, p.wrapError("GetObject", bucket, key, err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, p.wrapError("GetObject", bucket, key, err)
	}
	return obj, nil
}

// HeadObject returns the metadata record for a single object.
func (p *Provider) HeadObject(ctx context.Context, bucket, key string) (*provider.ObjectRecord, error) {
	info, err := p.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, p.wrapError("HeadObject", bucket, key, err)
	}
	rec := toRecord(info)
	rec.Key = key
	rec.ContentLength = rec.Size
	rec.Size = nil
	return &rec, nil
}

// DeleteObject removes one object.
func (p *Provider) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := p.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return p.wrapError("DeleteObject", bucket, key, err)
	}
	return nil
}

// DeleteObjects removes a batch of keys and reports the first failure.
func (p *Provider) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > provider.MaxDeleteKeys {
		return p.wrapError("DeleteObjects", bucket, "", provider.ErrInvalidRequest)
	}

	objects := func(yield func(minio.ObjectInfo) bool) {
		for _, k := range keys {
			if !yield(minio.ObjectInfo{Key: k}) {
				return
			}
		}
	}

	results, err := p.client.RemoveObjectsWithIter(ctx, bucket, iter.Seq[minio.ObjectInfo](objects), minio.RemoveObjectsOptions{})
	if err != nil {
		return p.wrapError("DeleteObjects", bucket, "", err)
	}
	var first error
	for res := range results {
		if res.Err != nil && first == nil {
			first = p.wrapError("DeleteObjects", bucket, res.ObjectName, res.Err)
		}
	}
	return first
}

// CopyObject copies an object within a bucket.
//
// minio-go only sends metadata headers (the ACL included) when metadata is
// replaced, so a copy carrying an ACL re-supplies the source metadata.
func (p *Provider) CopyObject(ctx context.Context, in *provider.CopyObjectInput) error {
	dst := minio.CopyDestOptions{
		Bucket:      in.Bucket,
		Object:      in.Key,
		ContentType: in.ContentType,
	}
	if in.Expires != nil {
		dst.Expires = *in.Expires
	}

	if in.ReplacesMetadata() || in.ACL != "" || in.StorageClass != "" {
		meta := in.Metadata
		if !in.ReplacesMetadata() {
			src, err := p.client.StatObject(ctx, in.Bucket, in.SourceKey, minio.StatObjectOptions{})
			if err != nil {
				return p.wrapError("CopyObject", in.Bucket, in.SourceKey, err)
			}
			meta = src.UserMetadata
			dst.ContentType = src.ContentType
		}
		dst.ReplaceMetadata = true
		dst.UserMetadata = userMetadata(meta, in.ACL, in.StorageClass)
	}

	sse, err := serverSide(in.ObjectOptions)
	if err != nil {
		return p.wrapError("CopyObject", in.Bucket, in.Key, err)
	}
	dst.Encryption = sse

	src := minio.CopySrcOptions{Bucket: in.Bucket, Object: in.SourceKey}
	if _, err := p.client.CopyObject(ctx, dst, src); err != nil {
		return p.wrapError("CopyObject", in.Bucket, in.SourceKey, err)
	}
	return nil
}

// ListObjects returns one page of a marker-based (v1) listing.
func (p *Provider) ListObjects(ctx context.Context, in *provider.ListObjectsInput) (*provider.ListObjectsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("ListObjects", in.Bucket, in.Prefix, err)
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 || maxKeys > p.maxKeys {
		maxKeys = p.maxKeys
	}

	res, err := p.core.ListObjects(in.Bucket, in.Prefix, in.Marker, in.Delimiter, maxKeys)
	if err != nil {
		return nil, p.wrapError("ListObjects", in.Bucket, in.Prefix, err)
	}

	out := &provider.ListObjectsOutput{
		Contents:       make([]provider.ObjectRecord, 0, len(res.Contents)),
		CommonPrefixes: make([]string, 0, len(res.CommonPrefixes)),
	}
	last := ""
	for _, obj := range res.Contents {
		out.Contents = append(out.Contents, toRecord(obj))
		last = max(last, obj.Key)
	}
	for _, cp := range res.CommonPrefixes {
		out.CommonPrefixes = append(out.CommonPrefixes, cp.Prefix)
		last = max(last, cp.Prefix)
	}
	if res.IsTruncated {
		out.NextMarker = res.NextMarker
		if out.NextMarker == "" {
			out.NextMarker = last
		}
	}
	return out, nil
}

// GetObjectACL returns the object's grants.
func (p *Provider) GetObjectACL(ctx context.Context, bucket, key string) ([]provider.Grant, error) {
	info, err := p.client.GetObjectACL(ctx, bucket, key)
	if err != nil {
		return nil, p.wrapError("GetObjectACL", bucket, key, err)
	}
	return toGrants(info.Grant), nil
}

// SetObjectACL applies a canned ACL by copying the object onto itself.
// The object's last-modified time changes as a side effect.
func (p *Provider) SetObjectACL(ctx context.Context, bucket, key, acl string) error {
	err := p.CopyObject(ctx, &provider.CopyObjectInput{
		Bucket:        bucket,
		SourceKey:     key,
		Key:           key,
		ObjectOptions: provider.ObjectOptions{ACL: acl},
	})
	if err != nil {
		var pe *provider.ProviderError
		if errors.As(err, &pe) {
			pe.Op = "SetObjectACL"
		}
		return err
	}
	return nil
}

// CreateSignedURL presigns a request. Query parameters are signed as given.
func (p *Provider) CreateSignedURL(ctx context.Context, in *provider.SignedURLInput) (string, error) {
	method := strings.ToUpper(in.Method)
	if method == "" {
		method = http.MethodGet
	}

	params := url.Values{}
	for k, v := range in.QueryParams {
		params.Set(k, v)
	}

	u, err := p.client.Presign(ctx, method, in.Bucket, in.Key, time.Duration(in.ExpiresSeconds)*time.Second, params)
	if err != nil {
		return "", p.wrapError("CreateSignedURL", in.Bucket, in.Key, err)
	}
	return u.String(), nil
}

// SignPostPolicy builds a browser upload policy restricted to KeyPrefix.
func (p *Provider) SignPostPolicy(ctx context.Context, in *provider.PostPolicyInput) (*provider.PostPolicy, error) {
	policy := minio.NewPostPolicy()
	steps := []func() error{
		func() error { return policy.SetBucket(in.Bucket) },
		func() error { return policy.SetKeyStartsWith(in.KeyPrefix) },
		func() error { return policy.SetExpires(time.Now().UTC().Add(in.Expires)) },
	}
	if in.ContentType != "" {
		steps = append(steps, func() error { return policy.SetContentType(in.ContentType) })
	}
	if in.SuccessRedirect != "" {
		steps = append(steps, func() error { return policy.SetSuccessActionRedirect(in.SuccessRedirect) })
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, p.wrapError("SignPostPolicy", in.Bucket, in.KeyPrefix, fmt.Errorf("%w: %v", provider.ErrInvalidRequest, err))
		}
	}

	u, fields, err := p.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, p.wrapError("SignPostPolicy", in.Bucket, in.KeyPrefix, err)
	}
	if in.ACL != "" {
		fields["acl"] = in.ACL
	}
	return &provider.PostPolicy{URL: u.String(), Fields: fields}, nil
}

// Close is a no-op; minio-go holds no resources that need releasing.
func (p *Provider) Close() error {
	return nil
}

func putOptions(o provider.ObjectOptions) (minio.PutObjectOptions, error) {
	opts := minio.PutObjectOptions{
		ContentType:             o.ContentType,
		UserMetadata:            userMetadata(o.Metadata, o.ACL, ""),
		StorageClass:            o.StorageClass,
		WebsiteRedirectLocation: o.WebsiteRedirectLocation,
	}
	if o.Expires != nil {
		opts.Expires = *o.Expires
	}
	sse, err := serverSide(o)
	if err != nil {
		return opts, err
	}
	opts.ServerSideEncryption = sse
	return opts, nil
}

// userMetadata merges custom metadata with the raw ACL and storage class
// headers minio-go forwards verbatim.
func userMetadata(meta map[string]string, acl, storageClass string) map[string]string {
	if len(meta) == 0 && acl == "" && storageClass == "" {
		return nil
	}
	out := make(map[string]string, len(meta)+2)
	for k, v := range meta {
		out[k] = v
	}
	if acl != "" {
		out[aclHeader] = acl
	}
	if storageClass != "" {
		out["X-Amz-Storage-Class"] = storageClass
	}
	return out
}

// serverSide maps the SSE options onto an encrypt.ServerSide.
// SSECustomerKey is the base64-encoded 256-bit key.
func serverSide(o provider.ObjectOptions) (encrypt.ServerSide, error) {
	switch {
	case o.SSECustomerKey != "":
		key, err := base64.StdEncoding.DecodeString(o.SSECustomerKey)
		if err != nil {
			return nil, fmt.Errorf("%w: customer key is not base64: %v", provider.ErrInvalidRequest, err)
		}
		sse, err := encrypt.NewSSEC(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrInvalidRequest, err)
		}
		return sse, nil
	case o.ServerSideEncryption == "aws:kms" || o.SSEKMSKeyID != "":
		sse, err := encrypt.NewSSEKMS(o.SSEKMSKeyID, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", provider.ErrInvalidRequest, err)
		}
		return sse, nil
	case o.ServerSideEncryption == "AES256":
		return encrypt.NewSSE(), nil
	}
	return nil, nil
}

func toRecord(info minio.ObjectInfo) provider.ObjectRecord {
	size := info.Size
	rec := provider.ObjectRecord{
		Key:          info.Key,
		Size:         &size,
		ContentType:  info.ContentType,
		StorageClass: info.StorageClass,
		ETag:         strings.Trim(info.ETag, "\""),
		VersionID:    info.VersionID,
	}
	if !info.LastModified.IsZero() {
		rec.LastModified = info.LastModified.UTC().Format(http.TimeFormat)
	}
	if len(info.UserMetadata) > 0 {
		rec.Metadata = make(map[string]string, len(info.UserMetadata))
		for k, v := range info.UserMetadata {
			rec.Metadata[k] = v
		}
	}
	return rec
}

func toGrants(in []minio.Grant) []provider.Grant {
	out := make([]provider.Grant, 0, len(in))
	for _, g := range in {
		grantee := provider.Grantee{
			ID:          g.Grantee.ID,
			DisplayName: g.Grantee.DisplayName,
			URI:         g.Grantee.URI,
			Type:        provider.GranteeCanonicalUser,
		}
		if g.Grantee.URI != "" {
			grantee.Type = provider.GranteeGroup
		}
		out = append(out, provider.Grant{Grantee: grantee, Permission: g.Permission})
	}
	return out
}

// wrapError converts minio-go errors to provider errors with sentinel errors.
func (p *Provider) wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMinIO,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}

	if errors.Is(err, provider.ErrInvalidRequest) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapped
	}

	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return wrapped
	}

	switch resp.Code {
	case "NoSuchKey", "NotFound", "NoSuchVersion":
		wrapped.Err = provider.ErrNotFound
	case "NoSuchBucket":
		wrapped.Err = provider.ErrBucketNotFound
	case "AccessDenied", "AllAccessDisabled":
		wrapped.Err = provider.ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		wrapped.Err = provider.ErrInvalidCredentials
	case "SlowDown", "SlowDownRead", "SlowDownWrite", "RequestLimitExceeded":
		wrapped.Err = provider.ErrThrottled
	case "ServiceUnavailable", "InternalError", "XMinioServerNotInitialized":
		wrapped.Err = provider.ErrProviderUnavailable
	case "InvalidArgument", "InvalidRequest", "InvalidObjectName", "KeyTooLongError":
		wrapped.Err = provider.ErrInvalidRequest
	default:
		switch resp.StatusCode {
		case http.StatusNotFound:
			wrapped.Err = provider.ErrNotFound
		case http.StatusForbidden:
			wrapped.Err = provider.ErrAccessDenied
		case http.StatusServiceUnavailable:
			wrapped.Err = provider.ErrProviderUnavailable
		}
	}
	return wrapped
}
