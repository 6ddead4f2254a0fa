// Package memory implements provider.Provider over an in-process key space.
//
// Listing follows S3 ListObjects (v1) semantics: lexicographic key order,
// exclusive markers, delimiter roll-up into common prefixes and a NextMarker
// on every truncated page. It backs the adapter and CLI tests.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// DefaultOwnerID is the canonical owner reported in object grants.
const DefaultOwnerID = "memory-owner"

// DefaultStorageClass is reported for objects written without a class.
const DefaultStorageClass = "STANDARD"

type object struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	acl          string
	storageClass string
	etag         string
	modified     time.Time
}

// Provider is an in-memory object store.
type Provider struct {
	mu            sync.RWMutex
	buckets       map[string]map[string]*object
	owner         string
	delimiterOnly bool
	now           func() time.Time
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider         = (*Provider)(nil)
	_ provider.DelimiterOnly    = (*Provider)(nil)
	_ provider.PostPolicySigner = (*Provider)(nil)
)

// Option configures a Provider.
type Option func(*Provider)

// WithBuckets pre-creates buckets.
func WithBuckets(names ...string) Option {
	return func(p *Provider) {
		for _, n := range names {
			p.buckets[n] = map[string]*object{}
		}
	}
}

// WithDelimiterOnly makes the provider declare provider.DelimiterOnly.
func WithDelimiterOnly() Option {
	return func(p *Provider) { p.delimiterOnly = true }
}

// WithClock replaces time.Now for modification times.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Provider {
	p := &Provider{
		buckets: map[string]map[string]*object{},
		owner:   DefaultOwnerID,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateBucket adds an empty bucket if it does not exist.
func (p *Provider) CreateBucket(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.buckets[name]; !ok {
		p.buckets[name] = map[string]*object{}
	}
}

// Keys returns the sorted keys of a bucket.
func (p *Provider) Keys(bucket string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedKeys(p.buckets[bucket])
}

// RequiresDelimiter implements provider.DelimiterOnly.
func (p *Provider) RequiresDelimiter() bool {
	return p.delimiterOnly
}

// PutObject stores the full body.
func (p *Provider) PutObject(ctx context.Context, in *provider.PutObjectInput) error {
	if err := ctx.Err(); err != nil {
		return p.wrapError("PutObject", in.Bucket, in.Key, err)
	}

	var data []byte
	if in.Body != nil {
		b, err := io.ReadAll(in.Body)
		if err != nil {
			return p.wrapError("PutObject", in.Bucket, in.Key, err)
		}
		data = b
	}
	if in.ContentLength != nil && *in.ContentLength != int64(len(data)) {
		return p.wrapError("PutObject", in.Bucket, in.Key, provider.ErrInvalidRequest)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	objs, ok := p.buckets[in.Bucket]
	if !ok {
		return p.wrapError("PutObject", in.Bucket, in.Key, provider.ErrBucketNotFound)
	}
	objs[in.Key] = p.newObject(data, in.ObjectOptions)
	return nil
}

// GetObject returns a reader over a copy of the stored body.
func (p *Provider) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	obj, err := p.lookup(ctx, "GetObject", bucket, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// HeadObject returns the metadata record of one object.
func (p *Provider) HeadObject(ctx context.Context, bucket, key string) (*provider.ObjectRecord, error) {
	obj, err := p.lookup(ctx, "HeadObject", bucket, key)
	if err != nil {
		return nil, err
	}
	size := int64(len(obj.data))
	return &provider.ObjectRecord{
		Key:           key,
		ContentLength: &size,
		LastModified:  obj.modified.UTC().Format(http.TimeFormat),
		ContentType:   obj.contentType,
		StorageClass:  obj.storageClass,
		ETag:          obj.etag,
		Metadata:      cloneMap(obj.metadata),
	}, nil
}

// DeleteObject removes a key. Missing keys are ignored.
func (p *Provider) DeleteObject(ctx context.Context, bucket, key string) error {
	return p.DeleteObjects(ctx, bucket, []string{key})
}

// DeleteObjects removes a batch of keys.
func (p *Provider) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if err := ctx.Err(); err != nil {
		return p.wrapError("DeleteObjects", bucket, "", err)
	}
	if len(keys) > provider.MaxDeleteKeys {
		return p.wrapError("DeleteObjects", bucket, "", provider.ErrInvalidRequest)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	objs, ok := p.buckets[bucket]
	if !ok {
		return p.wrapError("DeleteObjects", bucket, "", provider.ErrBucketNotFound)
	}
	for _, k := range keys {
		delete(objs, k)
	}
	return nil
}

// CopyObject duplicates an object inside a bucket.
func (p *Provider) CopyObject(ctx context.Context, in *provider.CopyObjectInput) error {
	src, err := p.lookup(ctx, "CopyObject", in.Bucket, in.SourceKey)
	if err != nil {
		return err
	}

	opts := in.ObjectOptions
	if !in.ReplacesMetadata() {
		opts.Metadata = src.metadata
		opts.ContentType = src.contentType
	}
	if opts.StorageClass == "" {
		opts.StorageClass = src.storageClass
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets[in.Bucket][in.Key] = p.newObject(bytes.Clone(src.data), opts)
	return nil
}

// ListObjects returns one page with S3 v1 semantics.
func (p *Provider) ListObjects(ctx context.Context, in *provider.ListObjectsInput) (*provider.ListObjectsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("ListObjects", in.Bucket, "", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	objs, ok := p.buckets[in.Bucket]
	if !ok {
		return nil, p.wrapError("ListObjects", in.Bucket, "", provider.ErrBucketNotFound)
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 || maxKeys > provider.MaxListKeys {
		maxKeys = provider.MaxListKeys
	}

	out := &provider.ListObjectsOutput{}
	count := 0
	last := ""
	for _, key := range sortedKeys(objs) {
		if !strings.HasPrefix(key, in.Prefix) || key <= in.Marker {
			continue
		}

		entry := key
		isPrefix := false
		if in.Delimiter != "" {
			rest := key[len(in.Prefix):]
			if i := strings.Index(rest, in.Delimiter); i >= 0 {
				entry = in.Prefix + rest[:i+len(in.Delimiter)]
				isPrefix = true
			}
		}
		if isPrefix && (entry == last || entry <= in.Marker) {
			continue
		}

		if count == maxKeys {
			out.NextMarker = last
			return out, nil
		}

		if isPrefix {
			out.CommonPrefixes = append(out.CommonPrefixes, entry)
		} else {
			obj := objs[key]
			size := int64(len(obj.data))
			out.Contents = append(out.Contents, provider.ObjectRecord{
				Key:          key,
				Size:         &size,
				LastModified: obj.modified.UTC().Format(http.TimeFormat),
				ETag:         obj.etag,
				StorageClass: obj.storageClass,
			})
		}
		last = entry
		count++
	}
	return out, nil
}

// GetObjectACL expands the stored canned ACL into grants.
func (p *Provider) GetObjectACL(ctx context.Context, bucket, key string) ([]provider.Grant, error) {
	obj, err := p.lookup(ctx, "GetObjectACL", bucket, key)
	if err != nil {
		return nil, err
	}
	p.mu.RLock()
	acl := obj.acl
	p.mu.RUnlock()
	return provider.GrantsForACL(p.owner, acl), nil
}

// SetObjectACL replaces the stored canned ACL.
func (p *Provider) SetObjectACL(ctx context.Context, bucket, key, acl string) error {
	obj, err := p.lookup(ctx, "SetObjectACL", bucket, key)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	obj.acl = acl
	return nil
}

// CreateSignedURL returns a deterministic, unsigned URL that encodes the
// request so tests can inspect it.
func (p *Provider) CreateSignedURL(ctx context.Context, in *provider.SignedURLInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", p.wrapError("CreateSignedURL", in.Bucket, in.Key, err)
	}
	q := url.Values{}
	for k, v := range in.QueryParams {
		q.Set(k, v)
	}
	q.Set("X-Expires", fmt.Sprintf("%d", in.ExpiresSeconds))
	q.Set("X-Method", in.Method)
	u := url.URL{
		Scheme:   "https",
		Host:     in.Bucket + ".memory.local",
		Path:     "/" + in.Key,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// SignPostPolicy returns form fields carrying an unsigned policy document.
func (p *Provider) SignPostPolicy(ctx context.Context, in *provider.PostPolicyInput) (*provider.PostPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError("SignPostPolicy", in.Bucket, in.KeyPrefix, err)
	}

	conditions := []any{
		map[string]string{"bucket": in.Bucket},
		[]string{"starts-with", "$key", in.KeyPrefix},
	}
	fields := map[string]string{"key": in.KeyPrefix + "${filename}"}
	if in.ACL != "" {
		conditions = append(conditions, map[string]string{"acl": in.ACL})
		fields["acl"] = in.ACL
	}
	if in.ContentType != "" {
		conditions = append(conditions, map[string]string{"Content-Type": in.ContentType})
		fields["Content-Type"] = in.ContentType
	}
	if in.SuccessRedirect != "" {
		conditions = append(conditions, map[string]string{"success_action_redirect": in.SuccessRedirect})
		fields["success_action_redirect"] = in.SuccessRedirect
	}

	doc, err := json.Marshal(map[string]any{
		"expiration": p.now().Add(in.Expires).UTC().Format(time.RFC3339),
		"conditions": conditions,
	})
	if err != nil {
		return nil, p.wrapError("SignPostPolicy", in.Bucket, in.KeyPrefix, err)
	}
	fields["policy"] = base64.StdEncoding.EncodeToString(doc)

	return &provider.PostPolicy{
		URL:    "https://" + in.Bucket + ".memory.local/",
		Fields: fields,
	}, nil
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

func (p *Provider) lookup(ctx context.Context, op, bucket, key string) (*object, error) {
	if err := ctx.Err(); err != nil {
		return nil, p.wrapError(op, bucket, key, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	objs, ok := p.buckets[bucket]
	if !ok {
		return nil, p.wrapError(op, bucket, key, provider.ErrBucketNotFound)
	}
	obj, ok := objs[key]
	if !ok {
		return nil, p.wrapError(op, bucket, key, provider.ErrNotFound)
	}
	return obj, nil
}

func (p *Provider) newObject(data []byte, opts provider.ObjectOptions) *object {
	sum := md5.Sum(data)
	obj := &object{
		data:         data,
		contentType:  opts.ContentType,
		metadata:     cloneMap(opts.Metadata),
		acl:          opts.ACL,
		storageClass: opts.StorageClass,
		etag:         hex.EncodeToString(sum[:]),
		modified:     p.now(),
	}
	if obj.contentType == "" {
		obj.contentType = "application/octet-stream"
	}
	if obj.acl == "" {
		obj.acl = provider.ACLPrivate
	}
	if obj.storageClass == "" {
		obj.storageClass = DefaultStorageClass
	}
	return obj
}

func (p *Provider) wrapError(op, bucket, key string, err error) error {
	return &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderMemory,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}
}

func sortedKeys(objs map[string]*object) []string {
	keys := make([]string, 0, len(objs))
	for k := range objs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
