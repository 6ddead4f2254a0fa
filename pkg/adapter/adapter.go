// Package adapter presents a flat object store as a hierarchical filesystem.
//
// Paths are "/"-delimited and relative to an optional root prefix. Files are
// objects; directories are inferred from key prefixes and from zero-byte
// marker objects whose key ends in "/". Every error returned by an Adapter is
// an *OperationError whose kind is one of ErrNotFound, ErrAccessDenied,
// ErrUnavailable, ErrInvalidArgument or ErrUnknown.
//
// An Adapter is immutable once built and safe for concurrent use. Switching
// buckets returns a new Adapter (see WithBucket).
package adapter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"iter"
	"mime"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// sniffLen is how much of a stream is inspected to detect its content type.
const sniffLen = 512

// Adapter is the filesystem view of one bucket.
type Adapter struct {
	client     provider.Provider
	bucket     string
	prefixer   PathPrefixer
	mapper     Mapper
	visibility VisibilityConverter
	listCfg    ListerConfig
	urlCfg     URLConfig
	defaults   WriteOptions
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRoot isolates the adapter under a key prefix.
func WithRoot(root string) Option {
	return func(a *Adapter) { a.prefixer = NewPathPrefixer(root) }
}

// WithVisibilityConverter replaces the PortableVisibilityConverter.
func WithVisibilityConverter(vc VisibilityConverter) Option {
	return func(a *Adapter) { a.visibility = vc }
}

// WithLogger sets the logger. Default: no-op
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithListStrategy selects the recursive listing strategy.
func WithListStrategy(s ListStrategy) Option {
	return func(a *Adapter) { a.listCfg.Strategy = s }
}

// WithListPageSize sets MaxKeys for listing requests.
func WithListPageSize(n int) Option {
	return func(a *Adapter) { a.listCfg.PageSize = n }
}

// WithListRateLimit caps listing requests per second. Zero means unlimited.
func WithListRateLimit(rps float64) Option {
	return func(a *Adapter) {
		if rps <= 0 {
			a.listCfg.Limiter = nil
			return
		}
		a.listCfg.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithURLConfig sets public and temporary URL bases.
func WithURLConfig(cfg URLConfig) Option {
	return func(a *Adapter) { a.urlCfg = cfg }
}

// WithWriteDefaults sets options applied to every write before the
// per-call options.
func WithWriteDefaults(o WriteOptions) Option {
	return func(a *Adapter) { a.defaults = o.with(nil) }
}

// WithClock overrides time.Now for expiry calculations.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// New creates an Adapter for bucket.
func New(client provider.Provider, bucket string, opts ...Option) (*Adapter, error) {
	if client == nil {
		return nil, invalidArgument("new", "", "provider is required")
	}
	if bucket == "" {
		return nil, invalidArgument("new", "", "bucket is required")
	}

	a := &Adapter{
		client: client,
		bucket: bucket,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.visibility == nil {
		a.visibility = NewPortableVisibilityConverter()
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.listCfg.Logger = a.logger
	a.mapper = NewMapper(a.prefixer)
	return a, nil
}

// Bucket returns the bound bucket.
func (a *Adapter) Bucket() string { return a.bucket }

// Root returns the normalized root prefix.
func (a *Adapter) Root() string { return a.prefixer.Root() }

// Client returns the underlying provider.
func (a *Adapter) Client() provider.Provider { return a.client }

// WithBucket returns a copy of the adapter bound to bucket.
func (a *Adapter) WithBucket(bucket string) *Adapter {
	b := *a
	b.bucket = bucket
	return &b
}

// Write stores contents at path.
func (a *Adapter) Write(ctx context.Context, p string, contents []byte, opts ...WriteOption) error {
	opts = append([]WriteOption{WithContentLength(int64(len(contents)))}, opts...)
	return a.WriteStream(ctx, p, bytes.NewReader(contents), opts...)
}

// WriteStream stores the contents of r at path.
//
// Without an explicit content type, one is guessed from the extension and
// then from the first bytes of r.
func (a *Adapter) WriteStream(ctx context.Context, p string, r io.Reader, opts ...WriteOption) error {
	p = normalizePath(p)
	if p == "" || strings.HasSuffix(p, provider.Delimiter) {
		return invalidArgument(OpWrite, p, "a file path is required")
	}

	o := a.defaults.with(opts)
	body := r
	if o.ContentType == "" {
		ct, sniffed, err := detectContentType(p, r)
		if err != nil {
			return a.fail(OpWrite, p, err)
		}
		o.ContentType, body = ct, sniffed
	}

	err := a.client.PutObject(ctx, &provider.PutObjectInput{
		Bucket:        a.bucket,
		Key:           a.prefixer.PrefixPath(p),
		Body:          body,
		ContentLength: o.ContentLength,
		ObjectOptions: o.objectOptions(o.resolveACL(a.visibility)),
	})
	if err != nil {
		return a.fail(OpWrite, p, err)
	}
	return nil
}

func detectContentType(p string, r io.Reader) (string, io.Reader, error) {
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct, r, nil
	}
	// Backends that sign the payload need to rewind it, so a seekable body
	// is read and rewound rather than wrapped.
	if rs, ok := r.(io.ReadSeeker); ok {
		ct, err := sniffSeeker(rs)
		return ct, rs, err
	}
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	return mimetype.Detect(head).String(), br, nil
}

func sniffSeeker(rs io.ReadSeeker) (string, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", err
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return "", err
	}
	return mimetype.Detect(head[:n]).String(), nil
}

// Read returns the contents of path.
func (a *Adapter) Read(ctx context.Context, p string) ([]byte, error) {
	rc, err := a.ReadStream(ctx, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, a.fail(OpRead, normalizePath(p), err)
	}
	return data, nil
}

// ReadStream opens path for reading. The caller closes the reader.
func (a *Adapter) ReadStream(ctx context.Context, p string) (io.ReadCloser, error) {
	p = normalizePath(p)
	rc, err := a.client.GetObject(ctx, a.bucket, a.prefixer.PrefixPath(p))
	if err != nil {
		return nil, a.fail(OpRead, p, err)
	}
	return rc, nil
}

// Delete removes path. Deleting a missing file is not an error.
func (a *Adapter) Delete(ctx context.Context, p string) error {
	p = normalizePath(p)
	err := a.client.DeleteObject(ctx, a.bucket, a.prefixer.PrefixPath(p))
	if err != nil && !provider.IsNotFound(err) {
		return a.fail(OpDelete, p, err)
	}
	return nil
}

// DeleteDirectory removes every object under dir, including its marker.
func (a *Adapter) DeleteDirectory(ctx context.Context, dir string) error {
	dir = normalizeDir(dir)
	prefix := a.prefixer.PrefixDirectoryPath(dir)
	if prefix == "" {
		return invalidArgument(OpDeleteDirectory, dir, "refusing to delete the bucket root")
	}

	var keys []string
	w := &walk{Lister: a.lister(), ctx: ctx}
	err := w.keys(prefix, func(key string) {
		keys = append(keys, key)
	})
	if err != nil {
		return a.fail(OpDeleteDirectory, dir, err)
	}

	for batch := range slices.Chunk(keys, provider.MaxDeleteKeys) {
		if err := a.client.DeleteObjects(ctx, a.bucket, batch); err != nil {
			return a.fail(OpDeleteDirectory, dir, err)
		}
	}
	a.logger.Debug("deleted directory",
		zap.String("bucket", a.bucket),
		zap.String("prefix", prefix),
		zap.Int("objects", len(keys)),
	)
	return nil
}

// CreateDirectory writes a marker object for dir. Without an explicit
// visibility the converter's directory default applies.
func (a *Adapter) CreateDirectory(ctx context.Context, dir string, opts ...WriteOption) error {
	dir = normalizeDir(dir)
	key := a.prefixer.PrefixDirectoryPath(dir)
	if dir == "" {
		return invalidArgument(OpCreateDirectory, dir, "a directory path is required")
	}

	o := a.defaults.with(opts)
	if !o.hasAccessControl() {
		o.Visibility = a.visibility.DefaultForDirectories()
	}
	zero := int64(0)
	err := a.client.PutObject(ctx, &provider.PutObjectInput{
		Bucket:        a.bucket,
		Key:           key,
		Body:          bytes.NewReader(nil),
		ContentLength: &zero,
		ObjectOptions: o.objectOptions(o.resolveACL(a.visibility)),
	})
	if err != nil {
		return a.fail(OpCreateDirectory, dir, err)
	}
	return nil
}

// Copy copies src to dst. Unless opts choose a visibility or ACL, the
// destination gets the source's visibility.
//
// Write defaults do not apply: the copy keeps the source's metadata unless
// opts replace it.
func (a *Adapter) Copy(ctx context.Context, src, dst string, opts ...WriteOption) error {
	return a.copy(ctx, OpCopy, normalizePath(src), normalizePath(dst), opts)
}

// Move copies src to dst and then deletes src. The source is left in place
// when the copy fails.
func (a *Adapter) Move(ctx context.Context, src, dst string, opts ...WriteOption) error {
	src, dst = normalizePath(src), normalizePath(dst)
	if err := a.copy(ctx, OpMove, src, dst, opts); err != nil {
		return err
	}
	if err := a.client.DeleteObject(ctx, a.bucket, a.prefixer.PrefixPath(src)); err != nil {
		return a.fail(OpMove, src, err)
	}
	return nil
}

func (a *Adapter) copy(ctx context.Context, op, src, dst string, opts []WriteOption) error {
	if src == "" || dst == "" {
		return invalidArgument(op, src, "source and destination are required")
	}

	o := WriteOptions{}.with(opts)
	acl := o.resolveACL(a.visibility)
	if acl == "" {
		grants, err := a.client.GetObjectACL(ctx, a.bucket, a.prefixer.PrefixPath(src))
		if err != nil {
			return a.fail(op, src, err)
		}
		acl = a.visibility.VisibilityToACL(a.visibility.ACLToVisibility(grants))
	}

	err := a.client.CopyObject(ctx, &provider.CopyObjectInput{
		Bucket:        a.bucket,
		SourceKey:     a.prefixer.PrefixPath(src),
		Key:           a.prefixer.PrefixPath(dst),
		ObjectOptions: o.objectOptions(acl),
	})
	if err != nil {
		return a.fail(op, src, err)
	}
	a.logger.Debug("copied object",
		zap.String("op", op),
		zap.String("src", src),
		zap.String("dst", dst),
		zap.String("acl", acl),
	)
	return nil
}

// FileExists reports whether an object exists at path.
func (a *Adapter) FileExists(ctx context.Context, p string) (bool, error) {
	p = normalizePath(p)
	_, err := a.client.HeadObject(ctx, a.bucket, a.prefixer.PrefixPath(p))
	if err == nil {
		return true, nil
	}
	if provider.IsNotFound(err) {
		return false, nil
	}
	return false, a.fail(OpFileExists, p, err)
}

// DirectoryExists reports whether any key (a marker or a nested object)
// exists under dir. The root always exists.
func (a *Adapter) DirectoryExists(ctx context.Context, dir string) (bool, error) {
	dir = normalizeDir(dir)
	prefix := a.prefixer.PrefixDirectoryPath(dir)
	if prefix == "" {
		return true, nil
	}

	out, err := a.client.ListObjects(ctx, &provider.ListObjectsInput{
		Bucket:    a.bucket,
		Prefix:    prefix,
		Delimiter: provider.Delimiter,
		MaxKeys:   1,
	})
	if err != nil {
		if errors.Is(err, provider.ErrBucketNotFound) {
			return false, nil
		}
		return false, a.fail(OpDirectoryExists, dir, err)
	}
	return len(out.Contents)+len(out.CommonPrefixes) > 0, nil
}

// Visibility returns the visibility derived from the object's grants.
func (a *Adapter) Visibility(ctx context.Context, p string) (Visibility, error) {
	p = normalizePath(p)
	grants, err := a.client.GetObjectACL(ctx, a.bucket, a.prefixer.PrefixPath(p))
	if err != nil {
		return "", a.fail(OpVisibility, p, err)
	}
	return a.visibility.ACLToVisibility(grants), nil
}

// SetVisibility replaces the object's ACL with the canned ACL for v.
func (a *Adapter) SetVisibility(ctx context.Context, p string, v Visibility) error {
	p = normalizePath(p)
	v, err := ParseVisibility(string(v))
	if err != nil {
		return Translate(OpSetVisibility, p, err)
	}
	if err := a.client.SetObjectACL(ctx, a.bucket, a.prefixer.PrefixPath(p), a.visibility.VisibilityToACL(v)); err != nil {
		return a.fail(OpSetVisibility, p, err)
	}
	return nil
}

// Stat returns the attributes of one object from a single metadata request.
// A path ending in "/" addresses a directory marker.
func (a *Adapter) Stat(ctx context.Context, p string) (Attributes, error) {
	p = normalizePath(p)
	rec, err := a.client.HeadObject(ctx, a.bucket, a.prefixer.PrefixPath(p))
	if err != nil {
		return nil, a.fail(OpMetadata, p, err)
	}
	return a.mapper.MapPath(*rec, p), nil
}

// FileSize returns attributes with Size populated when the backend reports it.
func (a *Adapter) FileSize(ctx context.Context, p string) (*FileAttributes, error) {
	return a.fileMetadata(ctx, p)
}

// MimeType returns attributes with MimeType populated.
func (a *Adapter) MimeType(ctx context.Context, p string) (*FileAttributes, error) {
	return a.fileMetadata(ctx, p)
}

// LastModified returns attributes with LastModified populated when parsable.
func (a *Adapter) LastModified(ctx context.Context, p string) (*FileAttributes, error) {
	return a.fileMetadata(ctx, p)
}

func (a *Adapter) fileMetadata(ctx context.Context, p string) (*FileAttributes, error) {
	attrs, err := a.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	f, ok := attrs.(*FileAttributes)
	if !ok {
		return nil, invalidArgument(OpMetadata, attrs.EntryPath(), "path is a directory")
	}
	return f, nil
}

// List returns the entries of dir; see Lister.List.
func (a *Adapter) List(ctx context.Context, dir string, recursive bool) iter.Seq2[Attributes, error] {
	return a.lister().List(ctx, dir, recursive)
}

// SignURL returns a presigned URL for path.
func (a *Adapter) SignURL(ctx context.Context, p string, exp Expiry, opts ...SignOption) (string, error) {
	return a.signer().SignURL(ctx, p, exp, opts...)
}

// TemporaryURL returns a presigned URL valid until at.
func (a *Adapter) TemporaryURL(ctx context.Context, p string, at time.Time, opts ...SignOption) (string, error) {
	return a.signer().TemporaryURL(ctx, p, at, opts...)
}

// PublicURL returns the unsigned URL of path.
func (a *Adapter) PublicURL(p string) (string, error) {
	return a.signer().PublicURL(p)
}

// Checksum returns the hex checksum of path. The etag algorithm (the
// default) reads metadata only; the others stream the object.
func (a *Adapter) Checksum(ctx context.Context, p, algo string) (string, error) {
	p = normalizePath(p)
	algo, ok := normalizeChecksum(algo)
	if !ok {
		return "", invalidArgument(OpChecksum, p, "unsupported checksum algorithm %q (supported: %s)", algo, strings.Join(ChecksumAlgorithms, ", "))
	}

	key := a.prefixer.PrefixPath(p)
	if algo == ChecksumETag {
		rec, err := a.client.HeadObject(ctx, a.bucket, key)
		if err != nil {
			return "", a.fail(OpChecksum, p, err)
		}
		return strings.Trim(rec.ETag, "\""), nil
	}

	rc, err := a.client.GetObject(ctx, a.bucket, key)
	if err != nil {
		return "", a.fail(OpChecksum, p, err)
	}
	defer func() { _ = rc.Close() }()

	h := newHasher(algo)
	if _, err := io.Copy(h, rc); err != nil {
		return "", a.fail(OpChecksum, p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PostPolicy signs a browser form upload restricted to keys under prefix.
// Only the ACL, visibility, content type and success redirect options are
// used.
func (a *Adapter) PostPolicy(ctx context.Context, prefix string, expires time.Duration, opts ...WriteOption) (*provider.PostPolicy, error) {
	prefix = normalizePath(prefix)
	signer, ok := a.client.(provider.PostPolicySigner)
	if !ok {
		return nil, invalidArgument(OpPostPolicy, prefix, "provider does not support post policies")
	}
	if expires <= 0 {
		return nil, invalidArgument(OpPostPolicy, prefix, "expiry must be positive")
	}

	o := WriteOptions{}.with(opts)
	policy, err := signer.SignPostPolicy(ctx, &provider.PostPolicyInput{
		Bucket:          a.bucket,
		KeyPrefix:       a.prefixer.PrefixPath(prefix),
		Expires:         expires,
		ACL:             o.resolveACL(a.visibility),
		ContentType:     o.ContentType,
		SuccessRedirect: o.SuccessRedirect,
	})
	if err != nil {
		return nil, a.fail(OpPostPolicy, prefix, err)
	}
	return policy, nil
}

func (a *Adapter) lister() *Lister {
	return NewLister(a.client, a.bucket, a.prefixer, a.listCfg)
}

func (a *Adapter) signer() *URLSigner {
	return NewURLSigner(a.client, a.bucket, a.prefixer, a.urlCfg, a.now)
}

// fail translates err and records it at debug level.
func (a *Adapter) fail(op, p string, err error) error {
	translated := Translate(op, p, err)
	a.logger.Debug("storage operation failed",
		zap.String("op", op),
		zap.String("bucket", a.bucket),
		zap.String("path", p),
		zap.Error(err),
	)
	return translated
}
