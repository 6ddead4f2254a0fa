package adapter

import (
	"context"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// Expiry is the validity of a signed URL: an absolute time or a duration.
type Expiry struct {
	at time.Time
	in time.Duration
}

// ExpiresAt expires the URL at t.
func ExpiresAt(t time.Time) Expiry { return Expiry{at: t} }

// ExpiresIn expires the URL d from now.
func ExpiresIn(d time.Duration) Expiry { return Expiry{in: d} }

// Seconds returns the relative expiry in whole seconds. An absolute expiry is
// floored against now; a relative one is passed through.
func (e Expiry) Seconds(now time.Time) int64 {
	if !e.at.IsZero() {
		return int64(math.Floor(e.at.Sub(now).Seconds()))
	}
	return int64(e.in / time.Second)
}

// URLConfig controls public and temporary URL building.
type URLConfig struct {
	// PublicURL is a fixed base for public URLs.
	PublicURL string

	// CDNURL overrides PublicURL when set.
	CDNURL string

	// TemporaryURL, when set, replaces the scheme and host of signed URLs.
	TemporaryURL string

	// Endpoint is the service endpoint, with or without scheme (https is
	// assumed). Used for public URLs when no base is configured.
	Endpoint string

	// IsCName means Endpoint already addresses the bucket.
	IsCName bool
}

type signOptions struct {
	method string
	params map[string]string
}

// SignOption customizes a signed URL.
type SignOption func(*signOptions)

// WithMethod sets the HTTP method the URL is signed for. Default: GET
func WithMethod(method string) SignOption {
	return func(o *signOptions) { o.method = strings.ToUpper(method) }
}

// WithQueryParam adds a signed query parameter such as
// response-content-disposition.
func WithQueryParam(key, value string) SignOption {
	return func(o *signOptions) {
		if o.params == nil {
			o.params = make(map[string]string)
		}
		o.params[key] = value
	}
}

// URLSigner builds public, signed and temporary URLs.
type URLSigner struct {
	client   provider.Provider
	bucket   string
	prefixer PathPrefixer
	cfg      URLConfig
	now      func() time.Time
}

// NewURLSigner creates a URLSigner. A nil now uses time.Now.
func NewURLSigner(client provider.Provider, bucket string, prefixer PathPrefixer, cfg URLConfig, now func() time.Time) *URLSigner {
	if now == nil {
		now = time.Now
	}
	return &URLSigner{client: client, bucket: bucket, prefixer: prefixer, cfg: cfg, now: now}
}

// SignURL returns a presigned URL for path.
func (s *URLSigner) SignURL(ctx context.Context, p string, exp Expiry, opts ...SignOption) (string, error) {
	p = normalizePath(p)
	o := signOptions{method: "GET"}
	for _, opt := range opts {
		opt(&o)
	}

	seconds := exp.Seconds(s.now())
	if seconds <= 0 {
		return "", invalidArgument(OpSignURL, p, "expiry must be in the future (got %ds)", seconds)
	}

	signed, err := s.client.CreateSignedURL(ctx, &provider.SignedURLInput{
		Method:         o.method,
		Bucket:         s.bucket,
		Key:            s.prefixer.PrefixPath(p),
		ExpiresSeconds: seconds,
		QueryParams:    o.params,
	})
	if err != nil {
		return "", Translate(OpSignURL, p, err)
	}

	if s.cfg.TemporaryURL == "" {
		return signed, nil
	}
	rewritten, err := rewriteHost(signed, s.cfg.TemporaryURL)
	if err != nil {
		return "", invalidArgument(OpSignURL, p, "temporary url base: %v", err)
	}
	return rewritten, nil
}

// TemporaryURL is SignURL with an absolute expiry.
func (s *URLSigner) TemporaryURL(ctx context.Context, p string, at time.Time, opts ...SignOption) (string, error) {
	return s.SignURL(ctx, p, ExpiresAt(at), opts...)
}

// PublicURL returns the unsigned URL for path. It never contacts the backend.
func (s *URLSigner) PublicURL(p string) (string, error) {
	p = normalizePath(p)
	key := strings.TrimLeft(s.prefixer.PrefixPath(p), "/")

	base := s.cfg.CDNURL
	if base == "" {
		base = s.cfg.PublicURL
	}
	if base != "" {
		return strings.TrimRight(base, "/") + "/" + key, nil
	}

	if s.cfg.Endpoint == "" {
		return "", invalidArgument(OpPublicURL, p, "no public url, cdn url or endpoint configured")
	}
	scheme, host := splitEndpoint(s.cfg.Endpoint)
	if !s.cfg.IsCName {
		host = s.bucket + "." + host
	}
	return scheme + "://" + host + "/" + key, nil
}

// splitEndpoint separates an optional scheme from the endpoint host.
func splitEndpoint(endpoint string) (scheme, host string) {
	scheme = "https"
	if before, after, ok := strings.Cut(endpoint, "://"); ok {
		scheme, endpoint = strings.ToLower(before), after
	}
	return scheme, strings.TrimRight(endpoint, "/")
}

// rewriteHost swaps the scheme and host of signed for those of base. The
// rest of signed is kept byte for byte so the signature stays valid.
func rewriteHost(signed, base string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if b.Scheme == "" || b.Host == "" {
		scheme, host := splitEndpoint(base)
		b = &url.URL{Scheme: scheme, Host: host}
	}

	_, rest, ok := strings.Cut(signed, "://")
	if !ok {
		return signed, nil
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[i:]
	} else {
		rest = ""
	}
	return b.Scheme + "://" + b.Host + rest, nil
}
