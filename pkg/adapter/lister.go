package adapter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// ListStrategy selects how recursive listings walk the key space.
type ListStrategy string

const (
	// ListAuto uses ListFlat unless the backend is delimiter-only.
	ListAuto ListStrategy = "auto"

	// ListFlat issues one delimiter-less listing and synthesizes the
	// intermediate directories.
	ListFlat ListStrategy = "flat"

	// ListPrefixQueue lists each discovered common prefix in turn from a
	// pending-prefix queue.
	ListPrefixQueue ListStrategy = "prefix"
)

// ParseListStrategy accepts "auto", "flat" or "prefix". Empty means auto.
func ParseListStrategy(s string) (ListStrategy, error) {
	switch v := ListStrategy(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ListAuto, nil
	case ListAuto, ListFlat, ListPrefixQueue:
		return v, nil
	}
	return "", fmt.Errorf("%w: unknown list strategy %q", ErrInvalidArgument, s)
}

// ListerConfig configures a Lister.
type ListerConfig struct {
	// Strategy for recursive listings. Default: ListAuto
	Strategy ListStrategy

	// PageSize is the MaxKeys sent with every request, capped at
	// provider.MaxListKeys. Default: provider.MaxListKeys
	PageSize int

	// Limiter, when set, is waited on before every page request.
	Limiter *rate.Limiter

	// Logger receives per-page debug records. Default: no-op
	Logger *zap.Logger
}

// Lister enumerates a directory page by page.
type Lister struct {
	client   provider.Provider
	bucket   string
	prefixer PathPrefixer
	mapper   Mapper
	cfg      ListerConfig
}

// NewLister creates a Lister for bucket.
func NewLister(client provider.Provider, bucket string, prefixer PathPrefixer, cfg ListerConfig) *Lister {
	if cfg.Strategy == "" {
		cfg.Strategy = ListAuto
	}
	if cfg.PageSize <= 0 || cfg.PageSize > provider.MaxListKeys {
		cfg.PageSize = provider.MaxListKeys
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Lister{
		client:   client,
		bucket:   bucket,
		prefixer: prefixer,
		mapper:   NewMapper(prefixer),
		cfg:      cfg,
	}
}

// List returns the entries of dir. The sequence is lazy: pages are fetched
// as the caller iterates, and breaking out stops further requests.
//
// A backend failure is yielded once, translated, with a nil Attributes, and
// ends the sequence. A missing directory yields nothing.
func (l *Lister) List(ctx context.Context, dir string, recursive bool) iter.Seq2[Attributes, error] {
	return func(yield func(Attributes, error) bool) {
		dir = normalizeDir(dir)
		w := &walk{
			Lister: l,
			ctx:    ctx,
			yield:  yield,
			seen:   make(map[string]struct{}),
		}

		var err error
		switch {
		case !recursive:
			err = w.delimited(l.prefixer.PrefixDirectoryPath(dir), nil)
		case l.flat():
			err = w.flat(l.prefixer.PrefixDirectoryPath(dir))
		default:
			err = w.prefixQueue(l.prefixer.PrefixDirectoryPath(dir))
		}
		if err != nil && !errors.Is(err, errStopped) {
			yield(nil, Translate(OpList, dir, err))
		}
	}
}

func (l *Lister) flat() bool {
	if l.cfg.Strategy == ListPrefixQueue {
		return false
	}
	return !provider.RequiresDelimiter(l.client)
}

// errStopped signals that the consumer stopped iterating.
var errStopped = errors.New("listing stopped by consumer")

// walk is the state of one List call.
type walk struct {
	*Lister
	ctx   context.Context
	yield func(Attributes, error) bool
	seen  map[string]struct{}
}

// pages requests every page under prefix, feeding NextMarker back until the
// backend returns an empty marker.
func (w *walk) pages(prefix, delimiter string, fn func(*provider.ListObjectsOutput) error) error {
	marker := ""
	for {
		if w.cfg.Limiter != nil {
			if err := w.cfg.Limiter.Wait(w.ctx); err != nil {
				if ctxErr := w.ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// The next slot lies beyond the context deadline.
				return fmt.Errorf("%w: %v", provider.ErrThrottled, err)
			}
		}

		out, err := w.client.ListObjects(w.ctx, &provider.ListObjectsInput{
			Bucket:    w.bucket,
			Prefix:    prefix,
			Delimiter: delimiter,
			Marker:    marker,
			MaxKeys:   w.cfg.PageSize,
		})
		if err != nil {
			return err
		}
		w.cfg.Logger.Debug("listed page",
			zap.String("bucket", w.bucket),
			zap.String("prefix", prefix),
			zap.String("marker", marker),
			zap.Int("objects", len(out.Contents)),
			zap.Int("prefixes", len(out.CommonPrefixes)),
		)

		if err := fn(out); err != nil {
			return err
		}
		if out.NextMarker == "" {
			return nil
		}
		marker = out.NextMarker
	}
}

// delimited lists one level under prefix. When queue is non-nil, discovered
// common prefixes are appended to it.
func (w *walk) delimited(prefix string, queue *[]string) error {
	return w.pages(prefix, provider.Delimiter, func(out *provider.ListObjectsOutput) error {
		for _, rec := range out.Contents {
			if rec.Key == prefix {
				continue
			}
			rec.Prefix = prefix
			if err := w.emitRecord(rec); err != nil {
				return err
			}
		}
		for _, cp := range out.CommonPrefixes {
			if cp == prefix {
				continue
			}
			if err := w.emitDir(w.prefixer.StripDirectoryPrefix(cp)); err != nil {
				return err
			}
			if queue != nil {
				*queue = append(*queue, cp)
			}
		}
		return nil
	})
}

func (w *walk) prefixQueue(prefix string) error {
	pending := []string{prefix}
	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		if err := w.delimited(next, &pending); err != nil {
			return err
		}
	}
	return nil
}

// flat lists everything under prefix in one delimiter-less walk. Directories
// between prefix and each key are emitted once, before the first entry
// beneath them.
func (w *walk) flat(prefix string) error {
	base := w.prefixer.StripPrefix(prefix)
	return w.pages(prefix, "", func(out *provider.ListObjectsOutput) error {
		for _, rec := range out.Contents {
			if rec.Key == prefix {
				continue
			}
			rel := w.prefixer.StripPrefix(rec.Key)
			if rest, ok := strings.CutPrefix(rel, base); ok {
				rest = strings.TrimSuffix(rest, provider.Delimiter)
				for i := 0; i < len(rest); i++ {
					// empty segments from "//" or a leading "/" name no directory
					if rest[i] != '/' || i == 0 || rest[i-1] == '/' {
						continue
					}
					if err := w.emitDir(base + rest[:i]); err != nil {
						return err
					}
				}
			}
			rec.Prefix = prefix
			if err := w.emitRecord(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// keys calls fn with every raw key under prefix, directory markers
// included. It follows the same strategy as a recursive listing, so a
// delimiter-only backend is walked one level at a time.
func (w *walk) keys(prefix string, fn func(key string)) error {
	collect := func(out *provider.ListObjectsOutput) {
		for _, rec := range out.Contents {
			fn(rec.Key)
		}
	}
	if w.Lister.flat() {
		return w.pages(prefix, "", func(out *provider.ListObjectsOutput) error {
			collect(out)
			return nil
		})
	}

	pending := []string{prefix}
	for len(pending) > 0 {
		next := pending[0]
		pending = pending[1:]
		err := w.pages(next, provider.Delimiter, func(out *provider.ListObjectsOutput) error {
			collect(out)
			for _, cp := range out.CommonPrefixes {
				if cp != next {
					pending = append(pending, cp)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) emitRecord(rec provider.ObjectRecord) error {
	attrs := w.mapper.Map(rec)
	if attrs.IsDir() {
		return w.emitDir(attrs.EntryPath())
	}
	if !w.yield(attrs, nil) {
		return errStopped
	}
	return nil
}

func (w *walk) emitDir(p string) error {
	if _, ok := w.seen[p]; ok {
		return nil
	}
	w.seen[p] = struct{}{}
	if !w.yield(&DirectoryAttributes{Path: p}, nil) {
		return errStopped
	}
	return nil
}
