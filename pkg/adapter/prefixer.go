package adapter

import (
	"path"
	"strings"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// PathPrefixer converts between caller-visible paths and backend keys under
// a configured root. The zero value is the identity transform.
type PathPrefixer struct {
	root string
}

// NewPathPrefixer returns a prefixer for root. Surrounding delimiters are
// trimmed and a non-empty root gets exactly one trailing delimiter.
func NewPathPrefixer(root string) PathPrefixer {
	root = strings.Trim(root, provider.Delimiter)
	if root == "" {
		return PathPrefixer{}
	}
	return PathPrefixer{root: root + provider.Delimiter}
}

// Root returns the normalized root ("" or "<root>/").
func (p PathPrefixer) Root() string { return p.root }

// PrefixPath returns the backend key for a path.
func (p PathPrefixer) PrefixPath(rel string) string {
	return p.root + rel
}

// StripPrefix returns the path for a backend key. Keys outside the root are
// returned unchanged.
func (p PathPrefixer) StripPrefix(key string) string {
	return strings.TrimPrefix(key, p.root)
}

// PrefixDirectoryPath returns the backend key prefix for a directory,
// always ending in the delimiter unless both root and dir are empty.
func (p PathPrefixer) PrefixDirectoryPath(dir string) string {
	key := p.PrefixPath(dir)
	if key == "" || strings.HasSuffix(key, provider.Delimiter) {
		return key
	}
	return key + provider.Delimiter
}

// StripDirectoryPrefix is StripPrefix without the trailing delimiter.
func (p PathPrefixer) StripDirectoryPrefix(key string) string {
	return strings.TrimSuffix(p.StripPrefix(key), provider.Delimiter)
}

// normalizePath cleans caller input: leading delimiters go, "." and ".."
// segments are resolved, and the root becomes "". A trailing delimiter
// survives so directory markers can still be addressed.
func normalizePath(p string) string {
	trailing := strings.HasSuffix(p, provider.Delimiter)
	p = strings.TrimLeft(p, provider.Delimiter)
	if p == "" {
		return ""
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" {
		return ""
	}
	if trailing {
		cleaned += provider.Delimiter
	}
	return cleaned
}

// normalizeDir cleans a directory path and drops any trailing delimiter.
func normalizeDir(p string) string {
	return strings.TrimSuffix(normalizePath(p), provider.Delimiter)
}
