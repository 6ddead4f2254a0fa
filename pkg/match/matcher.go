// Package match filters adapter listings with doublestar globs and
// simple size and modification-time predicates.
package match

import (
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher evaluates include and exclude patterns against adapter paths.
//
// A path matches when it matches at least one include pattern (or there
// are none) and no exclude pattern. Hidden paths, those with a segment
// starting with '.', are skipped unless IncludeHidden is set.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes      []string
	excludes      []string
	includeHidden bool
}

// Config configures a Matcher.
type Config struct {
	// Includes are glob patterns a path must match (at least one). Empty
	// means every path is included.
	Includes []string

	// Excludes are glob patterns a path must not match (any).
	Excludes []string

	// IncludeHidden controls whether hidden paths are matched.
	IncludeHidden bool
}

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// New compiles a Matcher. Patterns are normalized with NormalizePattern.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}
	return &Matcher{
		includes:      includes,
		excludes:      excludes,
		includeHidden: cfg.IncludeHidden,
	}, nil
}

func compile(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		normalized := NormalizePattern(p)
		if !doublestar.ValidatePattern(normalized) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		out = append(out, normalized)
	}
	return out, nil
}

// Match reports whether p passes the configured patterns.
func (m *Matcher) Match(p string) bool {
	if !m.includeHidden && IsHidden(p) {
		return false
	}

	if len(m.includes) > 0 {
		matched := false
		for _, inc := range m.includes {
			if doublestar.MatchUnvalidated(inc, p) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, exc := range m.excludes {
		if doublestar.MatchUnvalidated(exc, p) {
			return false
		}
	}
	return true
}

// Root returns the deepest directory shared by the static part of every
// include pattern, or "" when a full listing is needed.
//
//	["images/2024/**/*.png"]            → "images/2024"
//	["images/a/*", "images/b/*.jpg"]    → "images"
//	["**/*.json"]                       → ""
func (m *Matcher) Root() string {
	if len(m.includes) == 0 {
		return ""
	}
	root := staticDir(m.includes[0])
	for _, inc := range m.includes[1:] {
		root = commonDir(root, staticDir(inc))
		if root == "" {
			break
		}
	}
	return root
}

// IncludePatterns returns the normalized include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the normalized exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

// NormalizePattern converts unescaped backslashes to forward slashes and
// drops leading slashes, so Windows-style and rooted patterns line up with
// adapter paths. A backslash followed by a glob metacharacter is an escape
// and is kept, so a Windows separator in front of "*" must be written as "/".
//
//	`images\2024\logs`  → "images/2024/logs"
//	`images\2024\*.png` → `images/2024\*.png`
//	`/images/**`        → "images/**"
//	`data/file\*.txt`   → `data/file\*.txt`
func NormalizePattern(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' {
			if i+1 < len(pattern) && strings.IndexByte(globEscapable, pattern[i+1]) >= 0 {
				b.WriteByte(c)
				b.WriteByte(pattern[i+1])
				i++
				continue
			}
			b.WriteByte('/')
			continue
		}
		b.WriteByte(c)
	}
	return strings.TrimLeft(b.String(), "/")
}

// IsHidden reports whether any segment of p starts with a dot.
func IsHidden(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// IsGlobPattern reports whether pattern contains an unescaped metacharacter.
func IsGlobPattern(pattern string) bool {
	return firstMeta(pattern) != -1
}

const globEscapable = `*?[]{}\`

// staticDir returns the directory part of pattern before its first
// unescaped metacharacter, with escapes removed. A pattern without
// metacharacters names a file, so its parent is returned.
func staticDir(pattern string) string {
	static := pattern
	if i := firstMeta(pattern); i >= 0 {
		static = pattern[:i]
	}
	j := strings.LastIndexByte(static, '/')
	if j < 0 {
		return ""
	}
	return unescape(static[:j])
}

func commonDir(a, b string) string {
	as, bs := strings.Split(a, "/"), strings.Split(b, "/")
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	return strings.Join(as[:n], "/")
}

func firstMeta(pattern string) int {
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case '*', '?', '[', '{':
			return i
		}
	}
	return -1
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
