package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		// Raw bytes
		{name: "raw bytes", input: "1024", want: 1024},
		{name: "zero bytes", input: "0", want: 0},
		{name: "large bytes", input: "104857600", want: 104857600},

		// Base-10 (SI) units
		{name: "KB lowercase", input: "1kb", want: 1000},
		{name: "KB uppercase", input: "1KB", want: 1000},
		{name: "MB", input: "100MB", want: 100 * 1000 * 1000},
		{name: "GB", input: "1GB", want: 1000 * 1000 * 1000},
		{name: "TB", input: "2TB", want: 2 * 1000 * 1000 * 1000 * 1000},

		// Base-2 (IEC) units
		{name: "KiB", input: "1KiB", want: 1024},
		{name: "MiB", input: "100MiB", want: 100 * 1024 * 1024},
		{name: "GiB", input: "1GiB", want: 1024 * 1024 * 1024},
		{name: "TiB", input: "1TiB", want: 1024 * 1024 * 1024 * 1024},

		// Shorthand units
		{name: "K shorthand", input: "1K", want: 1000},
		{name: "M shorthand", input: "1M", want: 1000 * 1000},
		{name: "G shorthand", input: "1G", want: 1000 * 1000 * 1000},

		// Decimal values
		{name: "decimal KB", input: "1.5KB", want: 1500},
		{name: "decimal MiB", input: "2.5MiB", want: int64(2.5 * 1024 * 1024)},

		// With spaces
		{name: "space before unit", input: "100 MB", want: 100 * 1000 * 1000},
		{name: "leading space", input: " 100MB", want: 100 * 1000 * 1000},
		{name: "trailing space", input: "100MB ", want: 100 * 1000 * 1000},

		// B suffix
		{name: "explicit bytes", input: "1024B", want: 1024},

		// Error cases
		{name: "empty string", input: "", wantErr: true},
		{name: "negative", input: "-100", wantErr: true},
		{name: "negative with unit", input: "-1KB", wantErr: true},
		{name: "overflow raw bytes", input: "9223372036854775808", wantErr: true},
		{name: "overflow with unit", input: "1000000000000000000000TB", wantErr: true},
		{name: "invalid unit", input: "100XB", wantErr: true},
		{name: "no number", input: "KB", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0B"},
		{100, "100B"},
		{1023, "1023B"},
		{1024, "1.0KiB"},
		{1536, "1.5KiB"},
		{1024 * 1024, "1.0MiB"},
		{1024 * 1024 * 1024, "1.0GiB"},
		{1024 * 1024 * 1024 * 1024, "1.0TiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatSize(tt.bytes)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "date only",
			input: "2024-01-15",
			want:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "datetime UTC",
			input: "2024-01-15T10:30:00Z",
			want:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "datetime with offset",
			input: "2024-01-15T10:30:00+05:00",
			want:  time.Date(2024, 1, 15, 5, 30, 0, 0, time.UTC), // normalized to UTC
		},
		{
			name:  "datetime with nanoseconds",
			input: "2024-01-15T10:30:00.123456789Z",
			want:  time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC),
		},
		{
			name:  "with leading space",
			input: " 2024-01-15",
			want:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "invalid format",
			input:   "01-15-2024",
			wantErr: true,
		},
		{
			name:    "garbage",
			input:   "not a date",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func file(p string, size int64, modified time.Time) *adapter.FileAttributes {
	ts := modified.Unix()
	return &adapter.FileAttributes{Path: p, Size: &size, LastModified: &ts}
}

func TestSizeFilter(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cfg     *SizeFilterConfig
		size    int64
		want    bool
		wantErr bool
	}{
		{name: "min only - pass", cfg: &SizeFilterConfig{Min: "1KB"}, size: 2000, want: true},
		{name: "min only - fail", cfg: &SizeFilterConfig{Min: "1KB"}, size: 500, want: false},
		{name: "max only - pass", cfg: &SizeFilterConfig{Max: "100KB"}, size: 50000, want: true},
		{name: "max only - fail", cfg: &SizeFilterConfig{Max: "100KB"}, size: 200000, want: false},
		{name: "range - pass", cfg: &SizeFilterConfig{Min: "1KB", Max: "100KB"}, size: 50000, want: true},
		{name: "exact min boundary", cfg: &SizeFilterConfig{Min: "1000"}, size: 1000, want: true},
		{name: "exact max boundary", cfg: &SizeFilterConfig{Max: "1000"}, size: 1000, want: true},
		{name: "zero byte filter - skip empty", cfg: &SizeFilterConfig{Min: "1"}, size: 0, want: false},
		{name: "min > max error", cfg: &SizeFilterConfig{Min: "100KB", Max: "1KB"}, wantErr: true},
		{name: "invalid min", cfg: &SizeFilterConfig{Min: "invalid"}, wantErr: true},
		{name: "invalid max", cfg: &SizeFilterConfig{Max: "xyz"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewSizeFilter(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Match(file("a.bin", tt.size, now)))
		})
	}
}

func TestSizeFilter_SkipsDirectoriesAndUnknownSizes(t *testing.T) {
	f, err := NewSizeFilter(&SizeFilterConfig{Max: "1GB"})
	require.NoError(t, err)

	assert.False(t, f.Match(&adapter.DirectoryAttributes{Path: "photos"}))
	assert.False(t, f.Match(&adapter.FileAttributes{Path: "a.bin"}))
}

func TestSizeFilter_Nil(t *testing.T) {
	f, err := NewSizeFilter(nil)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = NewSizeFilter(&SizeFilterConfig{})
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestDateFilter(t *testing.T) {
	baseTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cfg     *DateFilterConfig
		modTime time.Time
		want    bool
		wantErr bool
	}{
		{name: "after only - pass", cfg: &DateFilterConfig{After: "2024-01-01"}, modTime: baseTime, want: true},
		{name: "after only - fail", cfg: &DateFilterConfig{After: "2024-12-01"}, modTime: baseTime, want: false},
		{name: "before only - pass", cfg: &DateFilterConfig{Before: "2024-12-01"}, modTime: baseTime, want: true},
		{name: "before only - fail", cfg: &DateFilterConfig{Before: "2024-01-01"}, modTime: baseTime, want: false},
		{name: "range - pass", cfg: &DateFilterConfig{After: "2024-01-01", Before: "2024-12-31"}, modTime: baseTime, want: true},
		{name: "range - before range", cfg: &DateFilterConfig{After: "2024-07-01", Before: "2024-12-31"}, modTime: baseTime, want: false},
		{
			name:    "exact boundary - after is inclusive",
			cfg:     &DateFilterConfig{After: "2024-06-15"},
			modTime: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			want:    true,
		},
		{
			name:    "exact boundary - before is exclusive",
			cfg:     &DateFilterConfig{Before: "2024-06-15"},
			modTime: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
			want:    false,
		},
		{name: "after >= before error", cfg: &DateFilterConfig{After: "2024-12-01", Before: "2024-01-01"}, wantErr: true},
		{name: "invalid after", cfg: &DateFilterConfig{After: "not-a-date"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewDateFilter(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, tt.want, f.Match(file("a.txt", 1, tt.modTime)))
		})
	}
}

func TestDateFilter_SkipsDirectories(t *testing.T) {
	f, err := NewDateFilter(&DateFilterConfig{After: "2000-01-01"})
	require.NoError(t, err)
	assert.False(t, f.Match(&adapter.DirectoryAttributes{Path: "photos"}))
}

func TestRegexFilter(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
		wantErr bool
	}{
		{name: "simple match", pattern: `^data/.*\.json$`, path: "data/file.json", want: true},
		{name: "simple no match", pattern: `^data/.*\.json$`, path: "data/file.csv", want: false},
		{name: "partial match", pattern: "foo", path: "path/foobar/file.txt", want: true},
		{name: "case insensitive flag", pattern: "(?i)DATA", path: "data/file.json", want: true},
		{name: "invalid regex", pattern: "[invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewRegexFilter(tt.pattern)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegex)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(&adapter.FileAttributes{Path: tt.path}))
		})
	}

	f, err := NewRegexFilter("^logs$")
	require.NoError(t, err)
	assert.True(t, f.Match(&adapter.DirectoryAttributes{Path: "logs"}))
}

func TestNewFilterFromConfig(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		f, err := NewFilterFromConfig(nil)
		require.NoError(t, err)
		assert.Nil(t, f)
		assert.True(t, f.Match(&adapter.DirectoryAttributes{Path: "x"}))
		assert.Equal(t, "no filters", f.String())
	})

	t.Run("empty config", func(t *testing.T) {
		f, err := NewFilterFromConfig(&FilterConfig{Size: &SizeFilterConfig{}})
		require.NoError(t, err)
		assert.Nil(t, f)
	})

	t.Run("all filters", func(t *testing.T) {
		f, err := NewFilterFromConfig(&FilterConfig{
			Size:      &SizeFilterConfig{Min: "1KB", Max: "100MB"},
			Modified:  &DateFilterConfig{After: "2024-01-01"},
			PathRegex: `\.json$`,
		})
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Len(t, f.Filters(), 3)

		june := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
		assert.True(t, f.Match(file("data/TXN-1.json", 50000, june)))
		assert.False(t, f.Match(file("data/TXN-1.json", 100, june)))
		assert.False(t, f.Match(file("data/TXN-1.json", 50000, june.AddDate(-2, 0, 0))))
		assert.False(t, f.Match(file("data/TXN-1.csv", 50000, june)))

		s := f.String()
		assert.Contains(t, s, "size")
		assert.Contains(t, s, "modified")
		assert.Contains(t, s, "path_regex")
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := NewFilterFromConfig(&FilterConfig{Size: &SizeFilterConfig{Min: "invalid"}})
		assert.Error(t, err)
	})

	t.Run("invalid regex", func(t *testing.T) {
		_, err := NewFilterFromConfig(&FilterConfig{PathRegex: "[invalid"})
		assert.Error(t, err)
	})
}
