package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "no patterns", cfg: Config{}},
		{name: "valid single include", cfg: Config{Includes: []string{"images/**"}}},
		{name: "valid with excludes", cfg: Config{Includes: []string{"**"}, Excludes: []string{"**/_tmp/**"}}},
		{name: "excludes only", cfg: Config{Excludes: []string{"*.bak"}}},
		{name: "invalid include pattern", cfg: Config{Includes: []string{"[invalid"}}, wantErr: true},
		{name: "invalid exclude pattern", cfg: Config{Excludes: []string{"[invalid"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPattern))
				var pErr *PatternError
				require.ErrorAs(t, err, &pErr)
				assert.Equal(t, "[invalid", pErr.Pattern)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m)
		})
	}
}

func TestMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		includes []string
		excludes []string
		hidden   bool
		path     string
		expected bool
	}{
		{"everything by default", nil, nil, false, "a/b/c.txt", true},
		{"simple match", []string{"**/*.txt"}, nil, false, "file.txt", true},
		{"simple no match", []string{"**/*.txt"}, nil, false, "file.json", false},
		{"nested match", []string{"images/**/*.png"}, nil, false, "images/2024/06/cat.png", true},
		{"single star stays in segment", []string{"images/*.png"}, nil, false, "images/2024/cat.png", false},
		{"directory path", []string{"images/*"}, nil, false, "images/2024", true},
		{"any include", []string{"*.jpg", "*.png"}, nil, false, "cat.png", true},
		{"brace alternation", []string{"*.{jpg,png}"}, nil, false, "cat.jpg", true},
		{"excluded", []string{"**"}, []string{"**/_tmp/**"}, false, "a/_tmp/b.txt", false},
		{"exclude without include", nil, []string{"*.bak"}, false, "notes.bak", false},
		{"hidden skipped", []string{"**"}, nil, false, "a/.git/config", false},
		{"hidden allowed", []string{"**"}, nil, true, "a/.git/config", true},
		{"windows pattern", []string{`images\x\cat.png`}, nil, false, "images/x/cat.png", true},
		{"rooted pattern", []string{"/images/*.png"}, nil, false, "images/cat.png", true},
		{"escaped star is literal", []string{`data/file\*.txt`}, nil, false, "data/file*.txt", true},
		{"escaped star no wildcard", []string{`data/file\*.txt`}, nil, false, "data/fileX.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(Config{Includes: tt.includes, Excludes: tt.excludes, IncludeHidden: tt.hidden})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m.Match(tt.path))
		})
	}
}

func TestMatcher_Root(t *testing.T) {
	tests := []struct {
		includes []string
		want     string
	}{
		{nil, ""},
		{[]string{"**/*.json"}, ""},
		{[]string{"*.json"}, ""},
		{[]string{"images/2024/**/*.png"}, "images/2024"},
		{[]string{"images/a/*", "images/b/*.jpg"}, "images"},
		{[]string{"images/**", "docs/**"}, ""},
		{[]string{"images/cat.png"}, "images"},
		{[]string{"logs/app-{a,b}/*.log"}, "logs"},
		{[]string{`data/\[raw\]/*.csv`}, "data/[raw]"},
	}

	for _, tt := range tests {
		m, err := New(Config{Includes: tt.includes})
		require.NoError(t, err)
		assert.Equal(t, tt.want, m.Root(), "includes %v", tt.includes)
	}
}

func TestMatcher_Patterns(t *testing.T) {
	m, err := New(Config{Includes: []string{`/a\*.txt`, "b/**"}, Excludes: []string{"c"}})
	require.NoError(t, err)

	assert.Equal(t, []string{`a\*.txt`, "b/**"}, m.IncludePatterns())
	assert.Equal(t, []string{"c"}, m.ExcludePatterns())

	// returned slices are copies
	m.IncludePatterns()[0] = "mutated"
	assert.Equal(t, `a\*.txt`, m.IncludePatterns()[0])
}

func TestNormalizePattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"data/2024/**", "data/2024/**"},
		{`data\2024\logs`, "data/2024/logs"},
		// a backslash before a glob metacharacter stays an escape
		{`data\2024\**`, `data/2024\**`},
		{`data/file\*.txt`, `data/file\*.txt`},
		{`data\\backup`, `data\\backup`},
		{"/data/**", "data/**"},
		{`trailing\`, "trailing/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePattern(tt.in), tt.in)
	}
}

func TestIsHidden(t *testing.T) {
	assert.False(t, IsHidden(""))
	assert.False(t, IsHidden("path/to/file.txt"))
	assert.False(t, IsHidden("path/to/file.txt."))
	assert.True(t, IsHidden(".hidden/file.txt"))
	assert.True(t, IsHidden("path/.hidden/file.txt"))
	assert.True(t, IsHidden("path/to/.gitignore"))
}

func TestIsGlobPattern(t *testing.T) {
	assert.True(t, IsGlobPattern("data/**/*.parquet"))
	assert.True(t, IsGlobPattern("file?.csv"))
	assert.False(t, IsGlobPattern(`data/file\*.txt`))
	assert.False(t, IsGlobPattern("path/to/file.txt"))
}
