package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

func TestPut(t *testing.T) {
	t.Run("local file", func(t *testing.T) {
		store := newTestStore(t)
		src := filepath.Join(t.TempDir(), "cat.png")
		require.NoError(t, os.WriteFile(src, []byte("meow"), 0o600))

		_, err := runCLI(t, "", "put", src, "images/cat.png", "--visibility", "public", "--storage-class", "STANDARD_IA")
		require.NoError(t, err)

		assert.Equal(t, "meow", store.read(t, "images/cat.png"))

		attrs, err := store.fs.Stat(context.Background(), "images/cat.png")
		require.NoError(t, err)
		file := attrs.(*adapter.FileAttributes)
		assert.Equal(t, "image/png", file.MimeType)
		assert.Equal(t, "STANDARD_IA", file.Extra[adapter.ExtraStorageClass])

		vis, err := store.fs.Visibility(context.Background(), "images/cat.png")
		require.NoError(t, err)
		assert.Equal(t, adapter.VisibilityPublic, vis)
	})

	t.Run("stdin", func(t *testing.T) {
		store := newTestStore(t)

		_, err := runCLI(t, "streamed body", "put", "-", "notes/today", "--content-type", "text/markdown")
		require.NoError(t, err)

		assert.Equal(t, "streamed body", store.read(t, "notes/today"))
		attrs, err := store.fs.MimeType(context.Background(), "notes/today")
		require.NoError(t, err)
		assert.Equal(t, "text/markdown", attrs.MimeType)
	})

	t.Run("missing local file", func(t *testing.T) {
		newTestStore(t)
		_, err := runCLI(t, "", "put", filepath.Join(t.TempDir(), "absent"), "x.txt")
		requireExitCode(t, err, foundry.ExitFileReadError)
	})

	t.Run("kms key without sse", func(t *testing.T) {
		newTestStore(t)
		_, err := runCLI(t, "x", "put", "-", "x.txt", "--sse-kms-key-id", "key-1")
		requireExitCode(t, err, foundry.ExitInvalidArgument)
	})

	t.Run("directory path", func(t *testing.T) {
		newTestStore(t)
		_, err := runCLI(t, "x", "put", "-", "docs/")
		requireExitCode(t, err, foundry.ExitInvalidArgument)
	})
}

func TestCat(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "a.txt", "alpha\n")
	store.write(t, "b.txt", "beta\n")

	out, err := runCLI(t, "", "cat", "a.txt", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha\nbeta\n", out)

	_, err = runCLI(t, "", "cat", "missing.txt")
	requireExitCode(t, err, foundry.ExitFileNotFound)
}

func TestStat(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "docs/readme.txt", "hello")

	t.Run("file as json", func(t *testing.T) {
		out, err := runCLI(t, "", "stat", "docs/readme.txt", "--json")
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "docs/readme.txt", got["path"])
		assert.EqualValues(t, 5, got["size"])
		assert.EqualValues(t, testNow.Unix(), got["last_modified"])
		assert.Contains(t, got["mime_type"], "text/plain")
	})

	t.Run("file as yaml", func(t *testing.T) {
		out, err := runCLI(t, "", "stat", "docs/readme.txt")
		require.NoError(t, err)
		assert.Contains(t, out, "path: docs/readme.txt\n")
		assert.Contains(t, out, "size: 5\n")
	})

	t.Run("implicit directory", func(t *testing.T) {
		out, err := runCLI(t, "", "stat", "docs", "--json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"path":"docs"}`, out)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := runCLI(t, "", "stat", "nope")
		requireExitCode(t, err, foundry.ExitFileNotFound)
	})
}

func TestRm(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "a.txt", "a")
	store.write(t, "b.txt", "b")

	_, err := runCLI(t, "", "rm", "a.txt", "missing.txt", "b.txt")
	require.NoError(t, err)
	assert.Empty(t, store.mem.Keys(testBucket))
}

func TestRmdir(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "images/cat.png", "meow")
	store.write(t, "images/thumbs/cat.png", "m")
	store.write(t, "keep.txt", "k")
	require.NoError(t, store.fs.CreateDirectory(context.Background(), "images"))

	_, err := runCLI(t, "", "rmdir", "images")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, store.mem.Keys(testBucket))

	_, err = runCLI(t, "", "rmdir", "/")
	requireExitCode(t, err, foundry.ExitInvalidArgument)
	assert.Equal(t, []string{"keep.txt"}, store.mem.Keys(testBucket))
}

func TestMkdir(t *testing.T) {
	store := newTestStore(t)

	_, err := runCLI(t, "", "mkdir", "uploads", "private/drafts", "--visibility", "private")
	require.NoError(t, err)
	assert.Equal(t, []string{"private/drafts/", "uploads/"}, store.mem.Keys(testBucket))

	vis, err := store.fs.Visibility(context.Background(), "uploads/")
	require.NoError(t, err)
	assert.Equal(t, adapter.VisibilityPrivate, vis)

	_, err = runCLI(t, "", "mkdir", "public")
	require.NoError(t, err)
	vis, err = store.fs.Visibility(context.Background(), "public/")
	require.NoError(t, err)
	assert.Equal(t, adapter.VisibilityPublic, vis)
}

func TestCpMv(t *testing.T) {
	t.Run("copy keeps source visibility", func(t *testing.T) {
		store := newTestStore(t)
		store.write(t, "src.txt", "data", adapter.WithVisibility(adapter.VisibilityPublic))

		_, err := runCLI(t, "", "cp", "src.txt", "dst.txt")
		require.NoError(t, err)

		assert.Equal(t, "data", store.read(t, "src.txt"))
		assert.Equal(t, "data", store.read(t, "dst.txt"))
		vis, err := store.fs.Visibility(context.Background(), "dst.txt")
		require.NoError(t, err)
		assert.Equal(t, adapter.VisibilityPublic, vis)
	})

	t.Run("copy with explicit visibility", func(t *testing.T) {
		store := newTestStore(t)
		store.write(t, "src.txt", "data", adapter.WithVisibility(adapter.VisibilityPublic))

		_, err := runCLI(t, "", "cp", "src.txt", "dst.txt", "--visibility", "private")
		require.NoError(t, err)

		vis, err := store.fs.Visibility(context.Background(), "dst.txt")
		require.NoError(t, err)
		assert.Equal(t, adapter.VisibilityPrivate, vis)
	})

	t.Run("move", func(t *testing.T) {
		store := newTestStore(t)
		store.write(t, "old/name.txt", "data")

		_, err := runCLI(t, "", "mv", "old/name.txt", "new/name.txt")
		require.NoError(t, err)
		assert.Equal(t, []string{"new/name.txt"}, store.mem.Keys(testBucket))
	})

	t.Run("missing source", func(t *testing.T) {
		store := newTestStore(t)
		store.write(t, "keep.txt", "k")

		_, err := runCLI(t, "", "mv", "absent.txt", "dst.txt")
		requireExitCode(t, err, foundry.ExitFileNotFound)
		assert.Equal(t, []string{"keep.txt"}, store.mem.Keys(testBucket))
	})
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "images/cat.png", "meow")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"file", []string{"exists", "images/cat.png"}, "true\n"},
		{"missing file", []string{"exists", "images/dog.png"}, "false\n"},
		{"directory as file", []string{"exists", "images"}, "false\n"},
		{"implicit directory", []string{"exists", "--dir", "images"}, "true\n"},
		{"missing directory", []string{"exists", "-d", "videos"}, "false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	t.Run("quiet", func(t *testing.T) {
		out, err := runCLI(t, "", "exists", "-q", "images/cat.png")
		require.NoError(t, err)
		assert.Empty(t, out)

		_, err = runCLI(t, "", "exists", "-q", "images/dog.png")
		requireExitCode(t, err, foundry.ExitFileNotFound)
	})
}

func TestVisibilityCommands(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "report.pdf", "%PDF")

	out, err := runCLI(t, "", "visibility", "get", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "private\n", out)

	_, err = runCLI(t, "", "visibility", "set", "report.pdf", "public")
	require.NoError(t, err)

	out, err = runCLI(t, "", "visibility", "get", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "public\n", out)

	_, err = runCLI(t, "", "visibility", "set", "report.pdf", "secret")
	requireExitCode(t, err, foundry.ExitInvalidArgument)

	_, err = runCLI(t, "", "visibility", "get", "missing.pdf")
	requireExitCode(t, err, foundry.ExitFileNotFound)
}

func TestChecksum(t *testing.T) {
	store := newTestStore(t)
	store.write(t, "hello.txt", "hello")

	tests := []struct {
		algo string
		want string
	}{
		{"", "5d41402abc4b2a76b9719d911017c592"},
		{"md5", "5d41402abc4b2a76b9719d911017c592"},
		{"sha256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
		{"SHA1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
	}

	for _, tt := range tests {
		t.Run("algo "+tt.algo, func(t *testing.T) {
			args := []string{"checksum", "hello.txt"}
			if tt.algo != "" {
				args = append(args, "--algo", tt.algo)
			}
			out, err := runCLI(t, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"  hello.txt\n", out)
		})
	}

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := runCLI(t, "", "checksum", "hello.txt", "-a", "crc99")
		requireExitCode(t, err, foundry.ExitInvalidArgument)
	})
}
