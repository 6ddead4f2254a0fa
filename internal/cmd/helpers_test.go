package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/internal/config"
	"github.com/3leaps/nimbusfs/pkg/adapter"
	"github.com/3leaps/nimbusfs/pkg/provider/memory"
)

const testBucket = "test-bucket"

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// testStore wires the CLI to an in-memory bucket for the duration of a test.
type testStore struct {
	mem *memory.Provider
	fs  *adapter.Adapter
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()
	isolateConfig(t)
	t.Setenv("NIMBUSFS_BUCKET", testBucket)

	mem := memory.New(memory.WithBuckets(testBucket), memory.WithClock(func() time.Time { return testNow }))
	fs, err := adapter.New(mem, testBucket)
	require.NoError(t, err)

	orig := openAdapter
	openAdapter = func(ctx context.Context, cfg *config.Config) (*adapter.Adapter, error) {
		opts, err := adapterOptions(cfg)
		if err != nil {
			return nil, err
		}
		return adapter.New(mem, cfg.Storage.Bucket, opts...)
	}
	t.Cleanup(func() { openAdapter = orig })

	return &testStore{mem: mem, fs: fs}
}

func (s *testStore) write(t *testing.T, p, body string, opts ...adapter.WriteOption) {
	t.Helper()
	require.NoError(t, s.fs.Write(context.Background(), p, []byte(body), opts...))
}

func (s *testStore) read(t *testing.T, p string) string {
	t.Helper()
	data, err := s.fs.Read(context.Background(), p)
	require.NoError(t, err)
	return string(data)
}

// isolateConfig keeps config files and NIMBUSFS_* variables from the host
// out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Chdir(t.TempDir())
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, config.EnvPrefix+"_") {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// resetFlags restores every changed flag to its default; cobra keeps parsed
// values between executions. Map flags cannot be reset and are avoided in
// these tests.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed || f.Value.Type() == "stringToString" {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, exitCode(err), "error: %v", err)
}
