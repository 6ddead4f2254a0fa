package output

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/adapter"
)

func fixedNow() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }

func decode(t *testing.T, line []byte, data any) Record {
	t.Helper()
	var record Record
	require.NoError(t, json.Unmarshal(line, &record))
	if data != nil {
		require.NoError(t, json.Unmarshal(record.Data, data))
	}
	return record
}

func TestNewJSONLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	assert.NotNil(t, w)
	assert.Equal(t, "run-123", w.runID)
	assert.Equal(t, "assets", w.bucket)
}

func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestJSONLWriter_WriteEntry(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")
	w.now = fixedNow

	size := int64(1048576)
	modified := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC).Unix()
	entry := NewEntryRecord(&adapter.FileAttributes{
		Path:         "images/cat.png",
		Size:         &size,
		LastModified: &modified,
		MimeType:     "image/png",
		Extra:        map[string]any{adapter.ExtraETag: "abc123"},
	})

	require.NoError(t, w.WriteEntry(context.Background(), entry))

	var got EntryRecord
	record := decode(t, buf.Bytes(), &got)

	assert.Equal(t, TypeEntry, record.Type)
	assert.Equal(t, "run-123", record.RunID)
	assert.Equal(t, "assets", record.Bucket)
	assert.True(t, fixedNow().Equal(record.TS))

	assert.Equal(t, "images/cat.png", got.Path)
	assert.Equal(t, KindFile, got.Kind)
	require.NotNil(t, got.Size)
	assert.Equal(t, size, *got.Size)
	require.NotNil(t, got.LastModified)
	assert.Equal(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC), *got.LastModified)
	assert.Equal(t, "image/png", got.MimeType)
	assert.Equal(t, "abc123", got.Extra[adapter.ExtraETag])
}

func TestNewEntryRecord_Directory(t *testing.T) {
	rec := NewEntryRecord(&adapter.DirectoryAttributes{Path: "images/2024"})
	assert.Equal(t, &EntryRecord{Path: "images/2024", Kind: KindDirectory}, rec)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "size")
	assert.NotContains(t, string(data), "last_modified")
	assert.NotContains(t, string(data), "extra")
}

func TestJSONLWriter_WriteError(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	cause := adapter.Translate(adapter.OpList, "secret", fmt.Errorf("wrapped: %w", adapter.ErrAccessDenied))
	require.NoError(t, w.WriteError(context.Background(), NewErrorRecord("secret", cause)))

	var got ErrorRecord
	record := decode(t, buf.Bytes(), &got)

	assert.Equal(t, TypeError, record.Type)
	assert.Equal(t, ErrCodeAccessDenied, got.Code)
	assert.Equal(t, "secret", got.Path)
	assert.NotEmpty(t, got.Message)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{adapter.ErrNotFound, ErrCodeNotFound},
		{adapter.ErrAccessDenied, ErrCodeAccessDenied},
		{adapter.ErrInvalidArgument, ErrCodeInvalidArgument},
		{adapter.ErrUnavailable, ErrCodeUnavailable},
		{context.DeadlineExceeded, ErrCodeTimeout},
		{errors.New("boom"), ErrCodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), tt.err.Error())
	}
}

func TestJSONLWriter_WriteURL(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	expires := time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteURL(context.Background(), &URLRecord{
		Path:      "a.txt",
		Kind:      "temporary",
		URL:       "https://cdn.example.com/a.txt?sig=1",
		Method:    "GET",
		ExpiresAt: &expires,
	}))

	var got URLRecord
	record := decode(t, buf.Bytes(), &got)
	assert.Equal(t, TypeURL, record.Type)
	assert.Equal(t, "https://cdn.example.com/a.txt?sig=1", got.URL)
	assert.Equal(t, "GET", got.Method)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, expires.Equal(*got.ExpiresAt))
}

func TestJSONLWriter_WriteSummary(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	sum := &SummaryRecord{
		Files:         5000,
		Directories:   12,
		BytesTotal:    10737418240,
		Duration:      30 * time.Second,
		DurationHuman: "30s",
		Errors:        2,
	}

	require.NoError(t, w.WriteSummary(context.Background(), sum))

	var got SummaryRecord
	record := decode(t, buf.Bytes(), &got)

	assert.Equal(t, TypeSummary, record.Type)
	assert.Equal(t, *sum, got)
}

func TestJSONLWriter_NewlineTerminated(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	err := w.WriteEntry(context.Background(), &EntryRecord{Path: "file1.txt", Kind: KindFile})
	require.NoError(t, err)

	err = w.WriteEntry(context.Background(), &EntryRecord{Path: "file2.txt", Kind: KindFile})
	require.NoError(t, err)

	// Output should be two lines
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)

	// Each line should be valid JSON
	for _, line := range lines {
		var record Record
		err := json.Unmarshal([]byte(line), &record)
		assert.NoError(t, err)
	}
}

func TestJSONLWriter_Close(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	err := w.Close()
	require.NoError(t, err)

	// Writing after close should fail
	err = w.WriteEntry(context.Background(), &EntryRecord{Path: "file.txt", Kind: KindFile})
	assert.ErrorIs(t, err, ErrWriterClosed)
}

func TestJSONLWriter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	const numWriters = 10
	const writesPerWriter = 100

	var wg sync.WaitGroup
	wg.Add(numWriters)

	for i := 0; i < numWriters; i++ {
		go func(writerID int) {
			defer wg.Done()
			for j := 0; j < writesPerWriter; j++ {
				size := int64(writerID*writesPerWriter + j)
				_ = w.WriteEntry(context.Background(), &EntryRecord{Path: "file.txt", Kind: KindFile, Size: &size})
			}
		}(i)
	}

	wg.Wait()

	// Verify all lines are complete JSON objects (no interleaving)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, numWriters*writesPerWriter)

	for i, line := range lines {
		var record Record
		err := json.Unmarshal([]byte(line), &record)
		assert.NoError(t, err, "line %d should be valid JSON: %s", i, line)
	}
}

func TestJSONLWriter_ContextCancellation(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf, "run-123", "assets")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := w.WriteEntry(ctx, &EntryRecord{Path: "file.txt", Kind: KindFile})
	assert.ErrorIs(t, err, context.Canceled)

	// Buffer should be empty (nothing written)
	assert.Empty(t, buf.String())
}

func TestJSONLWriter_WriteFailure(t *testing.T) {
	failWriter := &failingWriter{err: errors.New("disk full")}
	w := NewJSONLWriter(failWriter, "run-123", "assets")

	err := w.WriteEntry(context.Background(), &EntryRecord{Path: "file.txt", Kind: KindFile})
	require.Error(t, err)

	var writeErr *WriteError
	assert.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "write", writeErr.Op)
}

// failingWriter is an io.Writer that always returns an error.
type failingWriter struct {
	err error
}

func (f *failingWriter) Write(p []byte) (n int, err error) {
	return 0, f.err
}

func TestJSONLWriter_ShortWrite(t *testing.T) {
	shortWriter := &shortWriteWriter{bytesPerWrite: 10}
	w := NewJSONLWriter(shortWriter, "run-123", "assets")

	err := w.WriteURL(context.Background(), &URLRecord{
		Path: "data/2024/file.parquet",
		Kind: "signed",
		URL:  "https://bucket.example.com/data/2024/file.parquet?X-Amz-Signature=abc",
	})
	require.NoError(t, err)

	// Verify complete output despite short writes
	lines := strings.Split(strings.TrimSpace(shortWriter.buf.String()), "\n")
	assert.Len(t, lines, 1)

	var record Record
	err = json.Unmarshal([]byte(lines[0]), &record)
	assert.NoError(t, err, "output should be valid JSON despite short writes")
	assert.Equal(t, TypeURL, record.Type)
}

func TestJSONLWriter_ZeroWrite(t *testing.T) {
	zeroWriter := &zeroWriteWriter{}
	w := NewJSONLWriter(zeroWriter, "run-123", "assets")

	err := w.WriteEntry(context.Background(), &EntryRecord{Path: "file.txt", Kind: KindFile})
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

// shortWriteWriter simulates an io.Writer that performs short writes.
// It writes at most bytesPerWrite bytes per call, returning nil error.
type shortWriteWriter struct {
	buf           bytes.Buffer
	bytesPerWrite int
}

func (sw *shortWriteWriter) Write(p []byte) (n int, err error) {
	toWrite := len(p)
	if toWrite > sw.bytesPerWrite {
		toWrite = sw.bytesPerWrite
	}
	return sw.buf.Write(p[:toWrite])
}

// zeroWriteWriter always returns 0 bytes written with nil error.
type zeroWriteWriter struct{}

func (zw *zeroWriteWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

func TestWriteError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &WriteError{Op: "marshal", Err: underlying}

	assert.Equal(t, "output: marshal: underlying error", err.Error())
	assert.ErrorIs(t, err, underlying)
}

func TestRecord_JSONSerialization(t *testing.T) {
	record := Record{
		Type:   TypeEntry,
		TS:     time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		RunID:  "abc123",
		Bucket: "assets",
		Data:   json.RawMessage(`{"path":"test.txt","kind":"file"}`),
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, TypeEntry, parsed["type"])
	assert.Equal(t, "abc123", parsed["run_id"])
	assert.Equal(t, "assets", parsed["bucket"])
	assert.NotNil(t, parsed["ts"])
	assert.NotNil(t, parsed["data"])
}
