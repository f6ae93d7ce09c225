package notify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkAppendsFixedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "RTtrace.log")

	sink, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, sink.Path())

	for i := 1; i <= 3; i++ {
		rec, err := FormatRecord(KindCollected, i)
		require.NoError(t, err)
		require.NoError(t, sink.Append(rec))
	}
	require.NoError(t, sink.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3*RecordSize), info.Size())
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	_, payload, err := ParseRecord(data[RecordSize : 2*RecordSize])
	require.NoError(t, err)
	assert.Equal(t, "2", payload)
}

func TestFileSinkReopenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.log")
	rec, err := FormatRecord(KindCollected, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		sink, err := OpenFile(path)
		require.NoError(t, err)
		require.NoError(t, sink.Append(rec))
		require.NoError(t, sink.Close())
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*RecordSize), info.Size())
}

func TestFileSinkClosed(t *testing.T) {
	sink, err := OpenFile(filepath.Join(t.TempDir(), "trace.log"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	rec, _ := FormatRecord(KindCollected, 1)
	assert.ErrorIs(t, sink.Append(rec), ErrSinkClosed)
}

func TestOpenFileFailure(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing", "trace.log"))
	assert.Error(t, err)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	for _, v := range []int{3, 1, 2} {
		rec, err := FormatRecord(KindCollected, v)
		require.NoError(t, err)
		require.NoError(t, sink.Append(rec))
	}
	assert.Equal(t, []string{"3", "1", "2"}, sink.Payloads())

	require.NoError(t, sink.Close())
	rec, _ := FormatRecord(KindCollected, 4)
	assert.ErrorIs(t, sink.Append(rec), ErrSinkClosed)
	assert.Len(t, sink.Records(), 3)
}

type failingSink struct{ err error }

func (f failingSink) Append(Record) error { return f.err }
func (f failingSink) Close() error        { return f.err }

func TestMultiSinkJoinsErrors(t *testing.T) {
	mem := NewMemorySink()
	boom := errors.New("boom")
	multi := MultiSink{mem, failingSink{err: boom}}

	rec, _ := FormatRecord(KindCollected, 1)
	err := multi.Append(rec)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, mem.Records(), 1)

	assert.ErrorIs(t, multi.Close(), boom)
}
