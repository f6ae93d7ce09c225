package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{SIGRTMIN, "SIGRTMIN"},
		{KindCollected, "SIGRTMIN+1"},
		{SIGRTMIN + 5, "SIGRTMIN+5"},
		{Kind(10), "SIG10"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
	assert.True(t, KindCollected.Valid())
	assert.False(t, Kind(10).Valid())
}

func TestFormatRecordIsFixedWidth(t *testing.T) {
	for _, payload := range []any{1, 6, -42, int64(9223372036854775807), "ok"} {
		rec, err := FormatRecord(KindCollected, payload)
		require.NoError(t, err)
		assert.Len(t, rec.Bytes(), RecordSize)
		assert.Equal(t, byte('\n'), rec[RecordSize-1])
	}
}

func TestFormatAndParseRecord(t *testing.T) {
	rec, err := FormatRecord(KindCollected, 6)
	require.NoError(t, err)
	assert.Contains(t, rec.String(), "SIGRTMIN+1")
	assert.Contains(t, rec.String(), "VALUE:")

	kind, payload, err := ParseRecord(rec.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "SIGRTMIN+1", kind)
	assert.Equal(t, "6", payload)
}

func TestFormatRecordRejectsWidePayload(t *testing.T) {
	_, err := FormatRecord(KindCollected, "this payload is far too wide for a record")
	assert.ErrorIs(t, err, ErrPayloadTooWide)

	_, err = FormatRecord(KindCollected, "a\nb")
	assert.ErrorIs(t, err, ErrPayloadTooWide)
}

func TestParseRecordRejectsMalformed(t *testing.T) {
	_, _, err := ParseRecord([]byte("short\n"))
	assert.ErrorIs(t, err, ErrMalformed)

	rec, err := FormatRecord(KindCollected, 1)
	require.NoError(t, err)
	b := rec.Bytes()
	b[RecordSize-1] = 'x'
	_, _, err = ParseRecord(b)
	assert.ErrorIs(t, err, ErrMalformed)
}
