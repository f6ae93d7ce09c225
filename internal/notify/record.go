package notify

import (
	"errors"
	"fmt"
	"strings"
)

const (
	kindWidth    = 16
	payloadWidth = 23
	valueTag     = " VALUE: "

	// RecordSize is the byte length of every record, newline included.
	RecordSize = kindWidth + len(valueTag) + payloadWidth + 1
)

var (
	ErrPayloadTooWide = errors.New("payload does not fit a record")
	ErrMalformed      = errors.New("malformed record")
)

// Record is one fixed-width trace line.
type Record [RecordSize]byte

// FormatRecord renders kind and payload into a record.
func FormatRecord(kind Kind, payload any) (Record, error) {
	var r Record

	value := fmt.Sprint(payload)
	if len(value) > payloadWidth || strings.ContainsRune(value, '\n') {
		return r, fmt.Errorf("%w: %q", ErrPayloadTooWide, value)
	}

	line := fmt.Sprintf("%-*s%s%*s\n", kindWidth, kind.String(), valueTag, payloadWidth, value)
	copy(r[:], line)
	return r, nil
}

// Bytes returns the record as a slice.
func (r Record) Bytes() []byte {
	return r[:]
}

// String returns the record without its trailing newline.
func (r Record) String() string {
	return strings.TrimRight(string(r[:]), "\n")
}

// ParseRecord splits one record back into its kind name and payload text.
func ParseRecord(b []byte) (kind string, payload string, err error) {
	if len(b) != RecordSize || b[RecordSize-1] != '\n' {
		return "", "", ErrMalformed
	}
	line := string(b[:RecordSize-1])
	if line[kindWidth:kindWidth+len(valueTag)] != valueTag {
		return "", "", ErrMalformed
	}

	kind = strings.TrimSpace(line[:kindWidth])
	payload = strings.TrimSpace(line[kindWidth+len(valueTag):])
	return kind, payload, nil
}
