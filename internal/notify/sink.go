package notify

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrSinkClosed is returned by Append once a sink has been closed.
var ErrSinkClosed = errors.New("notification sink is closed")

// Sink is an append-only destination for records.
type Sink interface {
	Append(r Record) error
	Close() error
}

// FileSink appends records to a file opened with O_APPEND.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenFile opens (creating if needed) an append-only trace file readable
// and writable by the owner only.
func OpenFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &FileSink{path: path, file: f}, nil
}

// Path returns the trace file location.
func (s *FileSink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Append writes one record. A nil sink behaves as a closed one.
func (s *FileSink) Append(r Record) error {
	if s == nil {
		return ErrSinkClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrSinkClosed
	}
	if _, err := s.file.Write(r.Bytes()); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Close syncs and closes the file. Later appends fail with ErrSinkClosed.
func (s *FileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	f := s.file
	s.file = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync trace file: %w", err)
	}
	return f.Close()
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores one record.
func (s *MemorySink) Append(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	s.records = append(s.records, r)
	return nil
}

// Close marks the sink closed.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Records returns a copy of every stored record in append order.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Payloads returns the payload text of every stored record.
func (s *MemorySink) Payloads() []string {
	records := s.Records()
	out := make([]string, 0, len(records))
	for _, r := range records {
		_, payload, err := ParseRecord(r.Bytes())
		if err != nil {
			continue
		}
		out = append(out, payload)
	}
	return out
}

// MultiSink fans every record out to several sinks.
type MultiSink []Sink

// Append writes to every sink and joins their errors.
func (m MultiSink) Append(r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
