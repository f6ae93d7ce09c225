// Package id provides identifiers for pipeline runs and exchange requests.
//
// Run identifiers are prefixed ULIDs so that trace files and logs from
// successive runs sort by start time. Exchange request identifiers are
// random UUIDs carried to the remote service for correlation.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// RunID identifies one pipeline run
type RunID string

// RequestID identifies one exchange round trip
type RequestID string

const (
	RunPrefix     = "run"
	RequestPrefix = "xchg"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRunID generates a new run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

// NewRequestID generates a new exchange request ID
func NewRequestID() RequestID {
	return RequestID(RequestPrefix + "_" + uuid.NewString())
}

func (id RunID) String() string     { return string(id) }
func (id RequestID) String() string { return string(id) }

// Started extracts the start time embedded in a run ID.
func (id RunID) Started() (time.Time, error) {
	raw, ok := strings.CutPrefix(string(id), RunPrefix+"_")
	if !ok {
		return time.Time{}, fmt.Errorf("run id %q: missing %s prefix", id, RunPrefix)
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("run id %q: %w", id, err)
	}
	return ulid.Time(parsed.Time()), nil
}

// Valid reports whether a request ID carries a well-formed UUID.
func (id RequestID) Valid() bool {
	raw, ok := strings.CutPrefix(string(id), RequestPrefix+"_")
	if !ok {
		return false
	}
	_, err := uuid.Parse(raw)
	return err == nil
}
