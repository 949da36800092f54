// Package id provides centralized ID generation for the job service.
//
// Identifiers are prefixed ULIDs:
//   - Lexicographic sortability: newer jobs and applications sort last
//   - Prefixed types: job_*, app_*, span_* are readable in logs
//   - Type safety: separate types prevent mixing job and application IDs
//
// Trace and request identifiers arriving from other services are opaque
// strings and are not required to be ULIDs.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// JobID identifies a job posting
type JobID string

// ApplicationID identifies a candidate's application to a job
type ApplicationID string

// SpanID identifies one timed unit of work
type SpanID string

// ============================================================================
// ID Prefixes
// ============================================================================

const (
	JobPrefix         = "job"
	ApplicationPrefix = "app"
	SpanPrefix        = "span"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
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
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source
// Useful for testing with deterministic entropy
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewJobID generates a new job ID
func NewJobID() JobID {
	return JobID(Default().GenerateWithPrefix(JobPrefix))
}

// NewApplicationID generates a new application ID
func NewApplicationID() ApplicationID {
	return ApplicationID(Default().GenerateWithPrefix(ApplicationPrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewRequestID generates an opaque request/correlation identifier for
// requests that arrive without one.
func NewRequestID() string {
	return uuid.NewString()
}

func (id JobID) String() string         { return string(id) }
func (id ApplicationID) String() string { return string(id) }
func (id SpanID) String() string        { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
