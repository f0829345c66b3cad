// Package id provides centralized ID generation for the navigator.
//
// All identifiers are prefixed ULIDs: lexicographically sortable, unique
// across the process, and readable in logs (coord_*, scr_*, evt_*, sess_*).
// Separate string types keep coordinator, screen, and session IDs from
// being mixed up at compile time.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// CoordinatorID identifies a coordinator node instance.
type CoordinatorID string

// ScreenID identifies a presented screen handle.
type ScreenID string

// EventID identifies a routed navigation event.
type EventID string

// SessionID identifies a saved workspace session.
type SessionID string

// Prefixes used by the typed generators.
const (
	CoordinatorPrefix = "coord"
	ScreenPrefix      = "scr"
	EventPrefix       = "evt"
	SessionPrefix     = "sess"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewCoordinatorID generates a new coordinator ID.
func NewCoordinatorID() CoordinatorID {
	return CoordinatorID(Default().GenerateWithPrefix(CoordinatorPrefix))
}

// NewScreenID generates a new screen ID.
func NewScreenID() ScreenID {
	return ScreenID(Default().GenerateWithPrefix(ScreenPrefix))
}

// NewEventID generates a new event ID.
func NewEventID() EventID {
	return EventID(Default().GenerateWithPrefix(EventPrefix))
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

func (id CoordinatorID) String() string { return string(id) }
func (id ScreenID) String() string      { return string(id) }
func (id EventID) String() string       { return string(id) }
func (id SessionID) String() string     { return string(id) }

// IsValid checks that an ID string is a prefixed ULID.
func IsValid(s string) bool {
	if idx := strings.LastIndex(s, "_"); idx >= 0 {
		s = s[idx+1:]
	}
	_, err := ulid.Parse(s)
	return err == nil
}

// Timestamp extracts the creation time from a prefixed ULID.
func Timestamp(s string) (time.Time, error) {
	if idx := strings.LastIndex(s, "_"); idx >= 0 {
		s = s[idx+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
