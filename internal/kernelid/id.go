// Package kernelid generates the time-sortable session identifiers used
// throughout the kernel (StreamSession.id, Attempt correlation, recorded
// event streamId).
//
// The wire shape is a standard UUIDv7: the top 48 bits are a Unix
// millisecond timestamp, followed by a version nibble of 7, a 12-bit
// sub-millisecond/random field, a variant nibble of 8/9/a/b, and 62 random
// bits. google/uuid's NewV7 already produces exactly this layout; this
// package wraps it so the rest of the kernel never imports google/uuid
// directly and so tests can substitute a deterministic generator.
package kernelid

import (
	"sync"

	"github.com/google/uuid"
)

// StreamID is a 128-bit time-sortable identifier, formatted as
// xxxxxxxx-xxxx-7xxx-yxxx-xxxxxxxxxxxx.
type StreamID string

// Generator produces StreamIDs. The zero value is ready to use.
//
// google/uuid's V7 generator is already monotonic within a process (it
// increments the random tail when called twice within the same
// millisecond), but we additionally serialize generation with a mutex so
// concurrent sessions never observe a torn read of the underlying PRNG
// state on platforms where that matters.
type Generator struct {
	mu sync.Mutex
}

// Default is the package-level generator used by New().
var Default = &Generator{}

// New returns a fresh, monotonically increasing StreamID.
func New() StreamID {
	return Default.New()
}

// New returns a fresh StreamID from this generator.
func (g *Generator) New() StreamID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the system RNG is unreadable; fall back to a
		// random v4 rather than panicking a streaming session.
		id = uuid.New()
	}
	return StreamID(id.String())
}

// Valid reports whether s parses as a well-formed UUID.
func Valid(s StreamID) bool {
	_, err := uuid.Parse(string(s))
	return err == nil
}
