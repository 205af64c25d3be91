// Package adapter defines the contract that translates a provider-specific
// producer chunk into the canonical event.Stream taxonomy. Rather than one
// interface per concrete provider SDK, a producer's wire shape is opaque
// and an Adapter's Detect decides, at runtime, whether it knows how to
// translate a given chunk.
package adapter

import (
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
)

// Adapter translates one producer's chunk shape into stream events. Name
// identifies it for explicit selection and for error messages; Detect is
// optional (an adapter with CanDetect()==false can only be chosen by name,
// and is skipped and counted separately in resolution diagnostics); Wrap
// performs the actual per-chunk translation.
type Adapter interface {
	// Name identifies this adapter for explicit selection and diagnostics.
	Name() string

	// Detect reports whether this adapter can translate chunk. When
	// CanDetect returns false, the adapter has no auto-detection and is
	// only reachable by explicit name.
	Detect(chunk interface{}) bool

	// CanDetect reports whether Detect is meaningful for this adapter.
	// Adapters with CanDetect() == false are skipped during auto-detect
	// resolution and counted separately in the AmbiguousAdapter/NoAdapter
	// diagnostic.
	CanDetect() bool

	// Wrap translates one producer chunk into zero or more stream events.
	// ts is the time the chunk was received, used to timestamp the
	// resulting event(s).
	Wrap(chunk interface{}, ts time.Time) ([]event.Stream, error)
}

// Base implements CanDetect/Detect as a no-op, so name-only adapters (ones
// chosen purely by explicit selection) need only implement Name and Wrap.
// Embed it and override Detect/CanDetect when auto-detection applies.
type Base struct{}

func (Base) CanDetect() bool               { return false }
func (Base) Detect(chunk interface{}) bool { return false }

// Func adapts three plain functions into an Adapter without a named type.
type Func struct {
	NameFn   string
	DetectFn func(chunk interface{}) bool
	WrapFn   func(chunk interface{}, ts time.Time) ([]event.Stream, error)
}

func (f Func) Name() string { return f.NameFn }

func (f Func) CanDetect() bool { return f.DetectFn != nil }

func (f Func) Detect(chunk interface{}) bool {
	if f.DetectFn == nil {
		return false
	}
	return f.DetectFn(chunk)
}

func (f Func) Wrap(chunk interface{}, ts time.Time) ([]event.Stream, error) {
	return f.WrapFn(chunk, ts)
}
