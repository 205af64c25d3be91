// Package mockadapter adapts producer/mock.TextChunk into canonical stream
// events, giving orchestrator and guardrail tests a real adapter to
// resolve through the registry instead of constructing event.Stream values
// by hand.
package mockadapter

import (
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer/mock"
)

const name = "mock"

// Adapter wraps mock.TextChunk values as Token stream events, emitting a
// zero-usage Complete event is the caller's responsibility at end-of-stream
// (this adapter only ever sees individual chunks, never end-of-stream).
type Adapter struct{}

// New returns a mockadapter.Adapter.
func New() *Adapter { return &Adapter{} }

func (*Adapter) Name() string { return name }

func (*Adapter) CanDetect() bool { return true }

func (*Adapter) Detect(chunk interface{}) bool {
	_, ok := chunk.(mock.TextChunk)
	return ok
}

func (*Adapter) Wrap(chunk interface{}, ts time.Time) ([]event.Stream, error) {
	tc, ok := chunk.(mock.TextChunk)
	if !ok {
		return nil, kernelerr.New(kernelerr.Unknown, "mockadapter: chunk is not a mock.TextChunk")
	}
	if tc.Value == "" {
		return nil, nil
	}
	return []event.Stream{event.Token(tc.Value, ts)}, nil
}
