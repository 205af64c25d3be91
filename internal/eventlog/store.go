// Package eventlog persists an append-only log of observability and token
// events per stream, and reconstructs session state deterministically from
// it. Store is the storage contract; Recorder writes to it from a running
// orchestrator session; Replayer reads it back.
package eventlog

import (
	"context"
	"sync"
	"time"

	"github.com/sanix-darker/streamkernel/internal/kernelid"
)

// EventType discriminates a RecordedEvent. Most values mirror
// event.ObsType's wire strings; TypeToken is added for the token content
// the orchestrator's Sink interface never sees (tokens travel on the
// separate consumer-facing event channel, not the observability one).
type EventType string

const (
	TypeStart            EventType = "SESSION_START"
	TypeToken            EventType = "TOKEN"
	TypeCheckpoint       EventType = "CHECKPOINT_SAVED"
	TypeComplete         EventType = "COMPLETE"
	TypeError            EventType = "NETWORK_ERROR"
	TypeRetry            EventType = "RETRY_SCHEDULED"
	TypeFallback         EventType = "FALLBACK"
	TypeContinuation     EventType = "CONTINUATION"
	TypeGuardrail        EventType = "GUARDRAIL_VIOLATION"
	TypeGuardrailSummary EventType = "GUARDRAIL_PHASE_RESULT"
	TypeFailed           EventType = "FAILED"
)

// RecordedEvent is one entry in a stream's append-only log. Seq is
// assigned by the Store and is strictly increasing per StreamID; a Store
// implementation must never reorder or renumber existing entries.
type RecordedEvent struct {
	Seq      int64
	StreamID kernelid.StreamID
	Type     EventType
	TS       time.Time
	Data     map[string]interface{}
}

// Store is the append-only log contract. Implementations may be
// in-memory, file-backed, or remote.
type Store interface {
	// Append assigns the next seq for streamID and persists evt,
	// returning the persisted copy (with Seq populated).
	Append(ctx context.Context, streamID kernelid.StreamID, evt RecordedEvent) (RecordedEvent, error)

	// GetEvents returns every event recorded for streamID, in seq order.
	GetEvents(ctx context.Context, streamID kernelid.StreamID) ([]RecordedEvent, error)

	// ListStreams returns every streamID with at least one recorded event.
	ListStreams(ctx context.Context) ([]kernelid.StreamID, error)
}

// MemStore is an in-memory Store, safe for concurrent use. Suitable for
// tests and for short-lived processes that don't need durability.
type MemStore struct {
	mu     sync.Mutex
	events map[kernelid.StreamID][]RecordedEvent
	order  []kernelid.StreamID
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{events: make(map[kernelid.StreamID][]RecordedEvent)}
}

func (m *MemStore) Append(_ context.Context, streamID kernelid.StreamID, evt RecordedEvent) (RecordedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.events[streamID]
	if !ok {
		m.order = append(m.order, streamID)
	}
	evt.StreamID = streamID
	evt.Seq = int64(len(existing)) + 1
	m.events[streamID] = append(existing, evt)
	return evt, nil
}

func (m *MemStore) GetEvents(_ context.Context, streamID kernelid.StreamID) ([]RecordedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.events[streamID]
	out := make([]RecordedEvent, len(src))
	copy(out, src)
	return out, nil
}

func (m *MemStore) ListStreams(_ context.Context) ([]kernelid.StreamID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]kernelid.StreamID, len(m.order))
	copy(out, m.order)
	return out, nil
}
