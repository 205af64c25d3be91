// Package event defines the two disjoint event families: stream events
// yielded to the consumer, and observability events delivered to
// sinks/the recorder. Both are modeled as tagged variants — a small
// struct with a discriminant field — rather than an interface hierarchy,
// so callers can switch on .Type without type assertions.
package event

import (
	"time"

	"github.com/sanix-darker/streamkernel/internal/kernelid"
)

// StreamType discriminates the stream-event family.
type StreamType string

const (
	StreamToken    StreamType = "token"
	StreamComplete StreamType = "complete"
	StreamToolCall StreamType = "tool_call"
	StreamData     StreamType = "data"
	StreamProgress StreamType = "progress"
	StreamError    StreamType = "error"
)

// DataContentType enumerates the payload kinds a Data stream event may carry.
type DataContentType string

const (
	DataImage DataContentType = "image"
	DataAudio DataContentType = "audio"
	DataVideo DataContentType = "video"
	DataFile  DataContentType = "file"
)

// Usage is the token accounting surfaced on the terminal Complete stream
// event.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Stream is one event in the consumer-facing stream. Only the fields
// relevant to Type are populated; the rest are zero.
type Stream struct {
	Type StreamType
	TS   time.Time

	// Token
	Value string

	// Complete
	Usage *Usage

	// ToolCall
	ToolName string
	ToolID   string
	ToolArgs map[string]interface{}

	// Data
	ContentType DataContentType
	MIME        string
	URL         string
	Bytes       []byte
	Metadata    map[string]interface{}

	// Progress
	Percent float64
	Message string

	// Error
	ErrKind     string
	ErrMessage  string
	Recoverable bool
}

// Token builds a Token stream event.
func Token(value string, ts time.Time) Stream {
	return Stream{Type: StreamToken, Value: value, TS: ts}
}

// Complete builds a Complete stream event.
func Complete(ts time.Time, usage *Usage) Stream {
	return Stream{Type: StreamComplete, TS: ts, Usage: usage}
}

// ToolCall builds a ToolCall stream event.
func ToolCall(name, id string, args map[string]interface{}, ts time.Time) Stream {
	return Stream{Type: StreamToolCall, ToolName: name, ToolID: id, ToolArgs: args, TS: ts}
}

// Data builds a Data stream event.
func Data(contentType DataContentType, mime, url string, bytes []byte, metadata map[string]interface{}, ts time.Time) Stream {
	return Stream{Type: StreamData, ContentType: contentType, MIME: mime, URL: url, Bytes: bytes, Metadata: metadata, TS: ts}
}

// Progress builds a Progress stream event.
func Progress(percent float64, message string, ts time.Time) Stream {
	return Stream{Type: StreamProgress, Percent: percent, Message: message, TS: ts}
}

// ErrorEvent builds an Error stream event.
func ErrorEvent(kind, message string, recoverable bool, ts time.Time) Stream {
	return Stream{Type: StreamError, ErrKind: kind, ErrMessage: message, Recoverable: recoverable, TS: ts}
}

// ObsType discriminates the observability-event family.
type ObsType string

const (
	SessionStart        ObsType = "SESSION_START"
	AdapterDetected     ObsType = "ADAPTER_DETECTED"
	StreamStart         ObsType = "STREAM_START"
	FirstToken          ObsType = "FIRST_TOKEN"
	CheckpointSaved     ObsType = "CHECKPOINT_SAVED"
	GuardrailPhaseStart ObsType = "GUARDRAIL_PHASE_START"
	GuardrailPhaseEnd   ObsType = "GUARDRAIL_PHASE_END"
	GuardrailViolation  ObsType = "GUARDRAIL_VIOLATION"
	RetryScheduled      ObsType = "RETRY_SCHEDULED"
	RetryAttempt        ObsType = "RETRY_ATTEMPT"
	Fallback            ObsType = "FALLBACK"
	TimeoutStart        ObsType = "TIMEOUT_START"
	TimeoutFired        ObsType = "TIMEOUT_FIRED"
	NetworkError        ObsType = "NETWORK_ERROR"
	Continuation        ObsType = "CONTINUATION"
	DriftDetected       ObsType = "DRIFT_DETECTED"
	Complete            ObsType = "COMPLETE"
	Failed              ObsType = "FAILED"
)

// Obs is one observability event. Every Obs carries the common base
// {type, ts, streamId, context} plus a free-form Data payload for the
// type-specific fields (retry reason, fallback index, violation, ...).
// A map keeps the type stable while letting each call site attach exactly
// the fields its ObsType needs, a shallow-payload shape that keeps
// provider-specific response extras free-form without widening the
// struct.
type Obs struct {
	Type     ObsType
	TS       time.Time
	StreamID kernelid.StreamID
	Context  interface{}
	Data     map[string]interface{}
}

// NewObs builds an observability event with the given type and payload.
func NewObs(typ ObsType, streamID kernelid.StreamID, ts time.Time, ctx interface{}, data map[string]interface{}) Obs {
	return Obs{Type: typ, TS: ts, StreamID: streamID, Context: ctx, Data: data}
}

// IsTerminal reports whether typ is one of the two terminal observability
// types; exactly one fires per session.
func (t ObsType) IsTerminal() bool {
	return t == Complete || t == Failed
}
