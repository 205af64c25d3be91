package eventlog

import (
	"context"
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
)

// Recorder writes a session's events to a Store. It satisfies
// orchestrator.Sink, so registering one in Options.Interceptors logs
// every observability event automatically; the explicit Record* methods
// below cover the two things a Sink never sees with full fidelity — the
// options a session started with, and token content (tokens travel on
// the consumer-facing event channel, not the observability one) — plus
// give callers a typed call site for each event kind instead of reaching
// into a raw Obs.Data map.
type Recorder struct {
	store    Store
	streamID kernelid.StreamID
}

// NewRecorder returns a Recorder that appends every event to store under
// streamID.
func NewRecorder(store Store, streamID kernelid.StreamID) *Recorder {
	return &Recorder{store: store, streamID: streamID}
}

// append uses a background context: Recorder's public methods mirror a
// fire-and-forget recording API with no natural caller context to thread
// through (they're invoked from orchestrator callbacks/sinks, which carry
// no ctx of their own).
func (r *Recorder) append(typ EventType, data map[string]interface{}) {
	_, _ = r.store.Append(context.Background(), r.streamID, RecordedEvent{
		Type: typ,
		TS:   time.Now(),
		Data: data,
	})
}

// RecordStart logs the options a session started with.
func (r *Recorder) RecordStart(opts orchestrator.Options) {
	r.append(TypeStart, map[string]interface{}{
		"adapter":            opts.Adapter,
		"detectZeroTokens":   opts.DetectZeroTokens,
		"continuationLLM":    opts.ContinueFromLastKnownGoodToken,
		"fallbackCount":      len(opts.FallbackStreams),
		"checkpointInterval": opts.Checkpoints.Interval,
	})
}

// RecordToken logs one emitted token and its 1-indexed position.
func (r *Recorder) RecordToken(value string, index int) {
	r.append(TypeToken, map[string]interface{}{"value": value, "index": index})
}

// RecordCheckpoint logs a checkpoint taken at the given token index.
func (r *Recorder) RecordCheckpoint(index int, content string) {
	r.append(TypeCheckpoint, map[string]interface{}{"index": index, "content": content})
}

// RecordComplete logs successful terminal completion.
func (r *Recorder) RecordComplete(content string, tokenCount int) {
	r.append(TypeComplete, map[string]interface{}{"content": content, "tokenCount": tokenCount})
}

// RecordError logs a failure and whether it was recoverable.
func (r *Recorder) RecordError(err error, recoverable bool) {
	r.append(TypeError, map[string]interface{}{"error": err.Error(), "recoverable": recoverable})
}

// RecordRetry logs a retry decision.
func (r *Recorder) RecordRetry(reason kernelerr.Kind, attempt int, willRetry bool) {
	r.append(TypeRetry, map[string]interface{}{
		"reason": string(reason), "attempt": attempt, "willRetry": willRetry,
	})
}

// RecordFallback logs a transition to the fallback producer at index.
func (r *Recorder) RecordFallback(index int) {
	r.append(TypeFallback, map[string]interface{}{"index": index})
}

// RecordContinuation logs a resume from checkpoint at tokenIndex.
func (r *Recorder) RecordContinuation(checkpoint orchestrator.Checkpoint, tokenIndex int) {
	r.append(TypeContinuation, map[string]interface{}{
		"checkpointContent": checkpoint.Content, "tokenIndex": tokenIndex,
	})
}

// RecordGuardrail logs the outcome of running the guardrail pipeline at
// the given token count.
func (r *Recorder) RecordGuardrail(atToken int, result guardrail.PhaseResult) {
	r.append(TypeGuardrailSummary, map[string]interface{}{
		"atToken": atToken, "phase": string(result.Phase),
		"violationCount": len(result.Violations), "fatal": result.Fatal, "retry": result.Retry,
	})
}

// Before implements orchestrator.Sink: it logs every observability event
// generically, keyed by its ObsType string.
func (r *Recorder) Before(obs event.Obs) {
	r.append(EventType(obs.Type), obs.Data)
}

// After implements orchestrator.Sink; the Recorder logs on Before and has
// nothing further to do on After.
func (r *Recorder) After(event.Obs) {}

// OnError implements orchestrator.Sink, logging sink-dispatch failures
// the session itself did not originate.
func (r *Recorder) OnError(err error) {
	r.append(TypeError, map[string]interface{}{"error": err.Error(), "source": "sink"})
}
