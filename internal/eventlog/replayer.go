package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
)

// SessionState is the state folded from a stream's recorded events.
type SessionState struct {
	Content       string
	Checkpoint    *orchestrator.Checkpoint
	TokenCount    int
	RetryAttempts int
	FallbackIndex int
	Violations    []guardrail.Violation
	Completed     bool
	StartTs       time.Time
}

// Replayer reconstructs session state and token sequences from a Store.
type Replayer struct {
	store Store
}

// NewReplayer returns a Replayer reading from store.
func NewReplayer(store Store) *Replayer {
	return &Replayer{store: store}
}

// ReplayToState folds every event recorded for streamID into a
// SessionState. A stream with no terminal event replays to a partial
// state with Completed=false.
func (p *Replayer) ReplayToState(ctx context.Context, streamID kernelid.StreamID) (SessionState, error) {
	events, err := p.store.GetEvents(ctx, streamID)
	if err != nil {
		return SessionState{}, err
	}

	var state SessionState
	for _, evt := range events {
		switch evt.Type {
		case TypeStart:
			state.StartTs = evt.TS
		case TypeToken:
			if v, ok := evt.Data["value"].(string); ok {
				state.Content += v
			}
			state.TokenCount++
		case TypeCheckpoint:
			// The content field is only present when the recorder was
			// called explicitly with it; the generic observability event
			// only carries tokenIndex, since the checkpoint's content is
			// exactly the session's accumulated content at that token.
			content, ok := evt.Data["content"].(string)
			if !ok {
				content = state.Content
			}
			index := intFromData(evt.Data, "tokenIndex")
			if index == 0 {
				index = intFromData(evt.Data, "index")
			}
			state.Checkpoint = &orchestrator.Checkpoint{Content: content, TokenIndex: index, TS: evt.TS}
		case TypeRetry:
			state.RetryAttempts++
		case TypeFallback:
			state.FallbackIndex = intFromData(evt.Data, "index")
			if state.FallbackIndex == 0 {
				state.FallbackIndex = intFromData(evt.Data, "fallbackIndex")
			}
		case TypeGuardrail:
			rule, _ := evt.Data["rule"].(string)
			message, _ := evt.Data["message"].(string)
			severity, _ := evt.Data["severity"].(string)
			state.Violations = append(state.Violations, guardrail.Violation{
				Rule: rule, Message: message, Severity: guardrail.Severity(severity),
			})
		case TypeComplete:
			if content, ok := evt.Data["content"].(string); ok {
				state.Content = content
			}
			state.Completed = true
		case TypeFailed:
			state.Completed = false
		}
	}
	return state, nil
}

// ReplayTokens returns the tokens recorded for streamID, in insertion
// order; concatenating them reproduces ReplayToState(streamID).Content.
func (p *Replayer) ReplayTokens(ctx context.Context, streamID kernelid.StreamID) ([]string, error) {
	events, err := p.store.GetEvents(ctx, streamID)
	if err != nil {
		return nil, err
	}
	var tokens []string
	for _, evt := range events {
		if evt.Type != TypeToken {
			continue
		}
		if v, ok := evt.Data["value"].(string); ok {
			tokens = append(tokens, v)
		}
	}
	return tokens, nil
}

// Replay returns the raw events recorded for streamID with seq in
// [fromSeq, toSeq]. A nil bound is unbounded on that side.
func (p *Replayer) Replay(ctx context.Context, streamID kernelid.StreamID, fromSeq, toSeq *int64) ([]RecordedEvent, error) {
	events, err := p.store.GetEvents(ctx, streamID)
	if err != nil {
		return nil, err
	}
	var out []RecordedEvent
	for _, evt := range events {
		if fromSeq != nil && evt.Seq < *fromSeq {
			continue
		}
		if toSeq != nil && evt.Seq > *toSeq {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}

// CorruptionReport lists integrity issues found in a stream's recorded
// events: non-contiguous seq numbers, a missing or duplicated START, and
// non-monotonic token indices.
type CorruptionReport struct {
	Issues []string
}

func (r CorruptionReport) Clean() bool { return len(r.Issues) == 0 }

// CheckIntegrity verifies the invariants a consumer should check before
// trusting a replay: seq contiguity, exactly one START, and token index
// monotonicity.
func CheckIntegrity(events []RecordedEvent) CorruptionReport {
	var report CorruptionReport

	starts := 0
	var lastSeq int64
	lastTokenIndex := -1
	for i, evt := range events {
		if evt.Type == TypeStart {
			starts++
		}
		expected := lastSeq + 1
		if i > 0 && evt.Seq != expected {
			report.Issues = append(report.Issues,
				fmt.Sprintf("seq gap: expected %d, got %d", expected, evt.Seq))
		}
		lastSeq = evt.Seq

		if evt.Type == TypeToken {
			index := intFromData(evt.Data, "index")
			if index <= lastTokenIndex {
				report.Issues = append(report.Issues,
					fmt.Sprintf("token index not monotonic: %d after %d", index, lastTokenIndex))
			}
			lastTokenIndex = index
		}
	}

	if starts == 0 {
		report.Issues = append(report.Issues, "no SESSION_START event recorded")
	} else if starts > 1 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d SESSION_START events recorded, expected exactly 1", starts))
	}

	return report
}

func intFromData(data map[string]interface{}, key string) int {
	v, ok := data[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
