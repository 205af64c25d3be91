package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/adapter"
	"github.com/sanix-darker/streamkernel/internal/adapter/mockadapter"
	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/guardrail"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer"
	"github.com/sanix-darker/streamkernel/internal/producer/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fatalOnBadWord struct{}

func (fatalOnBadWord) Name() string { return "fatal-on-bad-word" }

func (fatalOnBadWord) Check(ctx guardrail.Context) []guardrail.Violation {
	if len(ctx.Content) >= 3 && ctx.Content[:3] == "bad" {
		return []guardrail.Violation{{Severity: guardrail.SeverityFatal, Message: "forbidden content"}}
	}
	return nil
}

func freshRegistry() *adapter.Registry {
	r := adapter.NewRegistry()
	_ = r.Register(mockadapter.New())
	return r
}

func drain(events <-chan event.Stream) []event.Stream {
	var out []event.Stream
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

// Scenario 1: Primary OK.
func TestRun_PrimaryOK(t *testing.T) {
	opts := Options{
		Stream:   mock.Factory(mock.Script{Tokens: []string{"He", "llo", " ", "Wo", "rld"}}),
		Registry: freshRegistry(),
	}

	events, resultCh := Run(context.Background(), opts)
	drain(events)
	result := <-resultCh

	require.NoError(t, result.Err)
	assert.Equal(t, "Hello World", result.Content)
	assert.Equal(t, 5, result.TokenCount)
	assert.Equal(t, 0, result.FallbackIndex)
	assert.True(t, result.Completed)
}

// Scenario 3: All fallbacks fail.
func TestRun_AllFallbacksFail(t *testing.T) {
	failScript := mock.Script{Tokens: []string{"x"}, FinalErr: kernelerr.New(kernelerr.ServerError, "boom")}
	opts := Options{
		Stream:           mock.Factory(failScript),
		FallbackStreams:  []producer.Factory{mock.Factory(failScript), mock.Factory(failScript)},
		Registry:         freshRegistry(),
		Retry: RetryPolicy{
			Attempts: 1,
			RetryOn:  map[kernelerr.Kind]bool{kernelerr.ServerError: true},
			Backoff:  BackoffFixed, BaseDelay: time.Millisecond,
		},
	}

	events, resultCh := Run(context.Background(), opts)
	drain(events)
	result := <-resultCh

	require.Error(t, result.Err)
	assert.Equal(t, 2, result.FallbackIndex)
}

func TestRun_ZeroTokensTriggersRetryThenSucceeds(t *testing.T) {
	opts := Options{
		Stream: mock.Sequence(
			mock.Script{Tokens: nil},
			mock.Script{Tokens: []string{"hi", " ", "there"}},
		),
		Registry: freshRegistry(),
		DetectZeroTokens: true,
		Retry: RetryPolicy{
			Attempts: 2,
			RetryOn:  map[kernelerr.Kind]bool{kernelerr.ZeroTokens: true},
			Backoff:  BackoffFixed, BaseDelay: time.Millisecond,
		},
	}

	events, resultCh := Run(context.Background(), opts)
	drain(events)
	result := <-resultCh

	require.NoError(t, result.Err)
	assert.Equal(t, "hi there", result.Content)
}

func TestRun_CancelledBeforeAnyTokenYieldsFailedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{
		Stream:   mock.Factory(mock.Script{Tokens: []string{"a"}, Delay: 10 * time.Millisecond}),
		Registry: freshRegistry(),
	}

	events, resultCh := Run(ctx, opts)
	got := drain(events)
	result := <-resultCh

	require.Error(t, result.Err)
	assert.Empty(t, got)
}

func TestRun_ContinuationResumesFromCheckpoint(t *testing.T) {
	firstErr := kernelerr.New(kernelerr.NetworkError, "dropped")
	opts := Options{
		Stream: mock.Factory(mock.Script{
			Tokens: []string{"The", " ", "quick", " ", "brown"}, FinalErr: firstErr,
		}),
		Registry:                       freshRegistry(),
		ContinueFromLastKnownGoodToken: true,
		Checkpoints:                    CheckpointConfig{Interval: 2},
		BuildContinuationPrompt: func(cp Checkpoint) interface{} {
			return "continue from: " + cp.Content
		},
		ContinuationStream: func(input interface{}) producer.Factory {
			return mock.Factory(mock.Script{Tokens: []string{" fox"}})
		},
		Retry: RetryPolicy{
			Attempts: 2,
			RetryOn:  map[kernelerr.Kind]bool{kernelerr.NetworkError: true},
			Backoff:  BackoffFixed, BaseDelay: time.Millisecond,
		},
	}

	events, resultCh := Run(context.Background(), opts)
	drain(events)
	result := <-resultCh

	require.NoError(t, result.Err)
	assert.Equal(t, "The quick brown fox", result.Content)
	assert.True(t, result.Telemetry.ContinuationUsed)
}

func TestRun_FatalGuardrailAbortsImmediately(t *testing.T) {
	opts := Options{
		Stream:   mock.Factory(mock.Script{Tokens: []string{"bad", "word"}}),
		Registry: freshRegistry(),
		Guardrails: []guardrail.Rule{fatalOnBadWord{}},
	}

	events, resultCh := Run(context.Background(), opts)
	drain(events)
	result := <-resultCh

	require.Error(t, result.Err)
}
