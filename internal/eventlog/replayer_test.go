package eventlog

import (
	"context"
	"testing"

	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/sanix-darker/streamkernel/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOptions() orchestrator.Options {
	return orchestrator.Options{Adapter: "mock"}
}

func seedSession(t *testing.T, store Store, streamID kernelid.StreamID) {
	t.Helper()
	ctx := context.Background()
	rec := NewRecorder(store, streamID)
	rec.RecordStart(seedOptions())
	rec.RecordToken("The", 1)
	rec.RecordToken(" quick", 2)
	rec.RecordCheckpoint(2, "The quick")
	rec.RecordToken(" fox", 3)
	rec.RecordComplete("The quick fox", 3)
	_ = ctx
}

func TestReplayer_ReplayToStateFoldsFullSession(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-1")
	seedSession(t, store, streamID)

	replayer := NewReplayer(store)
	state, err := replayer.ReplayToState(context.Background(), streamID)
	require.NoError(t, err)

	assert.Equal(t, "The quick fox", state.Content)
	assert.Equal(t, 3, state.TokenCount)
	assert.True(t, state.Completed)
	require.NotNil(t, state.Checkpoint)
	assert.Equal(t, 2, state.Checkpoint.TokenIndex)
}

func TestReplayer_ReplayTokensConcatenatesToContent(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-2")
	seedSession(t, store, streamID)

	replayer := NewReplayer(store)
	tokens, err := replayer.ReplayTokens(context.Background(), streamID)
	require.NoError(t, err)

	joined := ""
	for _, tok := range tokens {
		joined += tok
	}
	assert.Equal(t, "The quick fox", joined)
}

func TestReplayer_IncompleteSessionReplaysToPartialState(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-3")
	rec := NewRecorder(store, streamID)
	rec.RecordStart(seedOptions())
	rec.RecordToken("partial", 1)

	replayer := NewReplayer(store)
	state, err := replayer.ReplayToState(context.Background(), streamID)
	require.NoError(t, err)
	assert.False(t, state.Completed)
	assert.Equal(t, "partial", state.Content)
}

func TestReplayer_ReplayRespectsSeqBounds(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-4")
	seedSession(t, store, streamID)

	replayer := NewReplayer(store)
	from := int64(2)
	to := int64(3)
	events, err := replayer.Replay(context.Background(), streamID, &from, &to)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].Seq)
	assert.Equal(t, int64(3), events[1].Seq)
}

func TestCheckIntegrity_CleanSessionHasNoIssues(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-5")
	seedSession(t, store, streamID)

	events, err := store.GetEvents(context.Background(), streamID)
	require.NoError(t, err)
	report := CheckIntegrity(events)
	assert.True(t, report.Clean())
}

func TestCheckIntegrity_MissingStartIsReported(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-6")
	rec := NewRecorder(store, streamID)
	rec.RecordToken("x", 1)

	events, err := store.GetEvents(context.Background(), streamID)
	require.NoError(t, err)
	report := CheckIntegrity(events)
	require.False(t, report.Clean())
	assert.Contains(t, report.Issues[0], "SESSION_START")
}

func TestCheckIntegrity_NonMonotonicTokenIndexIsReported(t *testing.T) {
	store := NewMemStore()
	streamID := kernelid.StreamID("replay-7")
	rec := NewRecorder(store, streamID)
	rec.RecordStart(seedOptions())
	rec.RecordToken("a", 2)
	rec.RecordToken("b", 1)

	events, err := store.GetEvents(context.Background(), streamID)
	require.NoError(t, err)
	report := CheckIntegrity(events)
	require.False(t, report.Clean())
	found := false
	for _, issue := range report.Issues {
		if issue == "token index not monotonic: 1 after 2" {
			found = true
		}
	}
	assert.True(t, found)
}
