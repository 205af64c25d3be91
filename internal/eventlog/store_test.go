package eventlog

import (
	"context"
	"testing"

	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_AppendAssignsIncreasingSeq(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	streamID := kernelid.StreamID("stream-1")

	first, err := store.Append(ctx, streamID, RecordedEvent{Type: TypeStart})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Seq)

	second, err := store.Append(ctx, streamID, RecordedEvent{Type: TypeToken})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	events, err := store.GetEvents(ctx, streamID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, TypeStart, events[0].Type)
	assert.Equal(t, TypeToken, events[1].Type)
}

func TestMemStore_SeqIsPerStream(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	_, _ = store.Append(ctx, "a", RecordedEvent{Type: TypeStart})
	first, _ := store.Append(ctx, "b", RecordedEvent{Type: TypeStart})
	assert.Equal(t, int64(1), first.Seq)
}

func TestMemStore_ListStreams(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	_, _ = store.Append(ctx, "a", RecordedEvent{Type: TypeStart})
	_, _ = store.Append(ctx, "b", RecordedEvent{Type: TypeStart})

	streams, err := store.ListStreams(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []kernelid.StreamID{"a", "b"}, streams)
}

func TestMemStore_GetEventsUnknownStreamIsEmpty(t *testing.T) {
	store := NewMemStore()
	events, err := store.GetEvents(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, events)
}
