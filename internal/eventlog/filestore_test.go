package eventlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sanix-darker/streamkernel/internal/kernelid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_AppendAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()
	streamID := kernelid.StreamID("stream-file-1")

	_, err = store.Append(ctx, streamID, RecordedEvent{Type: TypeStart})
	require.NoError(t, err)
	_, err = store.Append(ctx, streamID, RecordedEvent{Type: TypeToken, Data: map[string]interface{}{"value": "hi", "index": 1}})
	require.NoError(t, err)

	// A fresh store instance reading the same dir must see both events
	// with seq preserved, proving durability survives process restart.
	reloaded, err := NewFileStore(dir)
	require.NoError(t, err)
	events, err := reloaded.GetEvents(ctx, streamID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq)
	assert.Equal(t, "hi", events[1].Data["value"])
}

func TestFileStore_ListStreams(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = store.Append(ctx, "alpha", RecordedEvent{Type: TypeStart})
	_, _ = store.Append(ctx, "beta", RecordedEvent{Type: TypeStart})

	streams, err := store.ListStreams(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []kernelid.StreamID{"alpha", "beta"}, streams)
}

func TestFileStore_CorruptLineErrors(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jsonl"), []byte("{not json}\n"), 0o644))

	_, err = store.GetEvents(context.Background(), "broken")
	assert.Error(t, err)
}
