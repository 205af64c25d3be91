package mockadapter

import (
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/producer/mock"
	"github.com/stretchr/testify/assert"
)

func TestAdapter_DetectAndWrap(t *testing.T) {
	a := New()
	assert.True(t, a.CanDetect())
	assert.True(t, a.Detect(mock.TextChunk{Value: "hi"}))
	assert.False(t, a.Detect("hi"))

	events, err := a.Wrap(mock.TextChunk{Value: "hi"}, time.Now())
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, event.StreamToken, events[0].Type)
	assert.Equal(t, "hi", events[0].Value)
}

func TestAdapter_WrapEmptyValueYieldsNothing(t *testing.T) {
	a := New()
	events, err := a.Wrap(mock.TextChunk{Value: ""}, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, events)
}

func TestAdapter_WrapWrongChunkFails(t *testing.T) {
	a := New()
	_, err := a.Wrap("not a chunk", time.Now())
	assert.Error(t, err)
}
