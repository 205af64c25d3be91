package anthropicadapter

import (
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/producer/httpsse"
	"github.com/stretchr/testify/assert"
)

func TestAdapter_WrapsTextDelta(t *testing.T) {
	a := New()
	chunk := httpsse.RawChunk{JSON: map[string]interface{}{
		"type":  "content_block_delta",
		"delta": map[string]interface{}{"type": "text_delta", "text": "hi"},
	}}
	assert.True(t, a.Detect(chunk))

	events, err := a.Wrap(chunk, time.Now())
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, event.StreamToken, events[0].Type)
	assert.Equal(t, "hi", events[0].Value)
}

func TestAdapter_WrapsToolUseStart(t *testing.T) {
	a := New()
	chunk := httpsse.RawChunk{JSON: map[string]interface{}{
		"type": "content_block_start",
		"content_block": map[string]interface{}{
			"type": "tool_use", "id": "toolu_1", "name": "search",
		},
	}}
	events, err := a.Wrap(chunk, time.Now())
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, event.StreamToolCall, events[0].Type)
	assert.Equal(t, "search", events[0].ToolName)
}

func TestAdapter_WrapsMessageStopAsComplete(t *testing.T) {
	a := New()
	chunk := httpsse.RawChunk{JSON: map[string]interface{}{"type": "message_stop"}}
	events, err := a.Wrap(chunk, time.Now())
	assert.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, event.StreamComplete, events[0].Type)
}

func TestAdapter_DetectRejectsUnrelatedPayload(t *testing.T) {
	a := New()
	assert.False(t, a.Detect(httpsse.RawChunk{JSON: map[string]interface{}{"choices": []interface{}{}}}))
}
