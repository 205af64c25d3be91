// Package anthropicadapter translates httpsse.RawChunk payloads shaped
// like Anthropic's Messages API streaming events into canonical stream
// events. Grounded on internal/provider/anthropic/anthropic.go's
// streamEvent type (content_block_delta/message_delta/message_stop) and
// its content-block/usage shapes.
package anthropicadapter

import (
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer/httpsse"
)

const name = "anthropic"

// recognizedTypes are the streamEvent.Type values this adapter knows how
// to translate; anything else is left to other adapters.
var recognizedTypes = map[string]bool{
	"content_block_delta": true,
	"content_block_start": true,
	"message_delta":       true,
	"message_stop":        true,
	"message_start":       true,
}

// Adapter recognizes httpsse.RawChunk values whose JSON payload has a
// "type" field from the Anthropic Messages streaming protocol.
type Adapter struct{}

// New returns an anthropicadapter.Adapter.
func New() *Adapter { return &Adapter{} }

func (*Adapter) Name() string { return name }

func (*Adapter) CanDetect() bool { return true }

func (*Adapter) Detect(chunk interface{}) bool {
	v, ok := chunk.(httpsse.RawChunk)
	if !ok {
		return false
	}
	t, _ := v.JSON["type"].(string)
	return recognizedTypes[t]
}

func (*Adapter) Wrap(chunk interface{}, ts time.Time) ([]event.Stream, error) {
	v, ok := chunk.(httpsse.RawChunk)
	if !ok {
		return nil, kernelerr.New(kernelerr.Unknown, "anthropicadapter: unrecognized chunk type")
	}

	t, _ := v.JSON["type"].(string)
	switch t {
	case "content_block_delta":
		return wrapContentBlockDelta(v.JSON, ts), nil
	case "content_block_start":
		return wrapContentBlockStart(v.JSON, ts), nil
	case "message_delta":
		return nil, nil
	case "message_stop":
		return []event.Stream{event.Complete(ts, nil)}, nil
	default:
		return nil, nil
	}
}

func wrapContentBlockDelta(payload map[string]interface{}, ts time.Time) []event.Stream {
	delta, ok := payload["delta"].(map[string]interface{})
	if !ok {
		return nil
	}
	if text, ok := delta["text"].(string); ok && text != "" {
		return []event.Stream{event.Token(text, ts)}
	}
	// partial_json deltas belong to a tool_use content block; surfaced as
	// a progress event since the full arguments aren't assembled here.
	if partial, ok := delta["partial_json"].(string); ok && partial != "" {
		return []event.Stream{event.Progress(0, partial, ts)}
	}
	return nil
}

func wrapContentBlockStart(payload map[string]interface{}, ts time.Time) []event.Stream {
	block, ok := payload["content_block"].(map[string]interface{})
	if !ok {
		return nil
	}
	if blockType, _ := block["type"].(string); blockType != "tool_use" {
		return nil
	}
	name, _ := block["name"].(string)
	id, _ := block["id"].(string)
	return []event.Stream{event.ToolCall(name, id, nil, ts)}
}
