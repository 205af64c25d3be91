// Package openaiadapter translates httpsse.RawChunk payloads shaped like
// the OpenAI Chat Completions streaming delta format into canonical stream
// events. Request/response shapes are grounded on
// internal/provider/openai/openai.go's apiRequest/apiResponse/apiChoice
// types and its SSE decode loop.
package openaiadapter

import (
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer/httpsse"
)

const name = "openai"

// Adapter recognizes httpsse.RawChunk/Done values whose JSON payload has
// the OpenAI "choices[].delta" shape.
type Adapter struct{}

// New returns an openaiadapter.Adapter.
func New() *Adapter { return &Adapter{} }

func (*Adapter) Name() string { return name }

func (*Adapter) CanDetect() bool { return true }

func (*Adapter) Detect(chunk interface{}) bool {
	switch v := chunk.(type) {
	case httpsse.Done:
		return true
	case httpsse.RawChunk:
		choices, ok := v.JSON["choices"].([]interface{})
		return ok && len(choices) > 0
	default:
		return false
	}
}

func (*Adapter) Wrap(chunk interface{}, ts time.Time) ([]event.Stream, error) {
	switch v := chunk.(type) {
	case httpsse.Done:
		return []event.Stream{event.Complete(ts, nil)}, nil
	case httpsse.RawChunk:
		return wrapRaw(v, ts)
	default:
		return nil, kernelerr.New(kernelerr.Unknown, "openaiadapter: unrecognized chunk type")
	}
}

func wrapRaw(v httpsse.RawChunk, ts time.Time) ([]event.Stream, error) {
	choices, _ := v.JSON["choices"].([]interface{})
	if len(choices) == 0 {
		return nil, nil
	}
	choice, ok := choices[0].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	delta, _ := choice["delta"].(map[string]interface{})

	var out []event.Stream

	if content, ok := delta["content"].(string); ok && content != "" {
		out = append(out, event.Token(content, ts))
	}

	if toolCalls, ok := delta["tool_calls"].([]interface{}); ok {
		for _, raw := range toolCalls {
			tc, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			fn, _ := tc["function"].(map[string]interface{})
			name, _ := fn["name"].(string)
			id, _ := tc["id"].(string)
			if name == "" && id == "" {
				continue
			}
			out = append(out, event.ToolCall(name, id, nil, ts))
		}
	}

	if finishReason, ok := choice["finish_reason"].(string); ok && finishReason != "" {
		out = append(out, usageCompleteEvent(v.JSON, ts))
	}

	return out, nil
}

func usageCompleteEvent(payload map[string]interface{}, ts time.Time) event.Stream {
	usageRaw, ok := payload["usage"].(map[string]interface{})
	if !ok {
		return event.Complete(ts, nil)
	}
	u := &event.Usage{
		PromptTokens:     intField(usageRaw, "prompt_tokens"),
		CompletionTokens: intField(usageRaw, "completion_tokens"),
		TotalTokens:      intField(usageRaw, "total_tokens"),
	}
	return event.Complete(ts, u)
}

func intField(m map[string]interface{}, key string) int {
	v, ok := m[key].(float64)
	if !ok {
		return 0
	}
	return int(v)
}
