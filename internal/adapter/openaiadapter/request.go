package openaiadapter

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sanix-darker/streamkernel/internal/producer/httpsse"
)

// RequestOptions configures an OpenAI-compatible chat completions call.
// BaseURL defaults to the public OpenAI endpoint, matching
// internal/provider/openai/openai.go's NewProvider defaults, so the same
// adapter serves any OpenAI-compatible endpoint (Azure, Ollama, vLLM, ...)
// by overriding BaseURL, the way internal/provider/compat does.
type RequestOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration
}

// Message is one chat message in the OpenAI wire shape.
type Message struct {
	Role    string
	Content string
}

// BuildOptions constructs httpsse.Options for a streaming chat completions
// request, building the resty.Client the way every provider package does
// (timeout + JSON content-type), then handing that resty.Client to
// httpsse via Options.Client, which streams over its underlying
// *http.Client.
func BuildOptions(o RequestOptions) httpsse.Options {
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeout := o.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	msgs := make([]map[string]string, len(o.Messages))
	for i, m := range o.Messages {
		msgs[i] = map[string]string{"role": m.Role, "content": m.Content}
	}

	body := map[string]interface{}{
		"model":    o.Model,
		"messages": msgs,
		"stream":   true,
	}
	if o.MaxTokens > 0 {
		body["max_tokens"] = o.MaxTokens
	}
	if o.Temperature != nil {
		body["temperature"] = *o.Temperature
	}

	return httpsse.Options{
		URL:     baseURL + "/chat/completions",
		Headers: map[string]string{"Authorization": "Bearer " + o.APIKey},
		Body:    body,
		Client:  client,
		Timeout: timeout,
	}
}
