package anthropicadapter

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sanix-darker/streamkernel/internal/producer/httpsse"
)

const anthropicVersion = "2023-06-01"

// RequestOptions configures an Anthropic Messages API streaming call.
// Defaults mirror internal/provider/anthropic/anthropic.go's NewProvider:
// base URL, model, and max_tokens (required by Anthropic, unlike OpenAI).
type RequestOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	System    string
	Messages  []Message
	MaxTokens int
	Timeout   time.Duration
}

// Message is one chat message in the Anthropic wire shape.
type Message struct {
	Role    string
	Content string
}

// BuildOptions constructs httpsse.Options for a streaming Messages API
// call, using Anthropic's "x-api-key" + "anthropic-version" headers
// instead of OpenAI's Bearer scheme.
func BuildOptions(o RequestOptions) httpsse.Options {
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := o.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := o.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
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
		"model":      model,
		"messages":   msgs,
		"max_tokens": maxTokens,
		"stream":     true,
	}
	if o.System != "" {
		body["system"] = o.System
	}

	return httpsse.Options{
		URL: baseURL + "/v1/messages",
		Headers: map[string]string{
			"x-api-key":         o.APIKey,
			"anthropic-version": anthropicVersion,
		},
		Body:    body,
		Client:  client,
		Timeout: timeout,
	}
}
