// Package httpsse implements a producer.Producer over an HTTP/SSE endpoint:
// a net/http request plus a raw streaming read loop that scans "data: "
// lines until a "[DONE]" sentinel or EOF. An optional go-resty client
// (Options.Client) supplies the underlying *http.Client.
//
// httpsse only does transport: it yields raw decoded JSON payloads as
// producer.Chunk values. Translating those payloads into canonical stream
// events is the adapter's job (internal/adapter/openaiadapter,
// internal/adapter/anthropicadapter), keeping request-building, SSE
// parsing, and response-shape decoding in separate, independently
// testable layers.
package httpsse

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/sanix-darker/streamkernel/internal/producer"
)

// maxLineSize enlarges bufio.Scanner's default 64KiB token limit; some
// providers emit SSE lines well past that (large tool-call argument blobs,
// batched deltas).
const maxLineSize = 1 << 20

// RawChunk is the producer.Chunk shape this package emits: the decoded JSON
// payload of one "data: " line, plus the raw bytes for adapters that want
// to do their own decoding.
type RawChunk struct {
	Raw  []byte
	JSON map[string]interface{}
}

// Done is emitted (instead of a RawChunk) when the "[DONE]" sentinel line
// is seen.
type Done struct{}

// Options configures one SSE producer activation.
type Options struct {
	Method  string // defaults to POST
	URL     string
	Headers map[string]string
	Body    interface{}
	Client  *resty.Client // optional; a default is built if nil
	Timeout time.Duration // used only when Client is nil
}

// Producer issues one HTTP request per Start and streams its SSE body as
// RawChunk values. Each call to Start performs a fresh HTTP request, so a
// Producer is restartable by construction — the caller's producer.Factory
// is typically just `func() producer.Producer { return httpsse.New(opts) }`.
type Producer struct {
	opts Options
}

// New returns an httpsse.Producer for the given options.
func New(opts Options) *Producer {
	return &Producer{opts: opts}
}

// Start implements producer.Producer.
func (p *Producer) Start(ctx context.Context) producer.Stream {
	chunks := make(chan producer.Chunk, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errCh)

		bodyBytes, err := json.Marshal(p.opts.Body)
		if err != nil {
			errCh <- kernelerr.Wrap(kernelerr.Unknown, "failed to encode request body", err)
			return
		}

		method := p.opts.Method
		if method == "" {
			method = http.MethodPost
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, p.opts.URL, strings.NewReader(string(bodyBytes)))
		if err != nil {
			errCh <- kernelerr.Wrap(kernelerr.Unknown, "failed to build request", err)
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream")
		for k, v := range p.opts.Headers {
			httpReq.Header.Set(k, v)
		}

		client := p.httpClient()
		httpResp, err := client.Do(httpReq)
		if err != nil {
			errCh <- classifyTransportErr(err)
			return
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			buf := make([]byte, 4096)
			n, _ := httpResp.Body.Read(buf)
			errCh <- kernelerr.Wrap(kernelerr.ClassifyHTTPStatus(httpResp.StatusCode),
				fmt.Sprintf("SSE request failed with status %d", httpResp.StatusCode),
				fmt.Errorf("%s", buf[:n]))
			return
		}

		scanner := bufio.NewScanner(httpResp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
				case chunks <- Done{}:
				}
				return
			}

			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(data), &parsed); err != nil {
				continue
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case chunks <- RawChunk{Raw: []byte(data), JSON: parsed}:
			}
		}

		if err := scanner.Err(); err != nil && err != io.EOF {
			errCh <- kernelerr.Wrap(kernelerr.NetworkError, "SSE stream read failed", err)
		}
	}()

	return producer.Stream{Chunks: chunks, Err: errCh}
}

func (p *Producer) httpClient() *http.Client {
	if p.opts.Client != nil {
		return p.opts.Client.GetClient()
	}
	timeout := p.opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func classifyTransportErr(err error) error {
	return kernelerr.Wrap(kernelerr.NetworkError, "SSE request failed", err)
}

// Factory returns a producer.Factory that issues a fresh request with the
// given options on every call.
func Factory(opts Options) producer.Factory {
	return func() producer.Producer {
		return New(opts)
	}
}
