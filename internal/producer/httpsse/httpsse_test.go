package httpsse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/kernelerr"
	"github.com/stretchr/testify/assert"
)

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func TestProducer_StreamsUntilDone(t *testing.T) {
	srv := sseServer(t, []string{`{"delta":"hel"}`, `{"delta":"lo"}`, `[DONE]`})
	defer srv.Close()

	p := New(Options{URL: srv.URL, Body: map[string]string{"hello": "world"}})
	stream := p.Start(context.Background())

	var got []RawChunk
	sawDone := false
	for c := range stream.Chunks {
		switch v := c.(type) {
		case RawChunk:
			got = append(got, v)
		case Done:
			sawDone = true
		}
	}
	assert.Len(t, got, 2)
	assert.True(t, sawDone)
	assert.NoError(t, <-stream.Err)
}

func TestProducer_NonOKStatusClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	p := New(Options{URL: srv.URL})
	stream := p.Start(context.Background())

	for range stream.Chunks {
	}
	err := <-stream.Err
	kerr, ok := err.(*kernelerr.Error)
	assert.True(t, ok)
	assert.Equal(t, kernelerr.RateLimit, kerr.Kind)
}

func TestProducer_ContextCancellationSurfacesErr(t *testing.T) {
	srv := sseServer(t, []string{`{"delta":"a"}`})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(2 * time.Millisecond)

	p := New(Options{URL: srv.URL})
	stream := p.Start(ctx)
	for range stream.Chunks {
	}
	assert.Error(t, <-stream.Err)
}
