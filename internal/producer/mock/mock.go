// Package mock provides a deterministic producer.Producer for exercising
// the orchestrator, guardrail pipeline, and adapters without a network
// dependency. It plays back a fixed script of chunks, with optional
// per-call delays and a terminal error, and is restartable — each call to
// its Factory() returns an independent cursor over the same script.
package mock

import (
	"context"
	"time"

	"github.com/sanix-darker/streamkernel/internal/producer"
)

// TextChunk is the chunk shape emitted by this package: a plain string
// token. Adapters that detect *mock.Producer (or any producer.Producer
// emitting TextChunk) can wrap it directly without parsing wire bytes.
type TextChunk struct {
	Value string
}

// Script describes one scripted run: a sequence of token values, an
// optional delay before each, and an optional terminal error raised after
// the last token (or immediately, if Tokens is empty).
type Script struct {
	Tokens   []string
	Delay    time.Duration
	FinalErr error
}

// Producer plays back a Script.
type Producer struct {
	script Script
}

// New returns a Producer for the given script.
func New(script Script) *Producer {
	return &Producer{script: script}
}

// Factory returns a producer.Factory that hands back a fresh Producer over
// the same script on every call, satisfying the restartability contract.
func Factory(script Script) producer.Factory {
	return func() producer.Producer {
		return New(script)
	}
}

// Start implements producer.Producer.
func (p *Producer) Start(ctx context.Context) producer.Stream {
	chunks := make(chan producer.Chunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errCh)

		for _, tok := range p.script.Tokens {
			if p.script.Delay > 0 {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case <-time.After(p.script.Delay):
				}
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case chunks <- TextChunk{Value: tok}:
			}
		}
		if p.script.FinalErr != nil {
			errCh <- p.script.FinalErr
		}
	}()

	return producer.Stream{Chunks: chunks, Err: errCh}
}

// Sequence builds a factory that returns a different script on each
// successive call (primary attempt 1, attempt 2, fallback, ...), falling
// back to the last script once exhausted. This is how orchestrator tests
// simulate "fails twice then succeeds" without a stateful mock framework.
func Sequence(scripts ...Script) producer.Factory {
	i := 0
	return func() producer.Producer {
		idx := i
		if idx >= len(scripts) {
			idx = len(scripts) - 1
		}
		i++
		return New(scripts[idx])
	}
}
