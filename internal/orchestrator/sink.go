package orchestrator

import (
	"fmt"

	"github.com/sanix-darker/streamkernel/internal/event"
)

// dispatchSinks invokes Before then After on every registered interceptor,
// in registration order, recovering from panics so a misbehaving sink
// never fails the session; a recovered panic is passed to every sink's
// OnError.
func dispatchSinks(sinks []Sink, obs event.Obs) {
	for _, sink := range sinks {
		if err := safeCall(func() { sink.Before(obs) }); err != nil {
			dispatchSinkErrors(sinks, err)
		}
		if err := safeCall(func() { sink.After(obs) }); err != nil {
			dispatchSinkErrors(sinks, err)
		}
	}
}

func dispatchSinkErrors(sinks []Sink, err error) {
	for _, sink := range sinks {
		safeCall(func() { sink.OnError(err) })
	}
}

func safeCall(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestrator: interceptor panic: %v", r)
		}
	}()
	fn()
	return nil
}
