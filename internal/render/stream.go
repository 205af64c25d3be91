package render

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sanix-darker/streamkernel/internal/event"
)

// RenderStream drains events from a session's consumer-facing channel,
// printing token values to w as they arrive. On a real terminal, tokens
// print inline as they stream; otherwise content is accumulated silently
// and rendered as markdown once the channel closes, since a non-TTY
// consumer (a pipe, a log file) gets no benefit from incremental writes
// and full benefit from a single well-formed markdown render.
func RenderStream(w io.Writer, events <-chan event.Stream) string {
	if isTTY(w) {
		return renderStreamTTY(w, events)
	}
	return renderStreamAccumulated(w, events)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func renderStreamTTY(w io.Writer, events <-chan event.Stream) string {
	var content string
	for ev := range events {
		if ev.Type == event.StreamToken && ev.Value != "" {
			content += ev.Value
			fmt.Fprint(w, ev.Value)
		}
	}
	fmt.Fprintln(w)
	return content
}

func renderStreamAccumulated(w io.Writer, events <-chan event.Stream) string {
	var content string
	for ev := range events {
		if ev.Type == event.StreamToken {
			content += ev.Value
		}
	}
	if content != "" {
		fmt.Fprint(w, RenderMarkdown(content))
	}
	return content
}
