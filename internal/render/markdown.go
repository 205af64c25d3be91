// Package render turns a session's accumulated content into
// terminal-friendly output: syntax-aware markdown for TTY output, and a
// streaming mode that prints tokens as they arrive instead of waiting for
// the full value.
package render

import (
	markdown "github.com/MichaelMure/go-term-markdown"
)

// defaultLeftPad and defaultLineWidth match go-term-markdown's own
// examples: a small left margin and an 80-column wrap, overridden by
// Width when the caller knows its terminal's real size.
const (
	defaultLeftPad   = 2
	defaultLineWidth = 80
)

// RenderMarkdown renders source as ANSI-colored terminal markdown at the
// default width. Never panics; an empty source renders to the empty
// string.
func RenderMarkdown(source string) string {
	return RenderMarkdownWidth(source, defaultLineWidth)
}

// RenderMarkdownWidth renders source wrapped to lineWidth columns.
func RenderMarkdownWidth(source string, lineWidth int) string {
	if lineWidth <= 0 {
		lineWidth = defaultLineWidth
	}
	if source == "" {
		return ""
	}
	return string(markdown.Render(source, defaultLeftPad, lineWidth))
}
