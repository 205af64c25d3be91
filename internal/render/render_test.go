package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/sanix-darker/streamkernel/internal/event"
	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown_NonEmptyForHeadingAndBold(t *testing.T) {
	out := RenderMarkdown("# Hello\n\nThis is **bold** text.")
	assert.NotEmpty(t, out)
}

func TestRenderMarkdown_EmptyInputDoesNotPanic(t *testing.T) {
	out := RenderMarkdown("")
	assert.Equal(t, "", out)
}

func TestRenderMarkdown_CodeBlock(t *testing.T) {
	out := RenderMarkdown("```go\nfunc main() {}\n```")
	assert.NotEmpty(t, out)
}

func TestRenderMarkdownWidth_FallsBackToDefaultOnNonPositiveWidth(t *testing.T) {
	out := RenderMarkdownWidth("hello world", 0)
	assert.NotEmpty(t, out)
}

func TestRenderStream_NonTTYAccumulatesThenRendersMarkdown(t *testing.T) {
	events := make(chan event.Stream, 4)
	events <- event.Token("# Title", time.Now())
	events <- event.Token("\n\nbody", time.Now())
	close(events)

	var buf bytes.Buffer
	content := RenderStream(&buf, events)

	assert.Equal(t, "# Title\n\nbody", content)
	assert.NotEmpty(t, buf.String())
}
