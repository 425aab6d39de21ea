package app

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders assistant answers and summaries for the terminal.
// Rendering is best effort: broken markdown falls back to the raw text
// rather than an error in the transcript.
func renderMarkdown(text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
