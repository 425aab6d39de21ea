package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/projects-hacks/clear-clause/internal/types"
)

// renderTranscript lays out the conversation, newest at the bottom. An
// unsealed assistant message renders with a typing marker instead of a
// bubble border change.
func renderTranscript(messages []*types.ChatMessage, width int) string {
	if len(messages) == 0 {
		return helpStyle.Render("Ask a question about your document.")
	}
	if width <= 0 {
		width = 80
	}
	bubbleWidth := width - 4
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	var blocks []string
	for _, message := range messages {
		blocks = append(blocks, renderChatMessage(message, bubbleWidth))
	}
	return strings.Join(blocks, "\n")
}

func renderChatMessage(message *types.ChatMessage, width int) string {
	content := message.Content
	if message.Role == types.RoleAssistant && !message.IsError {
		content = renderMarkdown(content, width-2)
	}
	if !message.Sealed() && message.Role == types.RoleAssistant {
		if content == "" {
			content = "…"
		} else {
			content += " …"
		}
	}

	var style lipgloss.Style
	switch {
	case message.IsError:
		style = errorBubbleStyle
	case message.Role == types.RoleUser:
		style = userBubbleStyle
	default:
		style = assistantBubbleStyle
	}
	block := style.Width(width).Render(content)

	if len(message.Sources) > 0 && message.Sealed() {
		block += "\n" + sourceStyle.Render("  sources: "+strings.Join(message.Sources, ", "))
	}
	if message.Role == types.RoleUser {
		return lipgloss.NewStyle().MarginLeft(2).Render(block)
	}
	return block
}
