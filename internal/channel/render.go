package channel

import (
	"strings"

	"github.com/ErenErgin78/Openai-Emotion-Animals-Chatbot/internal/domain"
)

// renderText flattens a routed result into plain text for channels that
// have no richer presentation (CLI, and the caption-less paths of the
// bot channels). Image URLs are appended as a line of their own.
func renderText(res *domain.RouteResult) string {
	if res.Error != "" {
		return "⚠️ " + res.Error
	}

	var sb strings.Builder
	sb.WriteString(res.Response)
	if res.FirstEmoji != "" {
		sb.WriteString("\n")
		sb.WriteString(res.FirstEmoji)
		if res.SecondEmoji != "" {
			sb.WriteString(" ")
			sb.WriteString(res.SecondEmoji)
		}
	}
	if res.ImageURL != "" {
		sb.WriteString("\n")
		sb.WriteString(res.ImageURL)
	}
	return sb.String()
}

// splitMessage cuts text into chunks of at most maxLen bytes, preferring
// newline boundaries in the second half of the window.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}
	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}
		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}
