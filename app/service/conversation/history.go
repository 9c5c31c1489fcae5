package conversation

import (
	"fmt"
	"strings"
)

func (r Role) label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Agent"
	default:
		return string(r)
	}
}

// formatHistory renders the history as labelled lines for the evaluator.
func formatHistory(history []Message) string {
	if len(history) == 0 {
		return "No previous messages"
	}

	var builder strings.Builder

	for _, msg := range history {
		builder.WriteString(fmt.Sprintf("%s: %s\n", msg.Role.label(), msg.Content))
	}

	return strings.TrimSuffix(builder.String(), "\n")
}
