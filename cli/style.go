// ABOUTME: Terminal styling for action labels
// ABOUTME: Colors urgent and completed actions when stdout is a terminal
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/harperreed/leadsync/lifecycle"
)

var (
	urgentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// styleAction renders an action label for w. Styling is skipped for pipes and
// files so scripts see the plain label.
func styleAction(w io.Writer, action string, emphasis lifecycle.Emphasis) string {
	if action == "" {
		action = "-"
	}
	if !isTerminal(w) {
		return action
	}

	switch {
	case action == "-":
		return mutedStyle.Render(action)
	case emphasis == lifecycle.EmphasisUrgent:
		return urgentStyle.Render(action)
	case emphasis == lifecycle.EmphasisSuccess:
		return successStyle.Render(action)
	default:
		return action
	}
}
