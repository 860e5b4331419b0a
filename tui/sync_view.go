// ABOUTME: TUI view for lead sync status
// ABOUTME: Shows the last reconciliation pass and the size of both lead lists
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/models"
)

var (
	syncHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	syncLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)

	syncIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	syncSyncingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	syncErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	syncMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

func (m Model) renderSyncView() string {
	var s strings.Builder

	s.WriteString(syncHeaderStyle.Render("Lead Sync"))
	s.WriteString("\n\n")

	state := m.syncState
	if state == nil {
		s.WriteString(syncMessageStyle.Render("Not synced yet. Press 'r' to sync now."))
		s.WriteString("\n")
		return s.String()
	}

	s.WriteString(syncLabelStyle.Render("Status"))
	switch state.Status {
	case models.SyncStatusSyncing:
		s.WriteString(syncSyncingStyle.Render("⟳ Syncing..."))
	case models.SyncStatusError:
		s.WriteString(syncErrorStyle.Render("✗ Error"))
		if state.ErrorMessage != "" {
			s.WriteString(syncErrorStyle.Render(": " + state.ErrorMessage))
		}
	default:
		s.WriteString(syncIdleStyle.Render("✓ Idle"))
	}
	s.WriteString("\n")

	s.WriteString(syncLabelStyle.Render("Last sync"))
	if state.LastSyncTime != nil {
		s.WriteString(formatTimeSince(*state.LastSyncTime, m.orchestrator.Now()))
	} else {
		s.WriteString("never")
	}
	s.WriteString("\n")

	s.WriteString(syncLabelStyle.Render("Active"))
	s.WriteString(fmt.Sprintf("%d", state.ActiveCount))
	s.WriteString("\n")

	s.WriteString(syncLabelStyle.Render("Archived"))
	s.WriteString(fmt.Sprintf("%d", state.ArchiveCount))
	s.WriteString("\n")

	if state.LastPassID != "" {
		s.WriteString(syncMessageStyle.Render("pass " + state.LastPassID))
		s.WriteString("\n")
	}

	return s.String()
}

func formatTimeSince(t, now time.Time) string {
	duration := now.Sub(t)

	if duration < time.Minute {
		return "just now"
	} else if duration < time.Hour {
		minutes := int(duration.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	} else if duration < 24*time.Hour {
		hours := int(duration.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
