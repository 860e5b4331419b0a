package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/lifecycle"
	"github.com/harperreed/leadsync/sync"
)

func (m Model) renderListView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("LEADSYNC"))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.viewMode == ViewFilter {
		s.WriteString("Filter: ")
		s.WriteString(m.filterInput.View())
		s.WriteString("\n\n")
	} else if m.searchQuery != "" {
		s.WriteString(fmt.Sprintf("Filter: %s\n\n", m.searchQuery))
	}

	if m.tab == TabSync {
		s.WriteString(m.renderSyncView())
	} else {
		s.WriteString(m.renderTable())
	}
	s.WriteString("\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	} else if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, tab := range tabs {
		if Tab(i) == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(tab.title))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(tab.title))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderTable() string {
	if len(m.rows) == 0 {
		return "No leads.\n"
	}

	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Phone", Width: 14},
		{Title: "Stage", Width: 20},
		{Title: "Next Action", Width: 30},
	}

	var rows []table.Row
	for _, row := range m.rows {
		rows = append(rows, table.Row{
			row.Lead.Name,
			row.Lead.Phone,
			row.Lead.Stage,
			actionCell(row),
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 3)),
	)

	// Set selected row
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

// actionCell marks urgent and finished actions with a glyph. Table cells are
// truncated by width, so they carry no color codes.
func actionCell(row sync.ActionRow) string {
	switch row.Emphasis {
	case lifecycle.EmphasisUrgent:
		return "! " + row.Action
	case lifecycle.EmphasisSuccess:
		return "✓ " + row.Action
	}
	if row.Action == "" {
		return "-"
	}
	return row.Action
}

func (m Model) renderListHelp() string {
	help := "tab: switch view • ↑/↓: navigate • r: refresh • /: filter • q: quit"
	switch m.tab {
	case TabArchive:
		help = "tab: switch view • ↑/↓: navigate • u: restore • d: delete forever • r: refresh • /: filter • q: quit"
	case TabLeads, TabTodos:
		help = "tab: switch view • ↑/↓: navigate • a: archive • d: delete forever • r: refresh • /: filter • q: quit"
	}
	return helpStyle.Render(help)
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.orchestrator.Unmount()
		return m, tea.Quit
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.rows)-1 {
			m.selectedRow++
		}
	case "tab", "right", "l":
		return m.switchTab((m.tab + 1) % Tab(len(tabs)))
	case "shift+tab", "left", "h":
		return m.switchTab((m.tab + Tab(len(tabs)) - 1) % Tab(len(tabs)))
	case "r":
		m.status = "Syncing..."
		return m, m.refresh(sync.TriggerManual)
	case "a":
		if m.tab == TabLeads || m.tab == TabTodos {
			return m, m.archiveSelected()
		}
	case "u":
		if m.tab == TabArchive {
			return m, m.archiveSelected()
		}
	case "d":
		if _, ok := m.selected(); ok && m.tab != TabSync {
			m.viewMode = ViewConfirmDelete
		}
	case "/":
		m.viewMode = ViewFilter
		m.filterInput.SetValue(m.searchQuery)
		return m, m.filterInput.Focus()
	}
	return m, nil
}

func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchQuery = strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
		m.filterInput.Blur()
		m.viewMode = ViewList
		m.selectedRow = 0
		m.mount()
		return m, m.loadRows()
	case "esc":
		m.filterInput.Blur()
		m.viewMode = ViewList
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}
