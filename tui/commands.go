// ABOUTME: Messages, commands and the orchestrator renderer for the TUI
// ABOUTME: Store and sync work runs in tea.Cmds so Update never blocks
package tui

import (
	"context"
	"fmt"
	"strings"
	stdsync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

type partitionMsg struct {
	view      sync.ViewContext
	partition models.Partition
}

type rowsMsg struct {
	rows []sync.ActionRow
	err  error
}

type syncStateMsg struct {
	state *models.SyncState
	err   error
}

type refreshedMsg struct {
	summary sync.Summary
	err     error
}

type actionDoneMsg struct {
	status string
	err    error
}

// Renderer forwards finished passes to a running program. Passes that finish
// before Attach are dropped; the model loads rows itself on start.
type Renderer struct {
	mu   stdsync.Mutex
	send func(tea.Msg)
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Attach routes renders to send, usually (*tea.Program).Send.
func (r *Renderer) Attach(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

func (r *Renderer) Render(view sync.ViewContext, p models.Partition) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()

	if send != nil {
		send(partitionMsg{view: view, partition: p})
	}
}

func (m Model) refresh(trigger sync.Trigger) tea.Cmd {
	return func() tea.Msg {
		summary, err := m.orchestrator.Refresh(m.ctx, trigger)
		return refreshedMsg{summary: summary, err: err}
	}
}

func (m Model) loadRows() tea.Cmd {
	if tabs[m.tab].view == sync.ViewSettings {
		return m.loadSyncState()
	}
	return func() tea.Msg {
		p, err := m.repo.LoadPartition(m.ctx)
		if err != nil {
			return rowsMsg{err: fmt.Errorf("failed to load leads: %w", err)}
		}
		return m.buildRows(p)()
	}
}

// buildRows derives the current tab's rows from p. Any outreach repairs are
// saved as a side effect of building the action board.
func (m Model) buildRows(p models.Partition) tea.Cmd {
	tab := m.tab
	query := strings.ToLower(m.searchQuery)

	return func() tea.Msg {
		source := p.Active
		if tab == TabArchive {
			source = p.Archived
		}

		var leads []models.Lead
		for _, lead := range source {
			if matchesQuery(lead, query) {
				leads = append(leads, lead)
			}
		}

		rows, err := m.orchestrator.ActionBoard(m.ctx, leads)
		if tab == TabTodos {
			todos := rows[:0]
			for _, row := range rows {
				if row.Action != "" {
					todos = append(todos, row)
				}
			}
			rows = todos
		}
		return rowsMsg{rows: rows, err: err}
	}
}

func (m Model) loadSyncState() tea.Cmd {
	return func() tea.Msg {
		state, err := m.repo.GetSyncState(m.ctx)
		return syncStateMsg{state: state, err: err}
	}
}

func (m Model) archiveSelected() tea.Cmd {
	row, ok := m.selected()
	if !ok {
		return nil
	}

	return func() tea.Msg {
		if m.tab == TabArchive {
			err := m.orchestrator.Mutate(m.ctx, func(ctx context.Context) error {
				return m.repo.UnarchiveLead(ctx, row.Lead.ID)
			})
			return actionDoneMsg{status: fmt.Sprintf("Restored %s", row.Lead.Name), err: err}
		}
		err := m.orchestrator.Mutate(m.ctx, func(ctx context.Context) error {
			return m.repo.ArchiveLead(ctx, row.Lead.ID)
		})
		return actionDoneMsg{status: fmt.Sprintf("Archived %s", row.Lead.Name), err: err}
	}
}

func (m Model) deleteSelected() tea.Cmd {
	row, ok := m.selected()
	if !ok {
		return nil
	}

	return func() tea.Msg {
		err := m.orchestrator.Mutate(m.ctx, func(ctx context.Context) error {
			return m.repo.PermanentlyDeleteLead(ctx, row.Lead.ID)
		})
		return actionDoneMsg{status: fmt.Sprintf("Deleted %s", row.Lead.Name), err: err}
	}
}

func (m Model) selected() (sync.ActionRow, bool) {
	if m.selectedRow < 0 || m.selectedRow >= len(m.rows) {
		return sync.ActionRow{}, false
	}
	return m.rows[m.selectedRow], true
}

func matchesQuery(lead models.Lead, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(lead.Name), query) ||
		strings.Contains(strings.ToLower(lead.Email), query) ||
		strings.Contains(lead.Phone, query) ||
		strings.Contains(strings.ToLower(lead.Source), query)
}

func fmtSummary(s sync.Summary) string {
	msg := fmt.Sprintf("Synced %d leads: %d active, %d archived (%s)",
		s.Fetched, s.Active, s.Archived, s.Duration.Round(time.Millisecond))
	if s.Reruns > 0 {
		msg += fmt.Sprintf(", %d queued passes", s.Reruns)
	}
	return msg
}
