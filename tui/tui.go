// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Tabs mount lead views on the orchestrator and redraw when a pass pushes new leads
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewFilter
	ViewConfirmDelete
)

// Tab is one of the top-level screens.
type Tab int

const (
	TabLeads Tab = iota
	TabTodos
	TabArchive
	TabSync
)

var tabs = []struct {
	title string
	view  string
}{
	{"Leads", sync.ViewLeads},
	{"Todos", sync.ViewTodos},
	{"Archive", sync.ViewArchive},
	{"Sync", sync.ViewSettings},
}

// Model is the main bubbletea model
type Model struct {
	ctx          context.Context
	orchestrator *sync.Orchestrator
	repo         sync.LeadRepository

	viewMode ViewMode
	tab      Tab

	// List view state
	rows        []sync.ActionRow
	selectedRow int
	searchQuery string
	filterInput textinput.Model

	// Sync view state
	syncState *models.SyncState

	// UI state
	status string
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, orchestrator *sync.Orchestrator, repo sync.LeadRepository) Model {
	input := textinput.New()
	input.Placeholder = "name, phone or email"
	input.CharLimit = 64

	return Model{
		ctx:          ctx,
		orchestrator: orchestrator,
		repo:         repo,
		viewMode:     ViewList,
		tab:          TabLeads,
		filterInput:  input,
		width:        80,
		height:       24,
	}
}

func (m Model) Init() tea.Cmd {
	m.mount()
	return tea.Batch(m.loadRows(), m.refresh(sync.TriggerNavigation))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case partitionMsg:
		if msg.view.Name != tabs[m.tab].view {
			return m, nil
		}
		return m, m.buildRows(msg.partition)
	case rowsMsg:
		m.rows = msg.rows
		m.err = msg.err
		if m.selectedRow >= len(m.rows) {
			m.selectedRow = max(len(m.rows)-1, 0)
		}
		return m, nil
	case syncStateMsg:
		m.syncState = msg.state
		m.err = msg.err
		return m, nil
	case refreshedMsg:
		return m.handleRefreshed(msg)
	case actionDoneMsg:
		m.status = msg.status
		m.err = msg.err
		return m, m.loadRows()
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	default:
		return m.renderListView()
	}
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.orchestrator.Unmount()
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewFilter:
		return m.handleFilterKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	default:
		return m.handleListKeys(msg)
	}
}

// mount tells the orchestrator which view is on screen.
func (m Model) mount() {
	m.orchestrator.Mount(sync.ViewContext{
		Name:      tabs[m.tab].view,
		Filter:    m.searchQuery,
		SortField: "name",
	})
}

// switchTab mounts the new tab and refreshes as a navigation.
func (m Model) switchTab(tab Tab) (tea.Model, tea.Cmd) {
	m.tab = tab
	m.selectedRow = 0
	m.rows = nil
	m.mount()
	return m, tea.Batch(m.loadRows(), m.refresh(sync.TriggerNavigation))
}

func (m Model) handleRefreshed(msg refreshedMsg) (tea.Model, tea.Cmd) {
	m.err = msg.err
	switch {
	case msg.err != nil:
		m.status = "Sync failed"
	case msg.summary.Coalesced:
		m.status = "Sync already running, queued another pass"
	default:
		m.status = fmtSummary(msg.summary)
	}

	// Passes that reached the renderer already delivered fresh rows.
	if msg.summary.Rendered {
		return m, m.loadSyncState()
	}
	return m, tea.Batch(m.loadRows(), m.loadSyncState())
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
