// ABOUTME: Tests for the lead TUI model
// ABOUTME: Drives Update with key messages and runs the returned commands synchronously
package tui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type harness struct {
	cache    *db.LeadCache
	orch     *sync.Orchestrator
	renderer *Renderer
	server   []models.Lead
	pushed   []tea.Msg
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cache, err := db.OpenLeadCache(filepath.Join(t.TempDir(), "leads.db"))
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	h := &harness{cache: cache, renderer: NewRenderer()}
	h.renderer.Attach(func(msg tea.Msg) { h.pushed = append(h.pushed, msg) })

	fetcher := sync.FetcherFunc(func(context.Context) ([]models.Lead, error) {
		return h.server, nil
	})
	h.orch = sync.NewOrchestrator(fetcher, cache,
		sync.WithClock(func() time.Time { return testNow }),
		sync.WithRenderer(h.renderer),
	)
	return h
}

// drive runs cmd and every command it produces, feeding messages back into m.
// Renderer pushes are delivered after the command that caused them.
func (h *harness) drive(m tea.Model, cmd tea.Cmd) tea.Model {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}

		pushed := h.pushed
		h.pushed = nil

		var out tea.Cmd
		m, out = m.Update(msg)
		queue = append(queue, out)

		for _, p := range pushed {
			m, out = m.Update(p)
			queue = append(queue, out)
		}
	}
	return m
}

func (h *harness) press(m tea.Model, key string) tea.Model {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, cmd := m.Update(msg)
	return h.drive(m, cmd)
}

func seed(t *testing.T, h *harness) {
	t.Helper()
	h.server = []models.Lead{
		{ID: "1", Name: "Ada", Phone: "555-0101", Stage: models.StageNew},
		{ID: "2", Name: "Bob", Phone: "555-0102", Stage: models.StageAppSent},
		{ID: "3", Name: "Cy", Stage: models.StageClosed, Archived: true},
	}
}

func TestInitLoadsRowsAndRefreshes(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	m := NewModel(context.Background(), h.orch, h.cache)
	model := h.drive(m, m.Init()).(Model)

	view, ok := h.orch.CurrentView()
	if !ok || view.Name != sync.ViewLeads {
		t.Fatalf("expected leads view mounted, got %+v", view)
	}
	if len(model.rows) != 2 {
		t.Fatalf("expected 2 active rows, got %d", len(model.rows))
	}
	if model.rows[0].Action != "Assign Stage" {
		t.Errorf("expected Assign Stage, got %q", model.rows[0].Action)
	}
	if !strings.Contains(model.status, "2 active, 1 archived") {
		t.Errorf("unexpected status %q", model.status)
	}
	if !strings.Contains(model.View(), "Ada") {
		t.Error("list view should show Ada")
	}
}

func TestTabSwitchMountsViews(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	m := NewModel(context.Background(), h.orch, h.cache)
	model := h.drive(m, m.Init())

	model = h.press(model, "tab")
	view, _ := h.orch.CurrentView()
	if view.Name != sync.ViewTodos {
		t.Fatalf("expected todos view, got %s", view.Name)
	}
	rows := model.(Model).rows
	if len(rows) != 1 || rows[0].Lead.ID != "1" {
		t.Errorf("todos should only hold leads with an action, got %+v", rows)
	}

	model = h.press(model, "tab")
	rows = model.(Model).rows
	if len(rows) != 1 || rows[0].Lead.Name != "Cy" {
		t.Errorf("archive tab should show Cy, got %+v", rows)
	}

	model = h.press(model, "tab")
	view, _ = h.orch.CurrentView()
	if view.DependsOnLeads() {
		t.Errorf("sync tab should not depend on leads, got %s", view.Name)
	}
	out := model.View()
	if !strings.Contains(out, "Lead Sync") || !strings.Contains(out, "Idle") {
		t.Errorf("sync view missing status:\n%s", out)
	}
}

func TestRefreshPushesPartitionToMountedView(t *testing.T) {
	h := newHarness(t)

	m := NewModel(context.Background(), h.orch, h.cache)
	model := h.drive(m, m.Init())
	if len(model.(Model).rows) != 0 {
		t.Fatal("expected no rows before the server has leads")
	}

	seed(t, h)
	model = h.press(model, "r")

	if got := len(model.(Model).rows); got != 2 {
		t.Errorf("expected pushed partition to produce 2 rows, got %d", got)
	}
}

func TestArchiveAndDeleteKeys(t *testing.T) {
	h := newHarness(t)
	seed(t, h)
	ctx := context.Background()

	m := NewModel(ctx, h.orch, h.cache)
	model := h.drive(m, m.Init())

	model = h.press(model, "a")
	if !strings.Contains(model.(Model).status, "Archived Ada") {
		t.Errorf("unexpected status %q", model.(Model).status)
	}
	if _, ns, err := h.cache.GetLead(ctx, "1"); err != nil || ns != models.NamespaceArchived {
		t.Fatalf("expected lead 1 archived, got %s (%v)", ns, err)
	}

	model = h.press(model, "d")
	if model.(Model).viewMode != ViewConfirmDelete {
		t.Fatal("d should ask for confirmation")
	}
	if !strings.Contains(model.View(), "Bob") {
		t.Error("confirmation should name the lead")
	}

	model = h.press(model, "y")
	ids, err := h.cache.PermanentArchiveIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "2" {
		t.Fatalf("expected lead 2 permanently archived, got %v (%v)", ids, err)
	}
	if len(model.(Model).rows) != 0 {
		t.Errorf("expected no active rows left, got %d", len(model.(Model).rows))
	}
}

func TestFilter(t *testing.T) {
	h := newHarness(t)
	seed(t, h)

	m := NewModel(context.Background(), h.orch, h.cache)
	model := h.drive(m, m.Init())

	// Text input commands (cursor blink) are not driven.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("bob")})
	model = h.press(model, "enter")

	rows := model.(Model).rows
	if len(rows) != 1 || rows[0].Lead.Name != "Bob" {
		t.Fatalf("expected only Bob, got %+v", rows)
	}
	view, _ := h.orch.CurrentView()
	if view.Filter != "bob" {
		t.Errorf("expected filter on mounted view, got %q", view.Filter)
	}
}

func TestQuitUnmounts(t *testing.T) {
	h := newHarness(t)

	m := NewModel(context.Background(), h.orch, h.cache)
	model := h.drive(m, m.Init())

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := h.orch.CurrentView(); ok {
		t.Error("quitting should unmount the view")
	}
}

func TestFormatTimeSince(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{48 * time.Hour, "2 days ago"},
	}
	for _, tt := range tests {
		if got := formatTimeSince(testNow.Add(-tt.ago), testNow); got != tt.want {
			t.Errorf("formatTimeSince(%s) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}
