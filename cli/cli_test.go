// ABOUTME: Tests for lead, sync and MCP CLI commands
// ABOUTME: Runs commands against a temporary SQLite cache and an httptest lead server
package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

func setupTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()

	oldDataHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	t.Cleanup(func() { xdg.DataHome = oldDataHome })

	cache, err := db.OpenLeadCache(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	cfg := &config.Config{Backend: config.BackendSQLite, SyncInterval: "5m"}
	var out bytes.Buffer
	return NewAppWithRepository(cfg, cache, zap.NewNop(), &out), &out
}

func TestLeadsListCommand(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Repository().ReplacePartition(ctx, models.Partition{
		Active: []models.Lead{
			{ID: "1", Name: "Ada", Stage: models.StageNew},
			{ID: "2", Name: "Bob", Stage: models.StageInterested},
		},
		Archived: []models.Lead{{ID: "3", Name: "Cy", Stage: models.StageClosed, Archived: true}},
	}))

	require.NoError(t, LeadsListCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Assign Stage")
	assert.Contains(t, out.String(), "Reach out to lead")
	assert.NotContains(t, out.String(), "Cy")

	out.Reset()
	require.NoError(t, LeadsListCommand(ctx, app, []string{"--archived"}))
	assert.Contains(t, out.String(), "Cy")
	assert.Contains(t, out.String(), "Process complete")

	out.Reset()
	require.NoError(t, LeadsListCommand(ctx, app, []string{"--stage", models.StageNew}))
	assert.Contains(t, out.String(), "Ada")
	assert.NotContains(t, out.String(), "Bob")
}

func TestLeadsUserActionCommands(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Repository().ReplacePartition(ctx, models.Partition{
		Active: []models.Lead{{ID: "1", Name: "Ada"}, {ID: "2", Name: "Bob"}},
	}))

	require.NoError(t, LeadsArchiveCommand(ctx, app, []string{"1"}))
	assert.Contains(t, out.String(), "Archived lead 1")

	require.NoError(t, LeadsUnarchiveCommand(ctx, app, []string{"1"}))
	require.NoError(t, LeadsDeleteCommand(ctx, app, []string{"2"}))

	p, err := app.Repository().LoadPartition(ctx)
	require.NoError(t, err)
	require.Len(t, p.Active, 1)
	assert.Equal(t, "1", p.Active[0].ID)

	assert.ErrorIs(t, LeadsArchiveCommand(ctx, app, []string{"404"}), models.ErrLeadNotFound)
	assert.Error(t, LeadsArchiveCommand(ctx, app, nil))
}

func TestLeadsNextCommand(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Repository().ReplacePartition(ctx, models.Partition{
		Active: []models.Lead{{ID: "1", Name: "Ada", Stage: models.StageAppPrepared}},
	}))

	require.NoError(t, LeadsNextCommand(ctx, app, []string{"1"}))
	assert.Contains(t, out.String(), "Next action: Send application")

	assert.Error(t, LeadsNextCommand(ctx, app, []string{"404"}))
}

func TestLeadsImportCommand(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "leads.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"leads": [{"name": "Ada"}, {"name": "Bob", "stage": "quoted"}]}`), 0600))

	require.NoError(t, LeadsImportCommand(ctx, app, []string{"--source", "referral", path}))
	assert.Contains(t, out.String(), "Imported 2 leads")

	p, err := app.Repository().LoadPartition(ctx)
	require.NoError(t, err)
	require.Len(t, p.Active, 2)
	assert.Equal(t, "referral", p.Active[0].Source)
	assert.Equal(t, models.StageNew, p.Active[0].Stage)
	assert.NotEmpty(t, p.Active[0].ID)
	assert.NotNil(t, p.Active[0].CreatedAt)

	assert.Error(t, LeadsImportCommand(ctx, app, []string{filepath.Join(t.TempDir(), "missing.json")}))
}

func TestSyncNowCommand(t *testing.T) {
	app, out := setupTestApp(t)
	ctx := context.Background()

	err := SyncNowCommand(ctx, app, nil)
	assert.ErrorIs(t, err, sync.ErrNoServerURL)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1, "name": "Ada", "stage": "new"}, {"id": 2, "name": "Bob", "archived": true}]`))
	}))
	defer server.Close()

	app.Config.ServerURL = server.URL
	app.Config.Token = "secret"

	out.Reset()
	require.NoError(t, SyncNowCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Fetched 2 leads")
	assert.Contains(t, out.String(), "Active:   1")
	assert.Contains(t, out.String(), "Archived: 1")

	out.Reset()
	require.NoError(t, SyncStatusCommand(ctx, app, nil))
	assert.Contains(t, out.String(), "Status:    idle")
	assert.Contains(t, out.String(), "Archived:  1")
}

func TestSyncStatusNeverSynced(t *testing.T) {
	app, out := setupTestApp(t)

	require.NoError(t, SyncStatusCommand(context.Background(), app, nil))
	assert.Contains(t, out.String(), "(not configured)")
	assert.Contains(t, out.String(), "never synced")
}

func TestSyncLoginCommand(t *testing.T) {
	app, out := setupTestApp(t)

	assert.Error(t, SyncLoginCommand(app, nil))

	require.NoError(t, SyncLoginCommand(app, []string{"--token", "abc", "--server", "https://crm.example.com/leads"}))
	assert.Contains(t, out.String(), "Token saved")

	token, err := sync.LoadToken("")
	require.NoError(t, err)
	assert.Equal(t, "abc", token.AccessToken)

	t.Setenv("LEADSYNC_SERVER_URL", "")
	saved, err := config.LoadFrom(config.Path())
	require.NoError(t, err)
	assert.Equal(t, "https://crm.example.com/leads", saved.ServerURL)

	// The stored token is used when the config has none.
	loaded, err := app.token()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "abc", loaded.AccessToken)
}

func TestSyncDaemonRejectsShortInterval(t *testing.T) {
	app, _ := setupTestApp(t)
	assert.Error(t, SyncDaemonCommand(context.Background(), app, []string{"--interval", "10s"}))
}

func TestMCPServerTools(t *testing.T) {
	app, _ := setupTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Repository().ReplacePartition(ctx, models.Partition{
		Active: []models.Lead{{ID: "1", Name: "Ada", Stage: models.StageNew}},
	}))

	orchestrator, err := app.Orchestrator(ctx)
	require.NoError(t, err)
	server := NewMCPServer("test", orchestrator, app.Repository())

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_leads", "refresh_leads", "next_action", "archive_lead", "unarchive_lead",
		"delete_lead_permanently", "import_leads", "sync_status",
	}, names)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "list_leads",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)
	require.NotEmpty(t, result.Content)
	assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "Assign Stage")
}
