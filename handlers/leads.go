// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements list, refresh, next action, archive, delete, import and sync status tools
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultListLimit = 50

type LeadHandlers struct {
	orchestrator *sync.Orchestrator
	repo         sync.LeadRepository
}

func NewLeadHandlers(orchestrator *sync.Orchestrator, repo sync.LeadRepository) *LeadHandlers {
	return &LeadHandlers{orchestrator: orchestrator, repo: repo}
}

type LeadOutput struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Email      string          `json:"email,omitempty"`
	Source     string          `json:"source,omitempty"`
	Stage      string          `json:"stage"`
	Namespace  string          `json:"namespace"`
	CreatedAt  *string         `json:"created_at,omitempty"`
	ReachOut   models.ReachOut `json:"reach_out"`
	NextAction string          `json:"next_action"`
	Emphasis   string          `json:"emphasis,omitempty"`
	Repaired   string          `json:"repaired,omitempty"`
}

type ListLeadsInput struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"Which namespace to list: active (default) or archived"`
	Stage     string `json:"stage,omitempty" jsonschema:"Only include leads in this pipeline stage"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type ListLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
	Total int          `json:"total"`
}

func (h *LeadHandlers) ListLeads(ctx context.Context, request *mcp.CallToolRequest, input ListLeadsInput) (*mcp.CallToolResult, ListLeadsOutput, error) {
	namespace := strings.ToLower(strings.TrimSpace(input.Namespace))
	if namespace == "" {
		namespace = models.NamespaceActive
	}
	if namespace != models.NamespaceActive && namespace != models.NamespaceArchived {
		return nil, ListLeadsOutput{}, fmt.Errorf("invalid namespace %q: expected active or archived", input.Namespace)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	p, err := h.repo.LoadPartition(ctx)
	if err != nil {
		return nil, ListLeadsOutput{}, fmt.Errorf("failed to load leads: %w", err)
	}

	source := p.Active
	if namespace == models.NamespaceArchived {
		source = p.Archived
	}

	var leads []models.Lead
	for _, lead := range source {
		if input.Stage != "" && lead.Stage != input.Stage {
			continue
		}
		leads = append(leads, lead)
	}
	total := len(leads)
	if len(leads) > limit {
		leads = leads[:limit]
	}

	rows, err := h.orchestrator.ActionBoard(ctx, leads)
	if err != nil {
		return nil, ListLeadsOutput{}, fmt.Errorf("failed to save lead repairs: %w", err)
	}

	result := make([]LeadOutput, len(rows))
	for i, row := range rows {
		result[i] = rowToOutput(row, namespace)
	}

	return nil, ListLeadsOutput{Leads: result, Total: total}, nil
}

type RefreshLeadsInput struct{}

func (h *LeadHandlers) RefreshLeads(ctx context.Context, request *mcp.CallToolRequest, input RefreshLeadsInput) (*mcp.CallToolResult, sync.Summary, error) {
	summary, err := h.orchestrator.Refresh(ctx, sync.TriggerManual)
	if err != nil {
		return nil, sync.Summary{}, fmt.Errorf("refresh failed: %w", err)
	}
	return nil, summary, nil
}

type LeadIDInput struct {
	ID string `json:"id" jsonschema:"Lead ID (required)"`
}

func (h *LeadHandlers) NextAction(ctx context.Context, request *mcp.CallToolRequest, input LeadIDInput) (*mcp.CallToolResult, LeadOutput, error) {
	lead, namespace, err := h.getLead(ctx, input.ID)
	if err != nil {
		return nil, LeadOutput{}, err
	}

	rows, err := h.orchestrator.ActionBoard(ctx, []models.Lead{*lead})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to save lead repair: %w", err)
	}

	return nil, rowToOutput(rows[0], namespace), nil
}

type LeadStatusOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h *LeadHandlers) ArchiveLead(ctx context.Context, request *mcp.CallToolRequest, input LeadIDInput) (*mcp.CallToolResult, LeadStatusOutput, error) {
	if err := h.userAction(ctx, input.ID, h.repo.ArchiveLead); err != nil {
		return nil, LeadStatusOutput{}, err
	}
	return nil, LeadStatusOutput{ID: input.ID, Status: models.NamespaceArchived}, nil
}

func (h *LeadHandlers) UnarchiveLead(ctx context.Context, request *mcp.CallToolRequest, input LeadIDInput) (*mcp.CallToolResult, LeadStatusOutput, error) {
	if err := h.userAction(ctx, input.ID, h.repo.UnarchiveLead); err != nil {
		return nil, LeadStatusOutput{}, err
	}
	return nil, LeadStatusOutput{ID: input.ID, Status: models.NamespaceActive}, nil
}

func (h *LeadHandlers) DeleteLeadPermanently(ctx context.Context, request *mcp.CallToolRequest, input LeadIDInput) (*mcp.CallToolResult, LeadStatusOutput, error) {
	if err := h.userAction(ctx, input.ID, h.repo.PermanentlyDeleteLead); err != nil {
		return nil, LeadStatusOutput{}, err
	}
	return nil, LeadStatusOutput{ID: input.ID, Status: "deleted"}, nil
}

type ImportLeadsInput struct {
	Leads  string `json:"leads" jsonschema:"JSON array of lead records (required)"`
	Source string `json:"source,omitempty" jsonschema:"Source to tag the imported leads with"`
}

type ImportLeadsOutput struct {
	Imported int      `json:"imported"`
	IDs      []string `json:"ids"`
}

func (h *LeadHandlers) ImportLeads(ctx context.Context, request *mcp.CallToolRequest, input ImportLeadsInput) (*mcp.CallToolResult, ImportLeadsOutput, error) {
	if strings.TrimSpace(input.Leads) == "" {
		return nil, ImportLeadsOutput{}, fmt.Errorf("leads is required")
	}

	decoded, err := models.DecodeLeads([]byte(input.Leads))
	if err != nil {
		return nil, ImportLeadsOutput{}, fmt.Errorf("invalid leads payload: %w", err)
	}

	leads := sync.PrepareImport(decoded, input.Source, h.orchestrator.Now())
	err = h.orchestrator.Mutate(ctx, func(ctx context.Context) error {
		return h.repo.ImportLeads(ctx, leads)
	})
	if err != nil {
		return nil, ImportLeadsOutput{}, fmt.Errorf("failed to import leads: %w", err)
	}

	ids := make([]string, len(leads))
	for i, lead := range leads {
		ids[i] = lead.ID
	}
	return nil, ImportLeadsOutput{Imported: len(leads), IDs: ids}, nil
}

type SyncStatusInput struct{}

type SyncStatusOutput struct {
	Status       string  `json:"status"`
	LastSyncTime *string `json:"last_sync_time,omitempty"`
	LastPassID   string  `json:"last_pass_id,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	ActiveCount  int     `json:"active_count"`
	ArchiveCount int     `json:"archive_count"`
}

func (h *LeadHandlers) SyncStatus(ctx context.Context, request *mcp.CallToolRequest, input SyncStatusInput) (*mcp.CallToolResult, SyncStatusOutput, error) {
	state, err := h.repo.GetSyncState(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, fmt.Errorf("failed to get sync state: %w", err)
	}
	if state == nil {
		return nil, SyncStatusOutput{Status: "never synced"}, nil
	}

	return nil, SyncStatusOutput{
		Status:       state.Status,
		LastSyncTime: formatTime(state.LastSyncTime),
		LastPassID:   state.LastPassID,
		ErrorMessage: state.ErrorMessage,
		ActiveCount:  state.ActiveCount,
		ArchiveCount: state.ArchiveCount,
	}, nil
}

// RegisterLeadTools adds every lead tool to server.
func RegisterLeadTools(server *mcp.Server, h *LeadHandlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_leads",
		Description: "List cached leads with their next action, optionally filtered by namespace and stage",
	}, h.ListLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "refresh_leads",
		Description: "Fetch leads from the server and reconcile them into the active and archived lists",
	}, h.RefreshLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "next_action",
		Description: "Get the next pipeline action for a lead",
	}, h.NextAction)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "archive_lead",
		Description: "Move a lead to the archived list",
	}, h.ArchiveLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "unarchive_lead",
		Description: "Move an archived lead back to the active list",
	}, h.UnarchiveLead)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_lead_permanently",
		Description: "Remove a lead from the cache and keep it archived on every future sync",
	}, h.DeleteLeadPermanently)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_leads",
		Description: "Import a JSON array of leads into the active list",
	}, h.ImportLeads)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Show when leads were last reconciled and how many are active and archived",
	}, h.SyncStatus)
}

func (h *LeadHandlers) getLead(ctx context.Context, id string) (*models.Lead, string, error) {
	if strings.TrimSpace(id) == "" {
		return nil, "", fmt.Errorf("id is required")
	}

	lead, namespace, err := h.repo.GetLead(ctx, id)
	if errors.Is(err, models.ErrLeadNotFound) {
		return nil, "", fmt.Errorf("lead %s not found", id)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, namespace, nil
}

func (h *LeadHandlers) userAction(ctx context.Context, id string, action func(context.Context, string) error) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("id is required")
	}
	err := h.orchestrator.Mutate(ctx, func(ctx context.Context) error {
		return action(ctx, id)
	})
	if err != nil {
		if errors.Is(err, models.ErrLeadNotFound) {
			return fmt.Errorf("lead %s not found", id)
		}
		return err
	}
	return nil
}

func rowToOutput(row sync.ActionRow, namespace string) LeadOutput {
	lead := row.Lead
	return LeadOutput{
		ID:         lead.ID,
		Name:       lead.Name,
		Phone:      lead.Phone,
		Email:      lead.Email,
		Source:     lead.Source,
		Stage:      lead.Stage,
		Namespace:  namespace,
		CreatedAt:  formatTime(lead.CreatedAt),
		ReachOut:   lead.ReachOut,
		NextAction: row.Action,
		Emphasis:   string(row.Emphasis),
		Repaired:   string(row.Repair),
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
