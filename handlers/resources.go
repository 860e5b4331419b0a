// ABOUTME: MCP resource handlers for exposing cached leads
// ABOUTME: Provides read-only access to both namespaces, single leads and sync state via URI
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const resourceScheme = "leads://"

type ResourceHandlers struct {
	repo sync.LeadRepository
}

func NewResourceHandlers(repo sync.LeadRepository) *ResourceHandlers {
	return &ResourceHandlers{repo: repo}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")

	switch parts[0] {
	case models.NamespaceActive, models.NamespaceArchived:
		p, err := h.repo.LoadPartition(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch leads: %w", err)
		}
		if parts[0] == models.NamespaceArchived {
			return jsonResource(uri, p.Archived)
		}
		return jsonResource(uri, p.Active)

	case "lead":
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("lead id is required")
		}
		lead, _, err := h.repo.GetLead(ctx, parts[1])
		if errors.Is(err, models.ErrLeadNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch lead: %w", err)
		}
		return jsonResource(uri, lead)

	case "sync-state":
		state, err := h.repo.GetSyncState(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch sync state: %w", err)
		}
		return jsonResource(uri, state)

	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

// RegisterLeadResources adds the lead resources to server.
func RegisterLeadResources(server *mcp.Server, h *ResourceHandlers) {
	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + models.NamespaceActive,
		Name:        "active-leads",
		Description: "Leads currently in the active list",
		MIMEType:    "application/json",
	}, h.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + models.NamespaceArchived,
		Name:        "archived-leads",
		Description: "Leads currently in the archived list",
		MIMEType:    "application/json",
	}, h.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         resourceScheme + "sync-state",
		Name:        "sync-state",
		Description: "Status of the last reconciliation pass",
		MIMEType:    "application/json",
	}, h.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: resourceScheme + "lead/{id}",
		Name:        "lead",
		Description: "A single cached lead by id",
		MIMEType:    "application/json",
	}, h.ReadResource)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
