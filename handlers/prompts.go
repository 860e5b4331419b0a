// ABOUTME: MCP prompt handlers for lead follow-up workflows
// ABOUTME: Builds prompts from cached leads and their derived next actions
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/leadsync/lifecycle"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type PromptHandlers struct {
	orchestrator *sync.Orchestrator
	repo         sync.LeadRepository
}

func NewPromptHandlers(orchestrator *sync.Orchestrator, repo sync.LeadRepository) *PromptHandlers {
	return &PromptHandlers{orchestrator: orchestrator, repo: repo}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "lead-follow-up":
		return h.getLeadFollowUpPrompt(ctx, request.Params.Arguments)
	case "outreach-plan":
		return h.getOutreachPlanPrompt(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

// RegisterLeadPrompts adds the lead prompts to server.
func RegisterLeadPrompts(server *mcp.Server, h *PromptHandlers) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "lead-follow-up",
		Description: "Draft the next follow-up for a single lead",
		Arguments: []*mcp.PromptArgument{
			{Name: "lead_id", Description: "Lead ID", Required: true},
		},
	}, h.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "outreach-plan",
		Description: "Plan today's outreach across every active lead with an outstanding action",
	}, h.GetPrompt)
}

func (h *PromptHandlers) getLeadFollowUpPrompt(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["lead_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("lead_id is required")
	}

	lead, namespace, err := h.repo.GetLead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	rows, err := h.orchestrator.ActionBoard(ctx, []models.Lead{*lead})
	if err != nil {
		return nil, fmt.Errorf("failed to save lead repair: %w", err)
	}
	row := rows[0]

	var promptText strings.Builder
	promptText.WriteString("Please help me follow up with this lead:\n\n")
	promptText.WriteString(fmt.Sprintf("Name: %s\n", lead.Name))
	if lead.Phone != "" {
		promptText.WriteString(fmt.Sprintf("Phone: %s\n", lead.Phone))
	}
	if lead.Email != "" {
		promptText.WriteString(fmt.Sprintf("Email: %s\n", lead.Email))
	}
	if lead.Source != "" {
		promptText.WriteString(fmt.Sprintf("Source: %s\n", lead.Source))
	}
	promptText.WriteString(fmt.Sprintf("Stage: %s (%s)\n", lead.Stage, namespace))

	r := row.Lead.ReachOut
	promptText.WriteString(fmt.Sprintf("\nOutreach so far: %d call attempts, %d connected, %d emails, %d texts\n",
		r.CallAttempts, r.CallsConnected, r.EmailCount, r.TextCount))

	if row.Action != "" {
		promptText.WriteString(fmt.Sprintf("Next action: %s\n", row.Action))
	} else {
		promptText.WriteString("Next action: none outstanding\n")
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. A short message I can send for the next action")
	promptText.WriteString("\n2. The best channel to use given the outreach so far")

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Follow-up for lead: %s", lead.Name),
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getOutreachPlanPrompt(ctx context.Context) (*mcp.GetPromptResult, error) {
	p, err := h.repo.LoadPartition(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	rows, err := h.orchestrator.ActionBoard(ctx, p.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to save lead repairs: %w", err)
	}

	byAction := make(map[string][]string)
	urgent := 0
	for _, row := range rows {
		if row.Action == "" {
			continue
		}
		byAction[row.Action] = append(byAction[row.Action], row.Lead.Name)
		if row.Emphasis == lifecycle.EmphasisUrgent {
			urgent++
		}
	}

	actions := make([]string, 0, len(byAction))
	for action := range byAction {
		actions = append(actions, action)
	}
	sort.Strings(actions)

	var promptText strings.Builder
	promptText.WriteString("Please plan today's outreach for these leads:\n\n")
	promptText.WriteString(fmt.Sprintf("Active leads: %d\n", len(p.Active)))
	promptText.WriteString(fmt.Sprintf("Urgent actions: %d\n\n", urgent))

	for _, action := range actions {
		names := byAction[action]
		promptText.WriteString(fmt.Sprintf("%s (%d):\n", action, len(names)))
		for _, name := range names {
			promptText.WriteString(fmt.Sprintf("  - %s\n", name))
		}
	}

	promptText.WriteString("\nPlease suggest an order to work through them and anything to batch together.")

	return &mcp.GetPromptResult{
		Description: "Outreach plan for active leads",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
