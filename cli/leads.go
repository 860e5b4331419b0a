// ABOUTME: Lead CLI commands
// ABOUTME: List with next actions, archive, unarchive, permanent delete, import and next action lookup
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
)

// LeadsListCommand lists cached leads with their next action
func LeadsListCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	archived := fs.Bool("archived", false, "List archived leads instead of active ones")
	stage := fs.String("stage", "", "Filter by pipeline stage")
	limit := fs.Int("limit", 20, "Maximum number of leads to show")
	_ = fs.Parse(args)

	orchestrator, err := app.Orchestrator(ctx)
	if err != nil {
		return err
	}

	p, err := app.Repository().LoadPartition(ctx)
	if err != nil {
		return fmt.Errorf("failed to load leads: %w", err)
	}

	source := p.Active
	if *archived {
		source = p.Archived
	}

	var leads []models.Lead
	for _, lead := range source {
		if *stage != "" && lead.Stage != *stage {
			continue
		}
		leads = append(leads, lead)
		if *limit > 0 && len(leads) >= *limit {
			break
		}
	}

	rows, err := orchestrator.ActionBoard(ctx, leads)
	if err != nil {
		return fmt.Errorf("failed to save lead repairs: %w", err)
	}

	w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPHONE\tSTAGE\tSOURCE\tNEXT ACTION")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-----\t------\t-----------")

	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Lead.ID, row.Lead.Name, row.Lead.Phone, row.Lead.Stage, row.Lead.Source,
			styleAction(app.Out, row.Action, row.Emphasis))
	}

	_ = w.Flush()
	return nil
}

// LeadsNextCommand shows one lead and its next action
func LeadsNextCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("next", flag.ExitOnError)
	_ = fs.Parse(args)

	id := fs.Arg(0)
	if id == "" {
		return fmt.Errorf("usage: leadsync leads next <id>")
	}

	orchestrator, err := app.Orchestrator(ctx)
	if err != nil {
		return err
	}

	lead, namespace, err := app.Repository().GetLead(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get lead %s: %w", id, err)
	}

	rows, err := orchestrator.ActionBoard(ctx, []models.Lead{*lead})
	if err != nil {
		return fmt.Errorf("failed to save lead repair: %w", err)
	}
	row := rows[0]
	r := row.Lead.ReachOut

	fmt.Fprintf(app.Out, "Lead:        %s (%s)\n", row.Lead.Name, row.Lead.ID)
	fmt.Fprintf(app.Out, "List:        %s\n", namespace)
	fmt.Fprintf(app.Out, "Stage:       %s\n", row.Lead.Stage)
	fmt.Fprintf(app.Out, "Outreach:    %d attempts, %d connected, %d emails, %d texts\n",
		r.CallAttempts, r.CallsConnected, r.EmailCount, r.TextCount)
	fmt.Fprintf(app.Out, "Next action: %s\n", styleAction(app.Out, row.Action, row.Emphasis))
	if row.Repaired() {
		fmt.Fprintf(app.Out, "Repaired:    %s\n", row.Repair)
	}
	return nil
}

// LeadsArchiveCommand moves a lead to the archived list
func LeadsArchiveCommand(ctx context.Context, app *App, args []string) error {
	return leadAction(ctx, app, "archive", args, app.Repository().ArchiveLead, "✓ Archived lead %s\n")
}

// LeadsUnarchiveCommand moves a lead back to the active list
func LeadsUnarchiveCommand(ctx context.Context, app *App, args []string) error {
	return leadAction(ctx, app, "unarchive", args, app.Repository().UnarchiveLead, "✓ Restored lead %s\n")
}

// LeadsDeleteCommand removes a lead and keeps it archived on every future sync
func LeadsDeleteCommand(ctx context.Context, app *App, args []string) error {
	return leadAction(ctx, app, "delete", args, app.Repository().PermanentlyDeleteLead, "✓ Permanently deleted lead %s\n")
}

func leadAction(ctx context.Context, app *App, name string, args []string, action func(context.Context, string) error, done string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	_ = fs.Parse(args)

	id := fs.Arg(0)
	if id == "" {
		return fmt.Errorf("usage: leadsync leads %s <id>", name)
	}

	if err := action(ctx, id); err != nil {
		return fmt.Errorf("failed to %s lead %s: %w", name, id, err)
	}

	fmt.Fprintf(app.Out, done, id)
	return nil
}

// LeadsImportCommand imports leads from a JSON file into the active list
func LeadsImportCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	source := fs.String("source", "", "Source to tag the imported leads with")
	_ = fs.Parse(args)

	path := fs.Arg(0)
	if path == "" {
		return fmt.Errorf("usage: leadsync leads import --source <source> <file.json>")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	decoded, err := models.DecodeLeads(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	orchestrator, err := app.Orchestrator(ctx)
	if err != nil {
		return err
	}

	leads := sync.PrepareImport(decoded, *source, orchestrator.Now())
	if err := app.Repository().ImportLeads(ctx, leads); err != nil {
		return fmt.Errorf("failed to import leads: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Imported %d leads\n", len(leads))
	return nil
}
