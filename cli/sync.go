// ABOUTME: Lead sync CLI commands
// ABOUTME: Handles token login, one-off refreshes, the background daemon and sync status
package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/sync"
)

// SyncLoginCommand stores the lead server token and optionally its URL
func SyncLoginCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	token := fs.String("token", "", "Bearer token for the lead server (required)")
	server := fs.String("server", "", "Lead server URL to save in the config")
	_ = fs.Parse(args)

	if *token == "" {
		return fmt.Errorf("usage: leadsync sync login --token <token> [--server <url>]")
	}

	if err := sync.SaveToken("", &oauth2.Token{AccessToken: *token, TokenType: "Bearer"}); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	fmt.Fprintf(app.Out, "✓ Token saved to %s\n", sync.TokenPath())

	if *server != "" {
		app.Config.ServerURL = *server
		if err := app.Config.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(app.Out, "✓ Server set to %s\n", *server)
	}

	return nil
}

// SyncNowCommand runs one reconciliation pass
func SyncNowCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("now", flag.ExitOnError)
	_ = fs.Parse(args)

	orchestrator, err := app.Orchestrator(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "Syncing leads...")

	summary, err := orchestrator.Refresh(ctx, sync.TriggerManual)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(app.Out, "✓ Fetched %d leads in %s\n", summary.Fetched, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(app.Out, "  Active:   %d\n", summary.Active)
	fmt.Fprintf(app.Out, "  Archived: %d\n", summary.Archived)
	return nil
}

// SyncDaemonCommand refreshes leads on an interval until ctx is cancelled
func SyncDaemonCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	interval := fs.Duration("interval", app.Config.Interval(), "Time between syncs (minimum 1m)")
	_ = fs.Parse(args)

	if *interval < config.MinSyncInterval {
		return fmt.Errorf("interval %s is below the %s minimum", *interval, config.MinSyncInterval)
	}

	orchestrator, err := app.Orchestrator(ctx)
	if err != nil {
		return err
	}

	app.Logger.Info("sync daemon started", zap.Duration("interval", *interval))
	fmt.Fprintf(app.Out, "Syncing leads every %s (Ctrl+C to stop)\n", *interval)

	if err := orchestrator.Run(ctx, *interval); err != nil {
		return err
	}

	app.Logger.Info("sync daemon stopped")
	return nil
}

// SyncStatusCommand shows the outcome of the last reconciliation pass
func SyncStatusCommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	state, err := app.Repository().GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	fmt.Fprintln(app.Out, "Lead Sync Status")
	fmt.Fprintln(app.Out, "────────────────")

	server := app.Config.ServerURL
	if server == "" {
		server = "(not configured)"
	}
	fmt.Fprintf(app.Out, "Server:    %s\n", server)
	fmt.Fprintf(app.Out, "Backend:   %s\n", app.Config.Backend)

	if state == nil {
		fmt.Fprintln(app.Out, "Status:    never synced")
		return nil
	}

	fmt.Fprintf(app.Out, "Status:    %s\n", state.Status)
	if state.LastSyncTime != nil {
		fmt.Fprintf(app.Out, "Last sync: %s (%s ago)\n",
			state.LastSyncTime.Local().Format("2006-01-02 15:04:05"),
			time.Since(*state.LastSyncTime).Round(time.Second))
	}
	fmt.Fprintf(app.Out, "Active:    %d\n", state.ActiveCount)
	fmt.Fprintf(app.Out, "Archived:  %d\n", state.ArchiveCount)
	if state.ErrorMessage != "" {
		fmt.Fprintf(app.Out, "Error:     %s\n", state.ErrorMessage)
	}

	return nil
}
