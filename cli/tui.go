// ABOUTME: Interactive terminal UI subcommand
// ABOUTME: Runs the bubbletea lead browser alongside the background sync loop
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/tui"
)

// TUICommand starts the interactive lead browser
func TUICommand(ctx context.Context, app *App, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	interval := fs.Duration("sync-interval", app.Config.Interval(), "Background sync interval (minimum 1m)")
	_ = fs.Parse(args)

	if *interval < config.MinSyncInterval {
		return fmt.Errorf("sync interval %s is below the %s minimum", *interval, config.MinSyncInterval)
	}

	renderer := tui.NewRenderer()
	// Logs would draw over the alternate screen.
	orchestrator, err := app.Orchestrator(ctx, sync.WithRenderer(renderer), sync.WithLogger(zap.NewNop()))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		tui.NewModel(ctx, orchestrator, app.Repository()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	renderer.Attach(program.Send)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return orchestrator.Run(gctx, *interval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
