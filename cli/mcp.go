// ABOUTME: MCP server subcommand
// ABOUTME: Serves lead tools over stdio while the sync loop refreshes leads in the background
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/handlers"
	"github.com/harperreed/leadsync/sync"
)

// NewMCPServer builds the MCP server with every lead tool, resource and prompt.
func NewMCPServer(version string, orchestrator *sync.Orchestrator, repo sync.LeadRepository) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "leadsync",
		Version: version,
	}, nil)

	handlers.RegisterLeadTools(server, handlers.NewLeadHandlers(orchestrator, repo))
	handlers.RegisterLeadResources(server, handlers.NewResourceHandlers(repo))
	handlers.RegisterLeadPrompts(server, handlers.NewPromptHandlers(orchestrator, repo))

	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, app *App, version string, args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	interval := fs.Duration("sync-interval", app.Config.Interval(), "Background sync interval (minimum 1m)")
	noSync := fs.Bool("no-sync", false, "Disable background sync")
	_ = fs.Parse(args)

	if !*noSync && *interval < config.MinSyncInterval {
		return fmt.Errorf("sync interval %s is below the %s minimum", *interval, config.MinSyncInterval)
	}

	orchestrator, err := app.Orchestrator(ctx)
	if err != nil {
		return err
	}

	server := NewMCPServer(version, orchestrator, app.Repository())
	app.Logger.Info("starting MCP server", zap.String("version", version), zap.Bool("background_sync", !*noSync))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The client closing stdin ends the session and stops the sync loop.
		defer cancel()
		return server.Run(gctx, &mcp.StdioTransport{})
	})

	if !*noSync {
		g.Go(func() error {
			return orchestrator.Run(gctx, *interval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
