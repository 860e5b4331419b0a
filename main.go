// ABOUTME: Entry point for the leadsync CLI and MCP server
// ABOUTME: Loads config, opens the lead cache and routes to lead, sync, charm, MCP or TUI commands
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/harperreed/leadsync/charm"
	"github.com/harperreed/leadsync/cli"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/logging"
	"github.com/harperreed/leadsync/telemetry"
)

const version = "0.2.0"

func main() {
	os.Exit(run())
}

func run() int {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "SQLite cache path (default: ~/.local/share/leadsync/leadsync.db)")
	backend := flag.String("backend", "", "Lead cache backend: sqlite or charm")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("leadsync version %s\n", version)
		return 0
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *verbose {
		cfg.Verbose = true
	}

	logger, err := logging.New(cfg.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("device_id", cfg.DeviceID))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx); err != nil {
		logger.Warn("telemetry disabled", zap.Error(err))
	}
	defer telemetry.Shutdown(context.Background())

	app, err := cli.NewApp(cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("failed to open lead cache", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = app.Close() }()

	if err := route(ctx, app, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func route(ctx context.Context, app *cli.App, command string, args []string) error {
	switch command {
	case "mcp":
		return cli.MCPCommand(ctx, app, version, args)

	case "tui":
		return cli.TUICommand(ctx, app, args)

	case "leads":
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("leads requires a subcommand")
		}
		sub, subArgs := args[0], args[1:]
		switch sub {
		case "list":
			return cli.LeadsListCommand(ctx, app, subArgs)
		case "next":
			return cli.LeadsNextCommand(ctx, app, subArgs)
		case "archive":
			return cli.LeadsArchiveCommand(ctx, app, subArgs)
		case "unarchive":
			return cli.LeadsUnarchiveCommand(ctx, app, subArgs)
		case "delete":
			return cli.LeadsDeleteCommand(ctx, app, subArgs)
		case "import":
			return cli.LeadsImportCommand(ctx, app, subArgs)
		default:
			printUsage()
			return fmt.Errorf("unknown leads command: %s", sub)
		}

	case "sync":
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("sync requires a subcommand")
		}
		sub, subArgs := args[0], args[1:]
		switch sub {
		case "login":
			return cli.SyncLoginCommand(app, subArgs)
		case "now":
			return cli.SyncNowCommand(ctx, app, subArgs)
		case "daemon":
			return cli.SyncDaemonCommand(ctx, app, subArgs)
		case "status":
			return cli.SyncStatusCommand(ctx, app, subArgs)
		default:
			printUsage()
			return fmt.Errorf("unknown sync command: %s", sub)
		}

	case "charm":
		client, ok := app.CharmClient()
		if !ok {
			return fmt.Errorf("charm commands need --backend charm")
		}
		if len(args) == 0 {
			printUsage()
			return fmt.Errorf("charm requires a subcommand")
		}
		sub, subArgs := args[0], args[1:]
		switch sub {
		case "link":
			return charm.LinkCommand(app.Out, client, subArgs)
		case "status":
			return charm.StatusCommand(app.Out, client, subArgs)
		case "sync":
			return charm.SyncCommand(app.Out, client, subArgs)
		case "auto":
			return charm.AutoSyncCommand(app.Out, client, charm.ConfigPath(), subArgs)
		case "wipe":
			return charm.WipeCommand(app.Out, client, subArgs)
		default:
			printUsage()
			return fmt.Errorf("unknown charm command: %s", sub)
		}

	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Printf(`leadsync v%s - Lead reconciliation and follow-up toolkit

USAGE:
  leadsync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       SQLite cache path (default: ~/.local/share/leadsync/leadsync.db)
  --backend <name>       Lead cache backend: sqlite (default) or charm
  --verbose              Enable debug logging

COMMANDS:
  mcp                    Start MCP server with background sync
  tui                    Interactive lead browser with background sync
  leads                  Lead commands
  sync                   Server sync commands
  charm                  Charm KV backend commands

MCP SERVER:
  leadsync mcp
    --sync-interval <d>       Background sync interval (default 5m, minimum 1m)
    --no-sync                 Serve tools without background sync

TUI:
  leadsync tui
    --sync-interval <d>       Background sync interval (default 5m, minimum 1m)

LEAD COMMANDS:
  leadsync leads list        List leads with their next action
    --archived                List archived leads
    --stage <stage>           Filter by pipeline stage
    --limit <n>               Maximum results (default 20)
  leadsync leads next <id>   Show a lead's next action
  leadsync leads archive <id>
  leadsync leads unarchive <id>
  leadsync leads delete <id> Remove a lead and keep it archived on future syncs
  leadsync leads import <file.json>
    --source <source>         Source to tag imported leads with

SYNC COMMANDS:
  leadsync sync login        Save the lead server token
    --token <token>           Bearer token (required)
    --server <url>            Lead server URL
  leadsync sync now          Run one reconciliation pass
  leadsync sync daemon       Sync on an interval until interrupted
    --interval <d>            Time between syncs (default 5m, minimum 1m)
  leadsync sync status       Show the last sync result

CHARM COMMANDS (with --backend charm):
  leadsync charm link        Link this device to Charm Cloud
  leadsync charm status      Show connection status
  leadsync charm sync        Sync now
  leadsync charm auto        --enable|--disable auto-sync
  leadsync charm wipe        Delete all cached data (--confirm)

ENVIRONMENT:
  LEADSYNC_SERVER_URL, LEADSYNC_TOKEN, LEADSYNC_BACKEND, LEADSYNC_DB_PATH,
  LEADSYNC_PROTECTED_SOURCE, LEADSYNC_SYNC_INTERVAL, LEADSYNC_VERBOSE,
  LEADSYNC_OTEL_ENABLED, LEADSYNC_CHARM_HOST, LEADSYNC_CHARM_AUTOSYNC
`, version)
}
