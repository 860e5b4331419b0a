// ABOUTME: Shared wiring for CLI commands
// ABOUTME: Opens the configured lead cache backend and builds the fetcher and orchestrator
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/harperreed/leadsync/charm"
	"github.com/harperreed/leadsync/config"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/telemetry"
)

// App holds the opened store and the collaborators every command shares.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *telemetry.Metrics
	Out     io.Writer

	repo  sync.LeadRepository
	charm *charm.Client
}

// NewApp opens the lead cache selected by cfg.Backend.
func NewApp(cfg *config.Config, logger *zap.Logger, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if out == nil {
		out = os.Stdout
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: telemetry.NewMetrics(nil),
		Out:     out,
	}

	switch cfg.Backend {
	case config.BackendCharm:
		charmCfg, err := charm.LoadConfig()
		if err != nil {
			return nil, err
		}
		client, err := charm.NewClient(charmCfg)
		if err != nil {
			return nil, err
		}
		app.charm = client
		app.repo = charm.NewLeadStore(client)
		logger.Debug("opened charm lead cache", zap.String("host", charmCfg.Host))

	default:
		path := cfg.DBPath
		if path == "" {
			path = db.DefaultPath()
		}
		cache, err := db.OpenLeadCache(path)
		if err != nil {
			return nil, err
		}
		app.repo = cache
		logger.Debug("opened sqlite lead cache", zap.String("path", path))
	}

	return app, nil
}

// NewAppWithRepository wraps an already opened repository.
func NewAppWithRepository(cfg *config.Config, repo sync.LeadRepository, logger *zap.Logger, out io.Writer) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{Config: cfg, Logger: logger, Metrics: telemetry.NewMetrics(nil), Out: out, repo: repo}
}

// Repository returns the opened lead cache.
func (a *App) Repository() sync.LeadRepository {
	return a.repo
}

// CharmClient returns the charm client when the charm backend is open.
func (a *App) CharmClient() (*charm.Client, bool) {
	return a.charm, a.charm != nil
}

func (a *App) Close() error {
	return a.repo.Close()
}

// Orchestrator builds an orchestrator reconciling the configured server into
// the opened cache. Without a server URL every fetch fails with
// sync.ErrNoServerURL, so read-only commands still work.
func (a *App) Orchestrator(ctx context.Context, opts ...sync.Option) (*sync.Orchestrator, error) {
	fetcher, err := a.fetcher(ctx)
	if err != nil {
		return nil, err
	}

	base := []sync.Option{
		sync.WithLogger(a.Logger),
		sync.WithMetrics(a.Metrics),
	}
	if a.Config.ProtectedSource != "" {
		base = append(base, sync.WithProtectedSource(a.Config.ProtectedSource))
	}

	return sync.NewOrchestrator(fetcher, a.repo, append(base, opts...)...), nil
}

func (a *App) fetcher(ctx context.Context) (sync.Fetcher, error) {
	if a.Config.ServerURL == "" {
		return sync.FetcherFunc(func(context.Context) ([]models.Lead, error) {
			return nil, sync.ErrNoServerURL
		}), nil
	}

	token, err := a.token()
	if err != nil {
		return nil, err
	}

	inner, err := sync.NewHTTPFetcher(ctx, a.Config.ServerURL, token)
	if err != nil {
		return nil, err
	}
	return sync.NewRetryFetcher(inner, a.Logger), nil
}

// token prefers the configured token over the stored one. No token at all is
// allowed for servers that do not require one.
func (a *App) token() (*oauth2.Token, error) {
	if a.Config.Token != "" {
		return &oauth2.Token{AccessToken: a.Config.Token, TokenType: "Bearer"}, nil
	}

	token, err := sync.LoadToken("")
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load server token: %w", err)
	}
	return token, nil
}
