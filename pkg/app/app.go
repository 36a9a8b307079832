// Package app wires configuration into a ready booking service.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/booking"
	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/device"
	"github.com/devender15/wework-claude-mcp-integration/pkg/diagnostics"
	"github.com/devender15/wework-claude-mcp-integration/pkg/history"
	"github.com/devender15/wework-claude-mcp-integration/pkg/mcp"
	"github.com/devender15/wework-claude-mcp-integration/pkg/preflight"
	"github.com/devender15/wework-claude-mcp-integration/pkg/session"
	"github.com/devender15/wework-claude-mcp-integration/pkg/tools"
)

// ServerName is the MCP server name advertised to clients
const ServerName = "wework-desk-booking"

// App holds the wired components of the booking service
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	ADB      *device.ADB
	Sessions *session.Manager
	Runner   *booking.Runner

	// nil when disabled or unavailable
	History     *history.Store
	Screenshots *diagnostics.Store
}

// New wires the booking service. Optional components that fail to start are
// logged and left out.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		ADB:      device.NewADB(cfg.Device, logger.Named("adb")),
		Sessions: session.NewManager(cfg, logger.Named("session")),
	}

	var opts []booking.RunnerOption
	if cfg.History.DatabaseURL != "" {
		if store := openHistory(ctx, cfg.History.DatabaseURL, logger); store != nil {
			a.History = store
			opts = append(opts, booking.WithRecorder(store))
		}
	}
	if cfg.Diagnostics.ScreenshotDir != "" {
		a.Screenshots = diagnostics.NewStore(cfg.Diagnostics)
		opts = append(opts, booking.WithScreenshots(a.Screenshots))
	}

	ctrl := booking.NewController(cfg, logger.Named("flow"))
	a.Runner = booking.NewRunner(ctrl, a.ADB, booking.OpenFunc(a.open), logger.Named("runner"), opts...)
	return a, nil
}

// open adapts session creation to the runner's Opener
func (a *App) open(ctx context.Context, deviceID string) (booking.Driver, error) {
	s, err := a.Sessions.Create(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openHistory(ctx context.Context, url string, logger *zap.Logger) *history.Store {
	store, err := history.Open(ctx, url, logger)
	if err != nil {
		logger.Warn("history disabled", zap.Error(err))
		return nil
	}
	if err := store.Migrate(ctx); err != nil {
		logger.Warn("history disabled", zap.Error(err))
		store.Close()
		return nil
	}
	return store
}

// Tools returns the registry of MCP tools the service exposes
func (a *App) Tools() (*tools.Registry, error) {
	return tools.NewRegistry(
		tools.NewBookDesksTool(a.Runner, a.Logger.Named("tool")),
		tools.NewDevicesTool(a.ADB),
	)
}

// MCPServer builds an MCP server with every tool registered
func (a *App) MCPServer(version string) (*mcp.Server, error) {
	registry, err := a.Tools()
	if err != nil {
		return nil, err
	}
	server := mcp.NewServer(ServerName, version, a.Logger.Named("mcp"))
	for _, t := range registry.List() {
		if err := server.RegisterTool(t); err != nil {
			return nil, err
		}
	}
	return server, nil
}

// Checker builds the preflight dependency checker
func (a *App) Checker() *preflight.Checker {
	var opts []preflight.Option
	if a.History != nil {
		opts = append(opts, preflight.WithHistory(a.History))
	}
	return preflight.NewChecker(a.Config, a.Sessions.Client(), a.ADB, opts...)
}

// Close releases held resources
func (a *App) Close() error {
	if a.History != nil {
		return a.History.Close()
	}
	return nil
}
