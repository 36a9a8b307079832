// mcp-server serves the desk booking tools over MCP on stdio with no flags,
// for clients that launch a bare binary. Configuration comes from
// deskbook.yaml and DESKBOOK_* environment variables.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/app"
	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/logging"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("DESKBOOK_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	// Check dependencies but keep serving: the device may be attached later
	if _, err := a.Checker().CheckAll(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	server, err := a.MCPServer(version)
	if err != nil {
		logger.Fatal("failed to register tools", zap.Error(err))
	}

	// Logs go to stderr; stdout carries JSON-RPC
	if err := server.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
