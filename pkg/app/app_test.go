package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/devender15/wework-claude-mcp-integration/pkg/config"
	"github.com/devender15/wework-claude-mcp-integration/pkg/tools"
)

func TestNew_Defaults(t *testing.T) {
	a, err := New(context.Background(), config.Default(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Runner)
	assert.Nil(t, a.History)
	assert.Nil(t, a.Screenshots)

	registry, err := a.Tools()
	require.NoError(t, err)
	assert.Equal(t, []string{tools.BookDesksToolName, "wework_list_devices"}, registry.Names())

	server, err := a.MCPServer("test")
	require.NoError(t, err)
	assert.NotNil(t, server)
	assert.NotNil(t, a.Checker())
}

func TestNew_OptionalComponents(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.ScreenshotDir = filepath.Join(t.TempDir(), "shots")
	cfg.History.DatabaseURL = "postgres://deskbook@127.0.0.1:1/deskbook?sslmode=disable&connect_timeout=1"

	a, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.History, "unreachable history database is skipped")
	require.NotNil(t, a.Screenshots)
	assert.Equal(t, cfg.Diagnostics.ScreenshotDir, a.Screenshots.Dir())
}
