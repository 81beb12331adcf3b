package cmd

import (
	"context"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/contactstats/internal/logging"
	"github.com/teemow/contactstats/internal/server"
)

func TestRunStreamableHTTPServer_ClearsReadinessOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	health := server.NewHealthChecker(nil)
	require.True(t, health.IsReady())

	mcpSrv := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	err := runStreamableHTTPServer(ctx, mcpSrv, "127.0.0.1:0", nil, health, logging.Discard())

	assert.NoError(t, err)
	assert.False(t, health.IsReady())
}
