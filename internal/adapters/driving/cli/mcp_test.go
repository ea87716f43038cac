package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/mcp"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_RequiresServices(t *testing.T) {
	_, cleanup := setupTestServices()
	SetServices(&Services{})
	defer cleanup()

	_, _, err := execute(t, "mcp", "serve")
	assert.ErrorIs(t, err, mcp.ErrMissingAnswerService)
}

func TestMCPServeCmd_RequiresIndexService(t *testing.T) {
	ts, cleanup := setupTestServices()
	SetServices(&Services{Answer: ts.answer})
	defer cleanup()

	_, _, err := execute(t, "mcp", "serve")
	assert.ErrorIs(t, err, mcp.ErrMissingIndexService)
}

func TestMCPServeCmd_HostFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("host")
	require.NotNil(t, flag)
	assert.Equal(t, "127.0.0.1", flag.DefValue)
}
