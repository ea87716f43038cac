package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil answer service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Index: &mockIndexService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingAnswerService)
	})

	t.Run("nil index service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingIndexService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Answer: &mockAnswerService{},
			Index:  &mockIndexService{},
		})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestNewServer_Version(t *testing.T) {
	ports := &Ports{Answer: &mockAnswerService{}, Index: &mockIndexService{}}

	server, err := NewServer(ports)
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, server.version)

	server, err = NewServer(ports, WithVersion("1.4.0"))
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", server.version)

	server, err = NewServer(ports, WithVersion(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, server.version)
}

func TestServer_RunHTTP_StopsOnCancel(t *testing.T) {
	server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Index: &mockIndexService{}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.RunHTTP(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestPorts_Validate(t *testing.T) {
	t.Run("empty ports returns error", func(t *testing.T) {
		ports := &Ports{}
		assert.ErrorIs(t, ports.Validate(), ErrMissingAnswerService)
	})

	t.Run("status is optional", func(t *testing.T) {
		ports := &Ports{
			Answer: &mockAnswerService{},
			Index:  &mockIndexService{},
		}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Answer: &mockAnswerService{},
			Index:  &mockIndexService{},
			Status: &mockStatusService{},
		}
		assert.NoError(t, ports.Validate())
	})
}
