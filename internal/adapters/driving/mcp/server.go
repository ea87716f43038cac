package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultVersion is reported to clients when no version is set.
const DefaultVersion = "dev"

const shutdownTimeout = 5 * time.Second

// instructions tells MCP clients how the tools fit together.
const instructions = `docqa answers questions from indexed technical documentation.
Call "ask" with a natural-language question; the answer carries a confidence
grade and the sources it was built from. Low or none confidence means the
documentation does not cover the question. Use "index_document" to add or
replace a document, "remove_source" to drop one and "status" to check that the
index and models are reachable.`

// Server is the MCP server for docqa.
type Server struct {
	ports   *Ports
	version string
	server  *mcp.Server
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(s *Server) {
		if v != "" {
			s.version = v
		}
	}
}

// NewServer creates an MCP server exposing the given ports.
func NewServer(ports *Ports, opts ...Option) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports:   ports,
		version: DefaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}

	impl := &mcp.Implementation{
		Name:    "docqa",
		Version: s.version,
	}
	s.server = mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the context is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Info("MCP server %s on stdio", s.version)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until the context is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("MCP server shutdown: %v", err)
		}
	}()

	logger.Info("MCP server %s on %s", s.version, addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
