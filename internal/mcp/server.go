package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/catalog"
	"github.com/xailong-6969/LLM-Policy-Stress-Framework/internal/store"
)

// Server wraps the MCP SDK server and exposes swarm evaluation as tools.
type Server struct {
	server  *sdk.Server
	catalog *catalog.Catalog
	store   *store.Store
	logger  *slog.Logger
	root    string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "polstress")
	Version string // Server version
	Root    string // Project root directory
	Catalog *catalog.Catalog
	Logger  *slog.Logger
}

// NewServer creates a new MCP server with polstress tools.
func NewServer(cfg *Config) (*Server, error) {
	st, err := store.New(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		server:  mcpServer,
		catalog: cfg.Catalog,
		store:   st,
		logger:  logger,
		root:    cfg.Root,
	}
	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.store.Close()
	return err
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.store.Close()
}
