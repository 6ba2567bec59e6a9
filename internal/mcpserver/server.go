// Package mcpserver exposes ownership resolution as MCP (Model Context
// Protocol) tools. The server speaks stdio by default and can also serve
// SSE or streamable HTTP for networked deployments.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/model"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pipeline"
)

const serverName = "github-owners"

const instructions = `This MCP server exposes ownership information for files contained in
GitHub repositories, derived from each repository's CODEOWNERS file.`

// Server holds the MCP server state
type Server struct {
	pipeline *pipeline.Pipeline
	cfg      *model.Config
	version  string
}

// New creates an MCP server backed by the given pipeline
func New(p *pipeline.Pipeline, cfg *model.Config, version string) *Server {
	return &Server{pipeline: p, cfg: cfg, version: version}
}

// build assembles the underlying MCP server with all tools registered
func (s *Server) build() *mcp.Server {
	srv := mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: s.version},
		&mcp.ServerOptions{Instructions: instructions},
	)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "get_file_owner",
		Description: "Returns the owners of the specified file in the GitHub repository. " +
			"The owners are derived from the CODEOWNERS file in the repository; " +
			"team owners are expanded into individual members.",
	}, s.handleGetFileOwner)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_file_exists",
		Description: "Returns whether the given file exists in the GitHub repository.",
	}, s.handleGetFileExists)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "resolve_owners",
		Description: "Resolves ownership for a batch of file paths in one call. " +
			"Each result carries the final owner set, the winning CODEOWNERS rule " +
			"and any diagnostics recorded during resolution.",
	}, s.handleResolveOwners)

	return srv
}

// Run starts the server on the configured transport and blocks until the
// context is cancelled or the transport closes.
func (s *Server) Run(ctx context.Context) error {
	srv := s.build()

	switch s.cfg.Server.Transport {
	case "stdio":
		slog.Info("starting MCP server", "transport", "stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	case "sse":
		handler := mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return srv })
		return s.serveHTTP(ctx, handler)
	case "streamable-http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil)
		return s.serveHTTP(ctx, handler)
	default:
		return fmt.Errorf("unknown transport %q (expected stdio, sse or streamable-http)", s.cfg.Server.Transport)
	}
}

func (s *Server) serveHTTP(ctx context.Context, handler http.Handler) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	httpSrv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("starting MCP server", "transport", s.cfg.Server.Transport, "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
