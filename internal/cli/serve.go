package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/toto-dev/mcp-server-github-codeowners/internal/mcpserver"
	"github.com/toto-dev/mcp-server-github-codeowners/internal/pipeline"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Serve starts the MCP server on the configured transport.

Transports:
  stdio           speak the protocol over stdin/stdout (default)
  sse             HTTP server with Server-Sent Events sessions
  streamable-http HTTP server with the streamable HTTP transport

Example:
  mcp-github-owners serve
  mcp-github-owners serve --transport sse --port 8000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "transport: stdio, sse or streamable-http")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host for HTTP transports")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port for HTTP transports")

	_ = viper.BindPFlag("server.transport", serveCmd.Flags().Lookup("transport"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcpserver.New(pipeline.New(cfg), cfg, Version)
	return srv.Run(ctx)
}
