// Package mcp exposes a small read-only Model Context Protocol tool
// server bound to a live StateStorage, for operators and agents to
// inspect tables, rows, and table hashes without a full client.
package mcp

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/morebtcg/bcos-framework/pkg/storage"
)

// Server is the MCP introspection server.
type Server struct {
	db     *storage.StateStorage
	host   string
	port   int
	logger *slog.Logger
}

// NewServer builds a Server bound to db, listening on host:port.
func NewServer(db *storage.StateStorage, host string, port int) *Server {
	return &Server{db: db, host: host, port: port, logger: slog.Default()}
}

// SetLogger overrides the server's structured logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// Start runs the MCP server, blocking until it stops or returns an error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	deps := &ToolDeps{DB: s.db}

	mcpSrv := mcpserver.NewMCPServer(
		"statestorage",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List the primary keys recorded in the s_tables system catalog"),
	)

	getRowTool := mcp.NewTool("get_row",
		mcp.WithDescription("Fetch a single row by table name and key"),
		mcp.WithString("table", mcp.Description("The table name"), mcp.Required()),
		mcp.WithString("key", mcp.Description("The row's primary key"), mcp.Required()),
	)

	tableHashesTool := mcp.NewTool("table_hashes",
		mcp.WithDescription("Compute the per-table digest over each local table's dirty rows"),
	)

	mcpSrv.AddTool(listTablesTool, deps.HandleListTables)
	mcpSrv.AddTool(getRowTool, deps.HandleGetRow)
	mcpSrv.AddTool(tableHashesTool, deps.HandleTableHashes)

	httpServer := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)

	s.logger.Info("starting MCP introspection server", "addr", addr)
	return httpServer.Start(addr)
}
