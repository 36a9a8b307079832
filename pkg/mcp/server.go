// Package mcp exposes registered tools over the Model Context Protocol on
// stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/devender15/wework-claude-mcp-integration/pkg/metrics"
	"github.com/devender15/wework-claude-mcp-integration/pkg/tools"
)

// Server implements the MCP server protocol
type Server struct {
	mcp     *server.MCPServer
	tools   map[string]tools.Tool
	schemas map[string]*gojsonschema.Schema
	logger  *zap.Logger
	stdin   io.Reader
	stdout  io.Writer
}

// NewServer creates a new MCP server
func NewServer(name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		tools:   make(map[string]tools.Tool),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool tools.Tool) error {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(tool.InputSchema()))
	if err != nil {
		return fmt.Errorf("tool %s: invalid input schema: %w", tool.Name(), err)
	}

	s.tools[tool.Name()] = tool
	s.schemas[tool.Name()] = schema
	s.mcp.AddTool(mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), tool.InputSchema()), s.handler(tool))
	return nil
}

// Run serves JSON-RPC on stdio until ctx is done or stdin closes
func (s *Server) Run(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))

	s.logger.Info("mcp server listening on stdio", zap.Int("tools", len(s.tools)))
	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

// HandleMessage processes a single JSON-RPC message
func (s *Server) HandleMessage(ctx context.Context, msg json.RawMessage) mcp.JSONRPCMessage {
	return s.mcp.HandleMessage(ctx, msg)
}

func (s *Server) handler(tool tools.Tool) server.ToolHandlerFunc {
	name := tool.Name()
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}
		logger := s.logger.With(zap.String("tool", name))

		if err := s.validate(name, args); err != nil {
			metrics.ToolCallsTotal.WithLabelValues(name, "invalid_args").Inc()
			logger.Info("rejected tool call", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		logger.Info("tool call", zap.Any("arguments", args))
		result, err := tool.Execute(ctx, args)
		if err != nil {
			metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
			logger.Error("tool execution failed", zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !result.Success {
			metrics.ToolCallsTotal.WithLabelValues(name, "error").Inc()
			logger.Warn("tool returned error", zap.String("error", result.Error))
			return mcp.NewToolResultError(result.Output), nil
		}

		metrics.ToolCallsTotal.WithLabelValues(name, "ok").Inc()
		return mcp.NewToolResultText(result.Output), nil
	}
}

// validate checks arguments against the tool's input schema
func (s *Server) validate(name string, args map[string]interface{}) error {
	schema, ok := s.schemas[name]
	if !ok {
		return nil
	}
	res, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if res.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}
