// Package mcp provides an MCP (Model Context Protocol) server for covagent.
// Agents drive the coverage workflow through its tools: run the tests, read
// the report, rank gaps, generate test skeletons and commit the result.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/testforge/covagent/internal/config"
	"github.com/testforge/covagent/internal/metrics"
	"github.com/testforge/covagent/internal/runner"
	"github.com/testforge/covagent/internal/workflow"
)

// Server wraps the MCP server with covagent's tools.
type Server struct {
	mcpServer    *server.MCPServer
	svc          *workflow.Service
	tools        map[string]bool
	lastActivity time.Time
	timeout      time.Duration
	mu           sync.RWMutex
}

// Config holds server configuration
type Config struct {
	Tools   []string      // Which tools to expose (empty = all)
	Timeout time.Duration // Inactivity timeout (0 = no timeout)
	Version string
	// Settings supplies the defaults tools fall back to when a call omits
	// project_path and friends. Nil uses config.DefaultConfig.
	Settings *config.Config
	// Exec runs mvn, git and gh. Nil runs real processes.
	Exec runner.Executor
}

// New creates a new MCP server for covagent
func New(cfg Config) (*Server, error) {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	mcpServer := server.NewMCPServer(
		"covagent",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer:    mcpServer,
		svc:          workflow.New(cfg.Settings, cfg.Exec),
		tools:        make(map[string]bool),
		lastActivity: time.Now(),
		timeout:      cfg.Timeout,
	}

	toolsToRegister := cfg.Tools
	if len(toolsToRegister) == 0 {
		toolsToRegister = DefaultTools
	}
	for _, toolName := range toolsToRegister {
		if err := s.registerTool(toolName); err != nil {
			return nil, fmt.Errorf("failed to register tool %s: %w", toolName, err)
		}
		s.tools[toolName] = true
	}

	return s, nil
}

// registerTool registers a single tool with the MCP server
func (s *Server) registerTool(name string) error {
	schema, ok := toolSchemaRegistry[name]
	if !ok {
		return &UnknownToolError{Name: name}
	}
	if _, ok := toolHandlers[name]; !ok {
		return fmt.Errorf("tool %s has no handler", name)
	}
	s.mcpServer.AddTool(toolDefinition(schema), s.handler(name))
	return nil
}

// handler adapts a tool to the MCP transport. Failures become error
// results carrying the structured error, never protocol errors.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := s.call(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(Classify(err).JSON()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

// call runs a tool and encodes its result.
func (s *Server) call(ctx context.Context, name string, args map[string]any) (string, error) {
	s.updateActivity()

	start := time.Now()
	result, err := toolHandlers[name](s, ctx, arguments(args))
	metrics.ObserveTool(name, time.Since(start), err)
	if err != nil {
		slog.Warn("tool call failed", "tool", name, "error", err)
		return "", err
	}
	slog.Debug("tool call finished", "tool", name, "duration", time.Since(start))
	return toJSON(result)
}

// CallTool dispatches a tool call by name with the given arguments.
// Returns the JSON result string or an error.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	s.mu.RLock()
	registered := s.tools[name]
	s.mu.RUnlock()

	if !registered {
		return "", &UnknownToolError{Name: name}
	}
	return s.call(ctx, name, args)
}

// ServeStdio starts the server using stdio transport
func (s *Server) ServeStdio() error {
	if s.timeout > 0 {
		go s.timeoutChecker(context.Background(), func() {
			fmt.Fprintf(os.Stderr, "covagent serve: timeout after %v of inactivity\n", s.timeout)
			os.Exit(0)
		})
	}

	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is done or the
// inactivity timeout expires.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sse := server.NewSSEServer(s.mcpServer)
	if s.timeout > 0 {
		go s.timeoutChecker(ctx, func() {
			slog.Info("shutting down after inactivity", "timeout", s.timeout)
			cancel()
		})
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving MCP over SSE", "addr", addr)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown sse server: %w", err)
		}
		return nil
	}
}

// timeoutChecker monitors for inactivity and calls onIdle once the timeout
// is exceeded.
func (s *Server) timeoutChecker(ctx context.Context, onIdle func()) {
	ticker := time.NewTicker(s.checkInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.idleFor() > s.timeout {
				onIdle()
				return
			}
		}
	}
}

// minCheckInterval keeps tiny timeouts from producing a zero ticker interval.
const minCheckInterval = 10 * time.Millisecond

func (s *Server) checkInterval() time.Duration {
	if s.timeout < 30*time.Second {
		return max(s.timeout/2, minCheckInterval)
	}
	return 30 * time.Second
}

func (s *Server) idleFor() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastActivity)
}

// updateActivity updates the last activity timestamp
func (s *Server) updateActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// ListTools returns the registered tools in presentation order.
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tools := make([]string, 0, len(s.tools))
	for _, t := range AllTools {
		if s.tools[t] {
			tools = append(tools, t)
		}
	}
	return tools
}

// GetToolSchemas returns schemas for all registered tools.
func (s *Server) GetToolSchemas() []ToolSchema {
	names := s.ListTools()
	schemas := make([]ToolSchema, 0, len(names))
	for _, name := range names {
		schemas = append(schemas, toolSchemaRegistry[name])
	}
	return schemas
}

// ToolNames returns every known tool name, sorted.
func ToolNames() []string {
	names := make([]string, 0, len(toolSchemaRegistry))
	for name := range toolSchemaRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
