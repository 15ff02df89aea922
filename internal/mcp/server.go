package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// Server is the MCP server of the page builder. It exposes editor
// operations as tools so that agents can build pages.
type Server struct {
	mcp       *server.MCPServer
	workspace *service.Workspace
	versions  *storage.VersionStore
	layout    *LayoutEngine
	log       *slog.Logger
}

// Deps holds everything the server needs from the app layer.
type Deps struct {
	Workspace *service.Workspace
	// Versions is optional; without it list_versions reports an error.
	Versions *storage.VersionStore
	Logger   *slog.Logger
	Version  string
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := &Server{
		workspace: deps.Workspace,
		versions:  deps.Versions,
		layout:    NewLayoutEngine(),
		log:       deps.Logger,
	}

	s.mcp = server.NewMCPServer(
		"pagebuilder-mcp",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerComponentTools()
	s.registerDirectionTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info("starting MCP stdio server")
	return server.ServeStdio(s.mcp)
}

// MCP returns the underlying server, for transports other than stdio.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// editResult reports a committed edit, or the rejection as a tool error the
// agent can read. Rejections carry the reason code.
func editResult(e *service.Editor, op domain.ComponentOperation, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return rejection(err), nil
	}
	return jsonResult(map[string]any{
		"pageId":    e.PageID(),
		"operation": op,
		"history":   e.History().Info,
	})
}

func rejection(err error) *mcp.CallToolResult {
	var de *domain.Error
	if errors.As(err, &de) {
		data, _ := json.Marshal(de)
		return mcp.NewToolResultError(string(data))
	}
	return mcp.NewToolResultError(err.Error())
}

// editorFor returns the editor of the pageId argument, or the active one.
func (s *Server) editorFor(ctx context.Context, args map[string]any) (*service.Editor, error) {
	pageID, _ := args["pageId"].(string)
	return s.workspace.Resolve(ctx, pageID)
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

// optFloat returns a pointer to args[key], or nil when it is absent.
func optFloat(args map[string]any, key string) *float64 {
	if v, ok := args[key].(float64); ok {
		return &v
	}
	return nil
}

// splitIDs parses a comma-separated id list.
func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// jsonArg decodes a JSON object passed as a string argument. An absent
// argument leaves target untouched.
func jsonArg(args map[string]any, key string, target any) error {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("%s: invalid JSON: %w", key, err)
	}
	return nil
}

func breakpointArg(args map[string]any, key string, e *service.Editor) (domain.Breakpoint, error) {
	name, _ := args[key].(string)
	if name == "" {
		return e.Breakpoint(), nil
	}
	return domain.ParseBreakpoint(name)
}
