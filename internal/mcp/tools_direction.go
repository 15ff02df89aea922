package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/rtl"
)

func (s *Server) registerDirectionTools() {
	// ── set_direction ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_direction",
		mcp.WithDescription("Switch the page between left-to-right and right-to-left. Layouts and directional styles are mirrored in one undoable step; applying the current direction again changes nothing."),
		mcp.WithString("direction", mcp.Description("ltr or rtl"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSetDirection)

	// ── detect_direction ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("detect_direction",
		mcp.WithDescription("Suggest a direction for the page from its language and text, or for a given text"),
		mcp.WithString("text", mcp.Description("Text to classify instead of the page (optional)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleDetectDirection)
}

func (s *Server) handleSetDirection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	dir := domain.Direction(req.GetString("direction", ""))
	if !dir.Valid() {
		return nil, fmt.Errorf("direction must be ltr or rtl, got %q", dir)
	}
	op, err := e.ApplyDirection(ctx, dir)
	return editResult(e, op, err)
}

func (s *Server) handleDetectDirection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if text := req.GetString("text", ""); text != "" {
		return jsonResult(map[string]any{"direction": rtl.DetectDirection(text)})
	}
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	p := e.Page()
	return jsonResult(map[string]any{
		"pageId":    p.ID,
		"current":   p.DefaultDirection(),
		"suggested": e.SuggestDirection(),
	})
}
