package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPageTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List stored pages and pages open in this session"),
	), s.handleListPages)

	// ── open_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_page",
		mcp.WithDescription("Open a page and make it active. Unknown ids start a new empty page; omit pageId for a fresh id."),
		mcp.WithString("pageId", mcp.Description("Page ID (optional)")),
	), s.handleOpenPage)

	// ── close_page ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("close_page",
		mcp.WithDescription("Close an open page, saving it first when it has unsaved changes"),
		mcp.WithString("pageId", mcp.Description("Page ID"), mcp.Required()),
	), s.handleClosePage)

	// ── get_page ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Return the full page document: components, settings, responsive config and group frames"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetPage)

	// ── set_breakpoint ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_breakpoint",
		mcp.WithDescription("Select the device mode (desktop, tablet, mobile) that layout edits and grouping apply to"),
		mcp.WithString("breakpoint", mcp.Description("desktop, tablet or mobile"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSetBreakpoint)

	// ── save_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Persist the page and its undo history"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSavePage)

	// ── publish_page ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("publish_page",
		mcp.WithDescription("Publish the current state of the page as a new version"),
		mcp.WithString("message", mcp.Description("Version message (optional)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handlePublishPage)

	// ── list_versions ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List published versions of a page, newest first"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of versions (optional, default 20)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListVersions)
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.workspace.List()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(map[string]any{"active": s.workspace.ActiveID(), "pages": pages})
}

func (s *Server) handleOpenPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.workspace.Open(ctx, req.GetString("pageId", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(e.Page())
}

func (s *Server) handleClosePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID := req.GetString("pageId", "")
	if err := s.workspace.Close(ctx, pageID); err != nil {
		return nil, fmt.Errorf("close page: %w", err)
	}
	return textResult(fmt.Sprintf("Page %s closed", pageID)), nil
}

func (s *Server) handleGetPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return jsonResult(e.Page())
}

func (s *Server) handleSetBreakpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := e.SetBreakpoint(req.GetString("breakpoint", "")); err != nil {
		return rejection(err), nil
	}
	return textResult(fmt.Sprintf("Breakpoint set to %s", e.Breakpoint())), nil
}

func (s *Server) handleSavePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := e.Save(ctx); err != nil {
		return nil, fmt.Errorf("save page: %w", err)
	}
	return textResult(fmt.Sprintf("Page %s saved", e.PageID())), nil
}

func (s *Server) handlePublishPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	id, err := e.Publish(ctx, req.GetString("message", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]string{"pageId": e.PageID(), "version": id})
}

func (s *Server) handleListVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.versions == nil {
		return nil, fmt.Errorf("versions are disabled")
	}
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.List(e.PageID(), int(req.GetFloat("limit", 20)))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return jsonResult(versions)
}
