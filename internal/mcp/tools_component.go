package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
)

func (s *Server) registerComponentTools() {
	// ── add_component ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_component",
		mcp.WithDescription("Add a component to the page. Size defaults come from the component catalog; position is auto-calculated if x or y is omitted."),
		mcp.WithString("type",
			mcp.Description("Component type, e.g. heading, text, image, button, section, container, form, video, divider"),
			mcp.Required(),
		),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
		mcp.WithNumber("width", mcp.Description("Width (optional, catalog default)")),
		mcp.WithNumber("height", mcp.Description("Height (optional, catalog default)")),
		mcp.WithString("props", mcp.Description(`Props as a JSON object, merged over the catalog defaults (optional), e.g. {"text":"Hello"}`)),
		mcp.WithString("styles", mcp.Description(`Default-tier styles as a JSON object (optional), e.g. {"color":"#222"}`)),
		mcp.WithString("language", mcp.Description("Content language tag (optional, defaults to the page language)")),
	), s.handleAddComponent)

	// ── update_component ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_component",
		mcp.WithDescription("Merge props into a component. A null value removes the prop."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("props", mcp.Description("Props as a JSON object"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUpdateComponent)

	// ── set_layout ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_layout",
		mcp.WithDescription("Set layout fields of a component at a breakpoint. On desktop the fields change the default layout; on tablet and mobile they are stored as overrides."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("breakpoint", mcp.Description("desktop, tablet or mobile (optional, defaults to the selected breakpoint)")),
		mcp.WithNumber("x", mcp.Description("X position")),
		mcp.WithNumber("y", mcp.Description("Y position")),
		mcp.WithNumber("width", mcp.Description("Width")),
		mcp.WithNumber("height", mcp.Description("Height")),
		mcp.WithNumber("rotation", mcp.Description("Rotation in degrees")),
		mcp.WithNumber("zIndex", mcp.Description("Stacking order")),
		mcp.WithBoolean("visible", mcp.Description("Visibility")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSetLayout)

	// ── set_style ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_style",
		mcp.WithDescription("Merge style keys into a component's style at a breakpoint. Keys not given are kept and a null value deletes a key. Tablet and mobile styles cascade over the default style."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("style", mcp.Description("Style keys to merge as a JSON object; null deletes a key"), mcp.Required()),
		mcp.WithString("breakpoint", mcp.Description("desktop, tablet or mobile (optional, defaults to the selected breakpoint)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleSetStyle)

	// ── remove_component (destructive) ─────────────────
	s.mcp.AddTool(mcp.NewTool("remove_component",
		mcp.WithDescription("Remove a component. Undo restores it."),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveComponent)

	// ── move_component ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_component",
		mcp.WithDescription("Move a component to a new position in the component order"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Target index"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleMoveComponent)

	// ── duplicate_component ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("duplicate_component",
		mcp.WithDescription("Duplicate a component with a fresh id, offset slightly from the original"),
		mcp.WithString("componentId", mcp.Description("Component ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleDuplicateComponent)

	// ── group_components ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("group_components",
		mcp.WithDescription("Group two or more ungrouped components. Member positions become relative to the group frame."),
		mcp.WithString("componentIds", mcp.Description("Comma-separated component IDs"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleGroupComponents)

	// ── ungroup_components ─────────────────────────────
	s.mcp.AddTool(mcp.NewTool("ungroup_components",
		mcp.WithDescription("Dissolve a group, restoring absolute member positions"),
		mcp.WithString("groupId", mcp.Description("Group ID"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUngroupComponents)

	// ── copy_breakpoint ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("copy_breakpoint",
		mcp.WithDescription("Copy the resolved layout and styles of every component from one breakpoint to another"),
		mcp.WithString("from", mcp.Description("Source breakpoint"), mcp.Required()),
		mcp.WithString("to", mcp.Description("Target breakpoint"), mcp.Required()),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleCopyBreakpoint)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleAddComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	e, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	spec := document.NodeSpec{
		Type:     req.GetString("type", ""),
		Width:    getFloat(args, "width", 0),
		Height:   getFloat(args, "height", 0),
		Language: req.GetString("language", ""),
	}
	if err := jsonArg(args, "props", &spec.Props); err != nil {
		return nil, err
	}
	if err := jsonArg(args, "styles", &spec.Styles); err != nil {
		return nil, err
	}

	x, hasX := args["x"].(float64)
	y, hasY := args["y"].(float64)
	if !hasX || !hasY {
		w, h := spec.Width, spec.Height
		if d, ok := e.Catalog().Defaults(spec.Type); ok {
			if w <= 0 {
				w = d.Width
			}
			if h <= 0 {
				h = d.Height
			}
		}
		x, y = s.layout.NextPosition(e.Page(), w, h)
	}
	spec.X, spec.Y = x, y

	op, err := e.Add(ctx, spec)
	return editResult(e, op, err)
}

func (s *Server) handleUpdateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	e, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	var props map[string]any
	if err := jsonArg(args, "props", &props); err != nil {
		return nil, err
	}
	if props == nil {
		return nil, fmt.Errorf("props is required")
	}
	op, err := e.UpdateProps(ctx, req.GetString("componentId", ""), props)
	return editResult(e, op, err)
}

func (s *Server) handleSetLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	e, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	bp, err := breakpointArg(args, "breakpoint", e)
	if err != nil {
		return rejection(err), nil
	}
	o := &domain.LayoutOverride{
		X:        optFloat(args, "x"),
		Y:        optFloat(args, "y"),
		Width:    optFloat(args, "width"),
		Height:   optFloat(args, "height"),
		Rotation: optFloat(args, "rotation"),
	}
	if z := optFloat(args, "zIndex"); z != nil {
		o.ZIndex = domain.Ptr(int(*z))
	}
	if v, ok := args["visible"].(bool); ok {
		o.Visible = &v
	}
	if o.IsEmpty() {
		return nil, fmt.Errorf("no layout fields given")
	}
	op, err := e.SetLayout(ctx, req.GetString("componentId", ""), bp, o)
	return editResult(e, op, err)
}

func (s *Server) handleSetStyle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	e, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	bp, err := breakpointArg(args, "breakpoint", e)
	if err != nil {
		return rejection(err), nil
	}
	var style domain.Style
	if err := jsonArg(args, "style", &style); err != nil {
		return nil, err
	}
	op, err := e.SetStyle(ctx, req.GetString("componentId", ""), bp, style)
	return editResult(e, op, err)
}

func (s *Server) handleRemoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	op, err := e.Remove(ctx, req.GetString("componentId", ""))
	return editResult(e, op, err)
}

func (s *Server) handleMoveComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	e, err := s.editorFor(ctx, args)
	if err != nil {
		return nil, err
	}
	index, ok := args["index"].(float64)
	if !ok {
		return nil, fmt.Errorf("index is required")
	}
	op, err := e.Move(ctx, req.GetString("componentId", ""), int(index))
	return editResult(e, op, err)
}

func (s *Server) handleDuplicateComponent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	op, err := e.Duplicate(ctx, req.GetString("componentId", ""))
	return editResult(e, op, err)
}

func (s *Server) handleGroupComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	op, err := e.Group(ctx, splitIDs(req.GetString("componentIds", "")))
	return editResult(e, op, err)
}

func (s *Server) handleUngroupComponents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	op, err := e.Ungroup(ctx, req.GetString("groupId", ""))
	return editResult(e, op, err)
}

func (s *Server) handleCopyBreakpoint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	from, err := domain.ParseBreakpoint(req.GetString("from", ""))
	if err != nil {
		return rejection(err), nil
	}
	to, err := domain.ParseBreakpoint(req.GetString("to", ""))
	if err != nil {
		return rejection(err), nil
	}
	op, err := e.CopyBreakpoint(ctx, from, to)
	return editResult(e, op, err)
}
