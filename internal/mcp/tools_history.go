package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last edit"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone edit"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Show the undo history: entry labels, the current position and whether undo or redo is possible"),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleHistory)

	s.mcp.AddTool(mcp.NewTool("operations",
		mcp.WithDescription("List the most recent committed operations with their JSON patches"),
		mcp.WithNumber("limit", mcp.Description("Maximum number of operations (optional, default 20)")),
		mcp.WithBoolean("combined", mcp.Description("Return one JSON patch folding the listed operations, with repeated replaces of a path collapsed (optional)")),
		mcp.WithString("pageId", mcp.Description("Page ID (optional, defaults to active page)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleOperations)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if !e.Undo(ctx) {
		return textResult("Nothing to undo"), nil
	}
	return jsonResult(e.History().Info)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if !e.Redo(ctx) {
		return textResult("Nothing to redo"), nil
	}
	return jsonResult(e.History().Info)
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return jsonResult(e.History())
}

func (s *Server) handleOperations(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e, err := s.editorFor(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	limit := int(req.GetFloat("limit", 20))
	if req.GetBool("combined", false) {
		p, err := e.Changes(limit)
		if err != nil {
			return nil, fmt.Errorf("combine operations: %w", err)
		}
		return jsonResult(p)
	}
	ops, err := e.Operations(limit)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return jsonResult(ops)
}
