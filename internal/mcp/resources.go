package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	currentPageURI = "page://current"
	catalogURI     = "catalog://components"
	pageURIPrefix  = "page://"
)

func (s *Server) registerResources() {
	// ── page://current ─────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		currentPageURI,
		"Active Page",
		mcp.WithResourceDescription("The page document currently being edited"),
		mcp.WithMIMEType("application/json"),
	), s.handleCurrentPageResource)

	// ── catalog://components ───────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		catalogURI,
		"Component Catalog",
		mcp.WithResourceDescription("Component types with their default size and props"),
		mcp.WithMIMEType("application/json"),
	), s.handleCatalogResource)

	// ── page://{pageId} ────────────────────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"page://{pageId}",
			"Page by ID",
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handlePageResource,
	)
}

func (s *Server) handleCurrentPageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	e, err := s.workspace.Active(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, e.Page())
}

func (s *Server) handlePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pageID := extractPageIDFromURI(req.Params.URI)
	if pageID == "" {
		return nil, fmt.Errorf("could not extract pageId from URI: %s", req.Params.URI)
	}
	if pageID == "current" {
		return s.handleCurrentPageResource(ctx, req)
	}
	e, err := s.workspace.Open(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, e.Page())
}

func (s *Server) handleCatalogResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	e, err := s.workspace.Active(ctx)
	if err != nil {
		return nil, err
	}
	cat := e.Catalog()
	types := cat.Types()
	entries := make([]any, 0, len(types))
	for _, t := range types {
		if entry, ok := cat.Get(t); ok {
			entries = append(entries, entry)
		}
	}
	return jsonResource(req.Params.URI, entries)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// extractPageIDFromURI extracts the page id from "page://{id}".
func extractPageIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, pageURIPrefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
