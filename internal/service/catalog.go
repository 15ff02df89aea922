package service

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"pagebuilder/internal/config"
	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Component catalog: default props and sizes per component type
// ─────────────────────────────────────────────────────────────

// CatalogEntry seeds new components of one type.
type CatalogEntry struct {
	Type         string         `json:"type"`
	DefaultProps map[string]any `json:"defaultProps,omitempty"`
	Width        float64        `json:"width"`
	Height       float64        `json:"height"`
}

// ComponentHook is notified of component lifecycle events for one type.
type ComponentHook interface {
	// ComponentType returns the type this hook handles (e.g. "form").
	ComponentType() string
	// OnCreate is called after a component of this type is added.
	OnCreate(componentID, pageID string) error
	// OnDelete is called before a component of this type is removed.
	OnDelete(componentID, pageID string) error
}

var builtinEntries = []CatalogEntry{
	{Type: "heading", Width: 480, Height: 60, DefaultProps: map[string]any{"text": "Heading", "level": 1}},
	{Type: "text", Width: 480, Height: 120, DefaultProps: map[string]any{"text": ""}},
	{Type: "image", Width: 480, Height: 360, DefaultProps: map[string]any{"src": "", "alt": ""}},
	{Type: "button", Width: 160, Height: 48, DefaultProps: map[string]any{"label": "Button", "href": ""}},
	{Type: "section", Width: 1200, Height: 480},
	{Type: "container", Width: 960, Height: 360},
	{Type: "form", Width: 540, Height: 480, DefaultProps: map[string]any{"fields": []any{}}},
	{Type: "video", Width: 640, Height: 360, DefaultProps: map[string]any{"src": ""}},
	{Type: "divider", Width: 960, Height: 2},
}

// CatalogRegistry holds catalog entries and lifecycle hooks. It satisfies
// document.Catalog.
type CatalogRegistry struct {
	mu      sync.RWMutex
	entries map[string]CatalogEntry
	hooks   map[string]ComponentHook
}

// NewCatalogRegistry returns a registry seeded with the built-in types.
func NewCatalogRegistry() *CatalogRegistry {
	r := &CatalogRegistry{
		entries: make(map[string]CatalogEntry, len(builtinEntries)),
		hooks:   make(map[string]ComponentHook),
	}
	for _, e := range builtinEntries {
		r.Put(e)
	}
	return r
}

// CatalogFromConfig returns the built-in catalog with the configured
// entries layered on top.
func CatalogFromConfig(entries []config.CatalogEntry) *CatalogRegistry {
	r := NewCatalogRegistry()
	for _, e := range entries {
		r.Put(CatalogEntry{Type: e.Type, DefaultProps: e.Props, Width: e.Width, Height: e.Height})
	}
	return r
}

// Put adds or replaces the entry for e.Type.
func (r *CatalogRegistry) Put(e CatalogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.DefaultProps = maps.Clone(e.DefaultProps)
	r.entries[e.Type] = e
}

func (r *CatalogRegistry) Get(componentType string) (CatalogEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[componentType]
	return e, ok
}

// Types lists the registered component types in sorted order.
func (r *CatalogRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.entries))
}

// Defaults implements document.Catalog. Props are deep-copied so callers
// may keep them.
func (r *CatalogRegistry) Defaults(componentType string) (document.Defaults, bool) {
	e, ok := r.Get(componentType)
	if !ok {
		return document.Defaults{}, false
	}
	props := make(map[string]any, len(e.DefaultProps))
	for k, v := range e.DefaultProps {
		props[k] = domain.CloneValue(v)
	}
	return document.Defaults{Props: props, Width: e.Width, Height: e.Height}, true
}

// Register adds a lifecycle hook. Panics on duplicate registration.
func (r *CatalogRegistry) Register(h ComponentHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := h.ComponentType()
	if _, exists := r.hooks[t]; exists {
		panic(fmt.Sprintf("catalog: duplicate hook for component type %q", t))
	}
	r.hooks[t] = h
}

// OnCreate dispatches a create event to the hook for componentType, if any.
func (r *CatalogRegistry) OnCreate(componentID, pageID, componentType string) error {
	r.mu.RLock()
	h, ok := r.hooks[componentType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.OnCreate(componentID, pageID)
}

// OnDelete dispatches a delete event to the hook for componentType, if any.
func (r *CatalogRegistry) OnDelete(componentID, pageID, componentType string) error {
	r.mu.RLock()
	h, ok := r.hooks[componentType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return h.OnDelete(componentID, pageID)
}
