package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Workspace: the set of open editing sessions
// ─────────────────────────────────────────────────────────────

// Workspace opens one Editor per page on demand and tracks which page is
// active for callers that do not name one.
type Workspace struct {
	opts EditorOptions

	mu      sync.Mutex
	editors map[string]*Editor
	order   []string
	active  string
}

// NewWorkspace returns an empty workspace. Every editor it opens is built
// from opts.
func NewWorkspace(opts EditorOptions) *Workspace {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Workspace{opts: opts, editors: make(map[string]*Editor)}
}

// Open returns the editor of pageID, restoring it from the page store on
// first use. A page the store does not know starts empty with that id. An
// empty pageID creates a new page. The opened page becomes active.
func (w *Workspace) Open(ctx context.Context, pageID string) (*Editor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.editors[pageID]; ok {
		w.active = pageID
		return e, nil
	}
	if pageID == "" {
		pageID = uuid.NewString()
	}

	e := NewEditor(w.opts)
	err := ErrNoStore
	if w.opts.Pages != nil {
		err = e.Restore(ctx, pageID)
	}
	switch {
	case err == nil:
	case errors.Is(err, ErrNoStore), errors.Is(err, domain.ErrPageNotFound):
		if err := e.Load(ctx, e.NewPage(pageID)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("open page %s: %w", pageID, err)
	}

	w.editors[pageID] = e
	w.order = append(w.order, pageID)
	w.active = pageID
	w.opts.Logger.Info("page opened", "page", pageID, "components", len(e.Page().Components))
	return e, nil
}

// Active returns the active editor, opening a new page when none is open.
func (w *Workspace) Active(ctx context.Context) (*Editor, error) {
	w.mu.Lock()
	e, ok := w.editors[w.active]
	w.mu.Unlock()
	if ok {
		return e, nil
	}
	return w.Open(ctx, "")
}

// Resolve returns the editor of pageID, or the active one when pageID is
// empty.
func (w *Workspace) Resolve(ctx context.Context, pageID string) (*Editor, error) {
	if pageID == "" {
		return w.Active(ctx)
	}
	return w.Open(ctx, pageID)
}

// ActiveID returns the id of the active page, or "".
func (w *Workspace) ActiveID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Editors returns the open editors in the order they were opened.
func (w *Workspace) Editors() []*Editor {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Editor, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.editors[id])
	}
	return out
}

// Close saves a dirty page and forgets its editor.
func (w *Workspace) Close(ctx context.Context, pageID string) error {
	w.mu.Lock()
	e, ok := w.editors[pageID]
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("close page %s: %w", pageID, domain.ErrPageNotFound)
	}
	if e.Dirty() && w.opts.Pages != nil {
		if err := e.Save(ctx); err != nil {
			return fmt.Errorf("close page %s: %w", pageID, err)
		}
	}
	e.WaitSaves(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.editors, pageID)
	w.order = slices.DeleteFunc(w.order, func(id string) bool { return id == pageID })
	if w.active == pageID {
		w.active = ""
		if n := len(w.order); n > 0 {
			w.active = w.order[n-1]
		}
	}
	return nil
}

// List returns the stored pages followed by open pages that were never
// saved.
func (w *Workspace) List() ([]domain.PageSummary, error) {
	var out []domain.PageSummary
	if w.opts.Pages != nil {
		stored, err := w.opts.Pages.ListPages()
		if err != nil {
			return nil, err
		}
		out = stored
	}
	known := make(map[string]bool, len(out))
	for _, s := range out {
		known[s.ID] = true
	}
	for _, e := range w.Editors() {
		p := e.Page()
		if known[p.ID] {
			continue
		}
		out = append(out, domain.PageSummary{
			ID:            p.ID,
			Title:         p.Settings.Title,
			SchemaVersion: p.SchemaVersion,
			UpdatedAt:     p.Metadata.UpdatedAt,
		})
	}
	return out, nil
}

// Autosaver returns a stopped autosaver over every editor the workspace has
// open at the time of each run.
func (w *Workspace) Autosaver(spec string, logger *slog.Logger) *Autosaver {
	a := NewAutosaver(spec, logger)
	a.editors = w.Editors
	return a
}
