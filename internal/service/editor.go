package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/history"
	"pagebuilder/internal/patch"
	"pagebuilder/internal/rtl"
)

// ─────────────────────────────────────────────────────────────
// Editor: the single entry point for committed page edits
// ─────────────────────────────────────────────────────────────

var (
	ErrNoStore        = errors.New("no page store configured")
	ErrSaveInProgress = errors.New("save already in progress")
)

// HistoryStore persists the undo history of a page.
type HistoryStore interface {
	SaveHistory(pageID string, entries []history.Entry, cursor int) error
	LoadHistory(pageID string) ([]history.Entry, int, error)
}

// VersionStore records published snapshots of a page.
type VersionStore interface {
	Commit(p *domain.PageSchema, message string) (string, error)
}

// PageChange is the payload of EventPageChanged.
type PageChange struct {
	PageID    string                    `json:"pageId"`
	Source    string                    `json:"source"` // edit, undo, redo
	Operation domain.ComponentOperation `json:"operation"`
	Patch     patch.Patch               `json:"patch"`
}

// EntrySummary describes one history entry without its snapshot.
type EntrySummary struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"createdAt"`
	Current   bool      `json:"current"`
}

// HistoryView is what Editor.History reports.
type HistoryView struct {
	history.Info
	Entries []EntrySummary `json:"entries"`
}

type EditorOptions struct {
	Catalog    *CatalogRegistry
	HistoryMax int
	// Responsive seeds new pages; the zero value means the defaults.
	Responsive domain.ResponsiveConfig
	Pages      domain.PageStore
	History    HistoryStore
	OpLog      domain.OperationLog
	Versions   VersionStore
	Emitter    EventEmitter
	Logger     *slog.Logger
	NewID      func() string
}

// Editor owns one page, its document model and its history. All methods are
// safe for concurrent use; calls are serialized.
type Editor struct {
	mu      sync.Mutex
	page    *domain.PageSchema
	model   *document.Model
	hist    *history.Manager
	catalog *CatalogRegistry
	rev     uint64
	saved   uint64

	pages    domain.PageStore
	history  HistoryStore
	oplog    domain.OperationLog
	versions VersionStore
	emitter  EventEmitter
	log      *slog.Logger
	guard    saveGuard
	resp     domain.ResponsiveConfig
}

// NewEditor returns an editor holding an empty page.
func NewEditor(opts EditorOptions) *Editor {
	if opts.Catalog == nil {
		opts.Catalog = NewCatalogRegistry()
	}
	if opts.Emitter == nil {
		opts.Emitter = NoopEmitter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Responsive == (domain.ResponsiveConfig{}) {
		opts.Responsive = domain.DefaultResponsiveConfig()
	}
	model := document.New(opts.Catalog)
	if opts.NewID != nil {
		model.NewID = opts.NewID
	}
	e := &Editor{
		model:    model,
		hist:     history.New(opts.HistoryMax),
		catalog:  opts.Catalog,
		pages:    opts.Pages,
		history:  opts.History,
		oplog:    opts.OpLog,
		versions: opts.Versions,
		emitter:  opts.Emitter,
		log:      opts.Logger,
		resp:     opts.Responsive,
	}
	e.reset(e.NewPage(uuid.NewString()))
	return e
}

// NewPage returns an empty page using the editor's responsive defaults.
func (e *Editor) NewPage(id string) *domain.PageSchema {
	p := domain.NewPage(id)
	p.Responsive = e.resp
	return p
}

func (e *Editor) reset(p *domain.PageSchema) {
	e.page = p
	e.hist.Reset(p)
	e.model.Breakpoint = p.Responsive.ActiveBreakpoint()
}

// Page returns a copy of the current page.
func (e *Editor) Page() *domain.PageSchema {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page.Clone()
}

func (e *Editor) PageID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.page.ID
}

// Catalog returns the component catalog the editor seeds nodes from.
func (e *Editor) Catalog() *CatalogRegistry { return e.catalog }

// SetBreakpoint selects the device mode grouping measures at.
func (e *Editor) SetBreakpoint(name string) error {
	bp, err := domain.ParseBreakpoint(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model.Breakpoint = bp
	return nil
}

func (e *Editor) Breakpoint() domain.Breakpoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model.Breakpoint
}

// Dirty reports whether the page changed since the last save or restore.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rev != e.saved
}

// ── Edits ──────────────────────────────────────────────────

type mutation func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error)

// apply runs m against the current page and commits the result. Must be
// called with e.mu held.
func (e *Editor) apply(ctx context.Context, m mutation) (domain.ComponentOperation, error) {
	before := e.page
	after, op, err := m(before)
	if err != nil {
		return domain.ComponentOperation{}, err
	}
	p, err := patch.FromOperation(before, after, op)
	if err != nil {
		e.log.Warn("derive patch, falling back to diff", "op", op.Type, "err", err)
		if p, err = patch.CreatePatch(before, after); err != nil {
			return domain.ComponentOperation{}, fmt.Errorf("diff page: %w", err)
		}
	}
	e.page = after
	e.rev++
	e.hist.Commit(op, after, p)
	e.record(op, p)
	e.log.Debug("commit", "op", op.Type, "component", op.ComponentID, "patch_ops", len(p))
	e.emitChange(ctx, "edit", op, p)
	return op, nil
}

func (e *Editor) record(op domain.ComponentOperation, p patch.Patch) {
	if e.oplog == nil {
		return
	}
	data, err := json.Marshal(patch.Optimize(p))
	if err != nil {
		e.log.Warn("encode patch", "err", err)
		return
	}
	if err := e.oplog.Append(e.page.ID, op, string(data)); err != nil {
		e.log.Warn("append operation log", "page", e.page.ID, "err", err)
	}
}

func (e *Editor) emitChange(ctx context.Context, source string, op domain.ComponentOperation, p patch.Patch) {
	e.emitter.Emit(ctx, EventPageChanged, PageChange{PageID: e.page.ID, Source: source, Operation: op, Patch: p})
	e.emitter.Emit(ctx, EventHistoryChanged, e.hist.Info())
}

// Add appends a component seeded from the catalog. The new id is the
// operation's ComponentID.
func (e *Editor) Add(ctx context.Context, spec document.NodeSpec) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	op, err := e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.AddNode(p, spec)
	})
	if err != nil {
		return op, err
	}
	if err := e.catalog.OnCreate(op.ComponentID, e.page.ID, spec.Type); err != nil {
		e.log.Warn("create hook", "component", op.ComponentID, "type", spec.Type, "err", err)
	}
	return op, nil
}

// Remove deletes a component. The type's delete hook runs first and can veto.
func (e *Editor) Remove(ctx context.Context, id string) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := e.page.Find(id); n != nil {
		if err := e.catalog.OnDelete(id, e.page.ID, n.Type); err != nil {
			return domain.ComponentOperation{}, fmt.Errorf("delete hook: %w", err)
		}
	}
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.RemoveNode(p, id)
	})
}

// Update edits a component in place through fn.
func (e *Editor) Update(ctx context.Context, id string, fn func(n *domain.ComponentNode)) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.UpdateNode(p, id, fn)
	})
}

// UpdateProps merges props into a component's props. A nil value deletes
// the key.
func (e *Editor) UpdateProps(ctx context.Context, id string, props map[string]any) (domain.ComponentOperation, error) {
	return e.Update(ctx, id, func(n *domain.ComponentNode) {
		if n.Props == nil {
			n.Props = map[string]any{}
		}
		for k, v := range props {
			if v == nil {
				delete(n.Props, k)
				continue
			}
			n.Props[k] = domain.CloneValue(v)
		}
	})
}

func (e *Editor) SetLayout(ctx context.Context, id string, bp domain.Breakpoint, o *domain.LayoutOverride) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.SetLayout(p, id, bp, o)
	})
}

func (e *Editor) SetStyle(ctx context.Context, id string, bp domain.Breakpoint, s domain.Style) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.SetStyle(p, id, bp, maps.Clone(s))
	})
}

func (e *Editor) Move(ctx context.Context, id string, toIndex int) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.MoveNode(p, id, toIndex)
	})
}

func (e *Editor) Duplicate(ctx context.Context, id string) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	op, err := e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.DuplicateNode(p, id)
	})
	if err != nil {
		return op, err
	}
	if n := e.page.Find(op.ComponentID); n != nil {
		if err := e.catalog.OnCreate(n.ID, e.page.ID, n.Type); err != nil {
			e.log.Warn("create hook", "component", n.ID, "type", n.Type, "err", err)
		}
	}
	return op, nil
}

// Group groups ids; the new group id is op.Data.GroupID.
func (e *Editor) Group(ctx context.Context, ids []string) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.GroupNodes(p, ids)
	})
}

func (e *Editor) Ungroup(ctx context.Context, groupID string) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.UngroupNodes(p, groupID)
	})
}

func (e *Editor) CopyBreakpoint(ctx context.Context, from, to domain.Breakpoint) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.CopyBreakpoint(p, from, to)
	})
}

// ApplyDirection mirrors the page into dir as one undoable commit.
func (e *Editor) ApplyDirection(ctx context.Context, dir domain.Direction) (domain.ComponentOperation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, func(p *domain.PageSchema) (*domain.PageSchema, domain.ComponentOperation, error) {
		return e.model.SetDirection(p, dir)
	})
}

// SuggestDirection guesses the page direction from the page language, then
// from the text of its components.
func (e *Editor) SuggestDirection() domain.Direction {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rtl.DirectionForLanguage(e.page.Settings.Language) == domain.DirectionRTL {
		return domain.DirectionRTL
	}
	var rtlNodes, ltrNodes int
	for i := range e.page.Components {
		if rtl.DetectNodeDirection(&e.page.Components[i]) == domain.DirectionRTL {
			rtlNodes++
		} else {
			ltrNodes++
		}
	}
	if rtlNodes > ltrNodes {
		return domain.DirectionRTL
	}
	return domain.DirectionLTR
}

// ── Undo / redo ────────────────────────────────────────────

// Undo installs the previous snapshot. It reports false when there is
// nothing to undo.
func (e *Editor) Undo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.install(ctx, "undo", e.hist.Undo())
}

// Redo installs the next snapshot. It reports false when there is nothing
// to redo.
func (e *Editor) Redo(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.install(ctx, "redo", e.hist.Redo())
}

// install makes entry's snapshot current and commits it; the history manager
// swallows that commit because it handed the snapshot out.
func (e *Editor) install(ctx context.Context, source string, entry *history.Entry) bool {
	if entry == nil {
		return false
	}
	before := e.page
	p, err := patch.CreatePatch(before, entry.Page)
	if err != nil {
		e.log.Warn("diff snapshot", "err", err)
	}
	e.page = entry.Page
	e.rev++
	e.hist.Commit(entry.Operation, entry.Page, p)
	e.log.Debug(source, "entry", entry.ID, "label", entry.Label)
	e.emitChange(ctx, source, entry.Operation, p)
	return true
}

// History reports the history bounds and the entry labels.
func (e *Editor) History() HistoryView {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.hist.Entries()
	v := HistoryView{Info: e.hist.Info(), Entries: make([]EntrySummary, len(entries))}
	for i, en := range entries {
		v.Entries[i] = EntrySummary{ID: en.ID, Label: en.Label, CreatedAt: en.CreatedAt, Current: i == e.hist.Cursor()}
	}
	return v
}

// ── Lifecycle ──────────────────────────────────────────────

// Load replaces the page wholesale and starts a fresh history. The page is
// normalized and must satisfy every invariant.
func (e *Editor) Load(ctx context.Context, p *domain.PageSchema) error {
	if p == nil {
		return errors.New("load page: nil page")
	}
	p = domain.Normalize(p)
	if err := domain.Validate(p); err != nil {
		return fmt.Errorf("load page: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset(p)
	e.rev++
	e.emitter.Emit(ctx, EventPageLoaded, p.ID)
	e.emitter.Emit(ctx, EventHistoryChanged, e.hist.Info())
	return nil
}

// Restore loads a stored page and its history. History that does not end
// on the stored page is discarded.
func (e *Editor) Restore(ctx context.Context, pageID string) error {
	if e.pages == nil {
		return ErrNoStore
	}
	p, err := e.pages.LoadPage(pageID)
	if err != nil {
		return fmt.Errorf("restore page: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset(p)
	if e.history != nil {
		if err := e.restoreHistory(p); err != nil {
			e.log.Warn("history discarded", "page", pageID, "err", err)
			e.hist.Reset(p)
		}
	}
	e.rev++
	e.saved = e.rev
	e.emitter.Emit(ctx, EventPageLoaded, p.ID)
	e.emitter.Emit(ctx, EventHistoryChanged, e.hist.Info())
	return nil
}

func (e *Editor) restoreHistory(p *domain.PageSchema) error {
	entries, cursor, err := e.history.LoadHistory(p.ID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	if err := e.hist.Restore(entries, cursor); err != nil {
		return err
	}
	last := e.hist.Current().Page
	// Save stamps metadata on the stored copy only.
	last.Metadata = p.Metadata
	d, err := patch.CreatePatch(last, p)
	if err != nil {
		return err
	}
	if len(d) > 0 {
		return fmt.Errorf("history ends on a different page state (%d changes)", len(d))
	}
	return nil
}

// Save writes the page and its history. Saves of the same page never
// overlap; a concurrent call gets ErrSaveInProgress.
func (e *Editor) Save(ctx context.Context) error {
	if e.pages == nil {
		return ErrNoStore
	}
	e.mu.Lock()
	page := e.page.Clone()
	rev := e.rev
	entries := e.hist.Entries()
	cursor := e.hist.Cursor()
	e.mu.Unlock()

	if !e.guard.TryLock(page.ID) {
		return ErrSaveInProgress
	}
	defer e.guard.Unlock(page.ID)

	page.Metadata.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if err := e.pages.SavePage(page); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	if e.history != nil {
		if err := e.history.SaveHistory(page.ID, entries, cursor); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}

	e.mu.Lock()
	if e.saved < rev {
		e.saved = rev
	}
	e.mu.Unlock()
	e.log.Info("page saved", "page", page.ID, "components", len(page.Components))
	e.emitter.Emit(ctx, EventPageSaved, page.ID)
	return nil
}

// Publish commits the current page to the version store and returns the
// version id.
func (e *Editor) Publish(ctx context.Context, message string) (string, error) {
	if e.versions == nil {
		return "", errors.New("no version store configured")
	}
	page := e.Page()
	if message == "" {
		message = "publish " + page.ID
	}
	id, err := e.versions.Commit(page, message)
	if err != nil {
		return "", fmt.Errorf("publish page: %w", err)
	}
	e.log.Info("page published", "page", page.ID, "version", id)
	return id, nil
}

// Operations lists the most recent logged operations of the page.
func (e *Editor) Operations(limit int) ([]domain.LoggedOperation, error) {
	if e.oplog == nil {
		return nil, nil
	}
	return e.oplog.List(e.PageID(), limit)
}

// Changes folds the most recent logged patches, oldest first, into one
// patch. Consecutive replaces of the same path, as a drag produces, collapse
// into the last one.
func (e *Editor) Changes(limit int) (patch.Patch, error) {
	ops, err := e.Operations(limit)
	if err != nil {
		return nil, err
	}
	var out patch.Patch
	for _, lo := range ops {
		var p patch.Patch
		if err := json.Unmarshal([]byte(lo.PatchJSON), &p); err != nil {
			return nil, fmt.Errorf("decode logged patch %s: %w", lo.ID, err)
		}
		out = append(out, p...)
	}
	return patch.Optimize(out), nil
}

// WaitSaves blocks until in-flight saves finish or ctx is done.
func (e *Editor) WaitSaves(ctx context.Context) { e.guard.WaitAll(ctx) }
