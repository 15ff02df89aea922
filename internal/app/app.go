// Package app wires storage, the editor workspace and the front ends
// together from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/watch"
)

// App owns the long-lived pieces of a pagebuilder process.
type App struct {
	cfg config.Config
	log *slog.Logger

	db        *storage.DB
	pages     *storage.PageStore
	history   *storage.HistoryStore
	versions  *storage.VersionStore
	workspace *service.Workspace
	autosave  *service.Autosaver
	watcher   *watch.PageWatcher
}

// New opens the database and builds the workspace. Nothing runs in the
// background until Startup.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		cfg:     cfg,
		log:     logger,
		db:      db,
		pages:   storage.NewPageStore(db),
		history: storage.NewHistoryStore(db, cfg.HistoryMax),
	}
	opts := service.EditorOptions{
		Catalog:    service.CatalogFromConfig(cfg.Catalog),
		HistoryMax: cfg.HistoryMax,
		Responsive: cfg.Responsive(),
		Pages:      a.pages,
		History:    a.history,
		OpLog:      storage.NewOperationLog(db),
		Emitter:    service.LogEmitter{Logger: logger},
		Logger:     logger,
	}
	if cfg.Versions {
		a.versions = storage.NewVersionStore(cfg.VersionsDir())
		opts.Versions = a.versions
	}
	a.workspace = service.NewWorkspace(opts)

	if cfg.Autosave != "" {
		a.autosave = a.workspace.Autosaver(cfg.Autosave, logger)
	}
	return a, nil
}

func (a *App) Workspace() *service.Workspace { return a.workspace }

// Versions returns the version store, or nil when versioning is off.
func (a *App) Versions() *storage.VersionStore { return a.versions }

func (a *App) Pages() *storage.PageStore { return a.pages }

// Startup starts autosave. It is safe to call once per App.
func (a *App) Startup(ctx context.Context) error {
	if a.autosave != nil {
		if err := a.autosave.Start(ctx); err != nil {
			return err
		}
	}
	a.log.Info("app started", "data_dir", a.cfg.DataDir, "db", a.db.Path(), "versions", a.versions != nil)
	return nil
}

// WatchFile loads the page file at path into the workspace and reloads it
// whenever the file changes.
func (a *App) WatchFile(ctx context.Context, path string) error {
	if a.watcher == nil {
		w, err := watch.New(a.loadFromFile, 0, a.log)
		if err != nil {
			return err
		}
		w.OnError = func(path string, err error) {
			a.log.Warn("page file rejected, keeping last good version", "path", path, "err", err)
		}
		a.watcher = w
		go w.Run(ctx)
	}
	if err := a.watcher.Reload(ctx, path); err != nil {
		return err
	}
	return a.watcher.Watch(path)
}

func (a *App) loadFromFile(ctx context.Context, path string, p *domain.PageSchema) error {
	e, err := a.workspace.Open(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := e.Load(ctx, p); err != nil {
		return err
	}
	a.log.Info("page loaded from file", "path", path, "page", p.ID, "components", len(p.Components))
	return nil
}

// ClearHistory drops the stored undo history of a page.
func (a *App) ClearHistory(pageID string) error {
	if _, err := a.pages.LoadPage(pageID); err != nil {
		return err
	}
	return a.history.ClearHistory(pageID)
}

// Shutdown stops background work, saves dirty pages and closes the
// database.
func (a *App) Shutdown(ctx context.Context) error {
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.autosave != nil {
		a.autosave.Stop(ctx)
	}
	var errs []error
	for _, e := range a.workspace.Editors() {
		e.WaitSaves(ctx)
		if !e.Dirty() {
			continue
		}
		if err := e.Save(ctx); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", e.PageID(), err))
		}
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	a.log.Info("app stopped")
	return errors.Join(errs...)
}
