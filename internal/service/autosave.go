package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// ─────────────────────────────────────────────────────────────
// Autosaver: periodic save of dirty editing sessions
// ─────────────────────────────────────────────────────────────

// Autosaver saves every dirty editor on a cron schedule.
type Autosaver struct {
	spec    string
	editors func() []*Editor
	log     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewAutosaver returns a stopped autosaver for spec, a standard cron
// expression or descriptor such as "@every 30s".
func NewAutosaver(spec string, logger *slog.Logger, editors ...*Editor) *Autosaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{spec: spec, editors: func() []*Editor { return editors }, log: logger}
}

// Start schedules the saves. Calling Start on a running autosaver is a no-op.
func (a *Autosaver) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(a.spec, func() { a.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule autosave %q: %w", a.spec, err)
	}
	c.Start()
	a.cron = c
	a.log.Info("autosave scheduled", "spec", a.spec)
	return nil
}

// RunOnce saves every dirty editor and returns how many were saved.
func (a *Autosaver) RunOnce(ctx context.Context) int {
	saved := 0
	for _, e := range a.editors() {
		if !e.Dirty() {
			continue
		}
		err := e.Save(ctx)
		switch {
		case err == nil:
			saved++
		case errors.Is(err, ErrSaveInProgress):
			a.log.Debug("autosave skipped, save in progress", "page", e.PageID())
		default:
			a.log.Error("autosave failed", "page", e.PageID(), "err", err)
		}
	}
	return saved
}

// Stop cancels the schedule and waits for a running save to finish or for
// ctx to be done.
func (a *Autosaver) Stop(ctx context.Context) {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	for _, e := range a.editors() {
		e.WaitSaves(ctx)
	}
}
