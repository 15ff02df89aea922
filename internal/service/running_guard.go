package service

import (
	"context"
	"sync"
)

// ExportedSaveGuard lets service_test reach saveGuard.
type ExportedSaveGuard = saveGuard

// ─────────────────────────────────────────────────────────────
// saveGuard: per-page save exclusion
// ─────────────────────────────────────────────────────────────

// saveGuard tracks which pages are being written. Autosave ticks and
// explicit saves go through the same guard, so a page is written by at most
// one of them at a time, while different pages save in parallel.
type saveGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// TryLock claims pageID for a save. A false result means another save holds
// the page and the caller should skip or report ErrSaveInProgress.
func (g *saveGuard) TryLock(pageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, busy := g.inFlight[pageID]; busy {
		return false
	}
	g.inFlight[pageID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock gives pageID back. Every successful TryLock is paired with one Unlock.
func (g *saveGuard) Unlock(pageID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, pageID)
	g.wg.Done()
}

// Busy is true while pageID is claimed.
func (g *saveGuard) Busy(pageID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[pageID]
	return busy
}

// WaitAll returns once no page is claimed, or earlier if ctx ends first.
func (g *saveGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
