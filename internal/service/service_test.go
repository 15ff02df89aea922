package service_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"pagebuilder/internal/config"
	"pagebuilder/internal/service"
)

// ─────────────────────────────────────────────────────────────
// SaveGuard tests
// ─────────────────────────────────────────────────────────────

func TestSaveGuard_TryLock(t *testing.T) {
	var g service.ExportedSaveGuard

	if !g.TryLock("page-1") {
		t.Fatal("expected first TryLock to succeed")
	}
	if g.TryLock("page-1") {
		t.Fatal("expected second TryLock for same page to fail")
	}
	if !g.Busy("page-1") {
		t.Fatal("expected page-1 to be busy")
	}
	if !g.TryLock("page-2") {
		t.Fatal("expected TryLock for different page to succeed")
	}
	g.Unlock("page-1")
	g.Unlock("page-2")

	if g.Busy("page-1") {
		t.Fatal("expected page-1 to be released")
	}
	if !g.TryLock("page-1") {
		t.Fatal("expected TryLock to succeed after unlock")
	}
	g.Unlock("page-1")
}

func TestSaveGuard_WaitAll(t *testing.T) {
	var g service.ExportedSaveGuard

	if !g.TryLock("page-a") {
		t.Fatal("expected lock to succeed")
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("page-a")
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventPageSaved, "p1")
	m.Emit(ctx, service.EventPageLoaded, nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Data != "p1" {
		t.Errorf("expected data 'p1', got %v", m.Events[0].Data)
	}
	if got := m.Names(); !slices.Equal(got, []string{"page:saved", "page:loaded"}) {
		t.Errorf("names = %v", got)
	}
	m.Reset()
	if len(m.Events) != 0 {
		t.Errorf("expected no events after Reset, got %d", len(m.Events))
	}
}

// ─────────────────────────────────────────────────────────────
// CatalogRegistry tests
// ─────────────────────────────────────────────────────────────

type recordingHook struct {
	kind    string
	created []string
	deleted []string
	veto    error
}

func (h *recordingHook) ComponentType() string { return h.kind }

func (h *recordingHook) OnCreate(id, _ string) error {
	h.created = append(h.created, id)
	return nil
}

func (h *recordingHook) OnDelete(id, _ string) error {
	if h.veto != nil {
		return h.veto
	}
	h.deleted = append(h.deleted, id)
	return nil
}

func TestCatalog_Builtins(t *testing.T) {
	r := service.NewCatalogRegistry()
	d, ok := r.Defaults("heading")
	if !ok {
		t.Fatal("heading should be built in")
	}
	if d.Width != 480 || d.Height != 60 || d.Props["text"] != "Heading" {
		t.Errorf("heading defaults = %+v", d)
	}
	d.Props["text"] = "changed"
	if again, _ := r.Defaults("heading"); again.Props["text"] != "Heading" {
		t.Error("Defaults returned shared props")
	}
	if _, ok := r.Defaults("carousel"); ok {
		t.Error("unknown type should not resolve")
	}
	if !slices.Contains(r.Types(), "image") || !slices.IsSorted(r.Types()) {
		t.Errorf("types = %v", r.Types())
	}
}

func TestCatalog_FromConfig(t *testing.T) {
	r := service.CatalogFromConfig([]config.CatalogEntry{
		{Type: "hero", Width: 1200, Height: 480, Props: map[string]any{"title": "Hi"}},
		{Type: "heading", Width: 800, Height: 90},
	})
	if e, ok := r.Get("hero"); !ok || e.Width != 1200 || e.DefaultProps["title"] != "Hi" {
		t.Errorf("hero = %+v", e)
	}
	if e, _ := r.Get("heading"); e.Width != 800 {
		t.Errorf("config should override the builtin heading, got %+v", e)
	}
}

func TestCatalog_Hooks(t *testing.T) {
	r := service.NewCatalogRegistry()
	h := &recordingHook{kind: "form"}
	r.Register(h)

	if err := r.OnCreate("c1", "p", "form"); err != nil {
		t.Fatal(err)
	}
	if err := r.OnCreate("c2", "p", "text"); err != nil {
		t.Fatal(err)
	}
	if err := r.OnDelete("c1", "p", "form"); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(h.created, []string{"c1"}) || !slices.Equal(h.deleted, []string{"c1"}) {
		t.Errorf("created=%v deleted=%v", h.created, h.deleted)
	}

	h.veto = errors.New("has submissions")
	if err := r.OnDelete("c1", "p", "form"); !errors.Is(err, h.veto) {
		t.Errorf("OnDelete = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("duplicate Register should panic")
		}
	}()
	r.Register(&recordingHook{kind: "form"})
}
