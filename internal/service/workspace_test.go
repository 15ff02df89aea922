package service_test

import (
	"context"
	"errors"
	"testing"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

func TestWorkspace_OpenRestoresOrCreates(t *testing.T) {
	ctx := context.Background()
	pages := newMemPages()
	stored := domain.NewPage("stored")
	stored.Settings.Title = "Stored"
	if err := pages.SavePage(stored); err != nil {
		t.Fatal(err)
	}
	ws := service.NewWorkspace(service.EditorOptions{Pages: pages, History: newMemHistory(), NewID: seqIDs("c")})

	e, err := ws.Open(ctx, "stored")
	if err != nil {
		t.Fatalf("Open stored: %v", err)
	}
	if e.PageID() != "stored" || e.Page().Settings.Title != "Stored" || e.Dirty() {
		t.Errorf("stored page = %+v dirty=%v", e.Page().Settings, e.Dirty())
	}
	if again, _ := ws.Open(ctx, "stored"); again != e {
		t.Error("second Open returned a different editor")
	}

	fresh, err := ws.Open(ctx, "fresh")
	if err != nil {
		t.Fatalf("Open fresh: %v", err)
	}
	if fresh.PageID() != "fresh" || len(fresh.Page().Components) != 0 || !fresh.Dirty() {
		t.Errorf("fresh page id=%q dirty=%v", fresh.PageID(), fresh.Dirty())
	}
	if ws.ActiveID() != "fresh" {
		t.Errorf("active = %q", ws.ActiveID())
	}

	list, err := ws.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "stored" || list[1].ID != "fresh" {
		t.Errorf("list = %+v", list)
	}
}

func TestWorkspace_ResolveAndClose(t *testing.T) {
	ctx := context.Background()
	pages := newMemPages()
	ws := service.NewWorkspace(service.EditorOptions{Pages: pages, NewID: seqIDs("c")})

	active, err := ws.Resolve(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if active.PageID() == "" || ws.ActiveID() != active.PageID() {
		t.Fatalf("implicit page id=%q active=%q", active.PageID(), ws.ActiveID())
	}
	if again, _ := ws.Resolve(ctx, ""); again != active {
		t.Error("Resolve(\"\") should return the active editor")
	}

	other, _ := ws.Open(ctx, "other")
	mustAdd(t, other, document.NodeSpec{Type: "text"})
	if err := ws.Close(ctx, "other"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pages.LoadPage("other"); err != nil {
		t.Errorf("closing a dirty page should save it: %v", err)
	}
	if ws.ActiveID() != active.PageID() {
		t.Errorf("active after close = %q", ws.ActiveID())
	}
	if len(ws.Editors()) != 1 {
		t.Errorf("%d editors open", len(ws.Editors()))
	}
	if err := ws.Close(ctx, "other"); !errors.Is(err, domain.ErrPageNotFound) {
		t.Errorf("second Close = %v", err)
	}

	reopened, err := ws.Open(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}
	if len(reopened.Page().Components) != 1 {
		t.Errorf("reopened page has %d components", len(reopened.Page().Components))
	}
}

func TestWorkspace_WithoutStore(t *testing.T) {
	ws := service.NewWorkspace(service.EditorOptions{})
	e, err := ws.Open(context.Background(), "p")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if e.PageID() != "p" {
		t.Errorf("page id = %q", e.PageID())
	}
	list, _ := ws.List()
	if len(list) != 1 || list[0].ID != "p" {
		t.Errorf("list = %+v", list)
	}
	if err := ws.Close(context.Background(), "p"); err != nil {
		t.Errorf("Close without store = %v", err)
	}
}

func TestWorkspace_Autosaver(t *testing.T) {
	ctx := context.Background()
	pages := newMemPages()
	ws := service.NewWorkspace(service.EditorOptions{Pages: pages, NewID: seqIDs("c")})
	a := ws.Autosaver("@every 1h", nil)

	if n := a.RunOnce(ctx); n != 0 {
		t.Errorf("empty workspace saved %d", n)
	}
	if _, err := ws.Open(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.Open(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if n := a.RunOnce(ctx); n != 2 {
		t.Errorf("saved %d pages opened after the autosaver was built, want 2", n)
	}
}
