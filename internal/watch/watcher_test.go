package watch_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/watch"
)

func writePage(t *testing.T, path string, ids ...string) {
	t.Helper()
	p := domain.NewPage("p")
	for _, id := range ids {
		p.Components = append(p.Components, domain.ComponentNode{
			ID:      id,
			Type:    "text",
			Layout:  domain.ResponsiveLayout{Default: domain.Layout{Width: 10, Height: 10, Scale: 1, Visible: true}},
			Styles:  domain.ResponsiveStyles{Default: domain.Style{}},
			Visible: true,
		})
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPageWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.json")
	writePage(t, path, "a")

	loaded := make(chan *domain.PageSchema, 4)
	failed := make(chan error, 4)
	w, err := watch.New(func(_ context.Context, _ string, p *domain.PageSchema) error {
		loaded <- p
		return nil
	}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	w.OnError = func(_ string, err error) { failed <- err }

	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writePage(t, path, "a", "b")
	select {
	case p := <-loaded:
		if len(p.Components) != 2 {
			t.Errorf("reloaded %d components, want 2", len(p.Components))
		}
	case err := <-failed:
		t.Fatalf("reload failed: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-failed:
	case p := <-loaded:
		t.Fatalf("invalid file was loaded: %+v", p)
	case <-time.After(3 * time.Second):
		t.Fatal("no error reported for invalid file")
	}
}

func TestPageWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.json")
	writePage(t, path)

	loaded := make(chan string, 4)
	w, err := watch.New(func(_ context.Context, p string, _ *domain.PageSchema) error {
		loaded <- p
		return nil
	}, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(path); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writePage(t, filepath.Join(dir, "other.json"), "x")
	select {
	case p := <-loaded:
		t.Fatalf("unexpected reload of %s", p)
	case <-time.After(200 * time.Millisecond):
	}

	w.Unwatch(path)
	writePage(t, path, "a")
	select {
	case p := <-loaded:
		t.Fatalf("reload after Unwatch: %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPageWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{"components":[{"id":"a","type":"text","x":1,"y":2,"width":3,"height":4}]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	var got *domain.PageSchema
	w, err := watch.New(func(_ context.Context, _ string, p *domain.PageSchema) error {
		got = p
		return nil
	}, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Reload(context.Background(), path); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got == nil || got.SchemaVersion != domain.CurrentSchemaVersion || got.Find("a").Layout.Default.X != 1 {
		t.Errorf("reloaded page = %+v", got)
	}
	if err := w.Reload(context.Background(), filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
