package storage_test

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/history"
	"pagebuilder/internal/migrate"
	"pagebuilder/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "data", "pagebuilder.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func node(id string, x, y float64) domain.ComponentNode {
	return domain.ComponentNode{
		ID:      id,
		Type:    "text",
		Props:   map[string]any{"text": id},
		Layout:  domain.ResponsiveLayout{Default: domain.Layout{X: x, Y: y, Width: 100, Height: 40, Scale: 1, Visible: true}},
		Styles:  domain.ResponsiveStyles{Default: domain.Style{"color": "#333"}},
		Visible: true,
	}
}

func samplePage(id string, ids ...string) *domain.PageSchema {
	p := domain.NewPage(id)
	p.Settings.Title = "Page " + id
	for i, cid := range ids {
		p.Components = append(p.Components, node(cid, float64(i*10), float64(i*20)))
	}
	return p
}

// ─────────────────────────────────────────────────────────────
// DB
// ─────────────────────────────────────────────────────────────

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagebuilder.db")
	db, err := storage.New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.NewPageStore(db).SavePage(samplePage("p1", "a")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = storage.New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, err := storage.NewPageStore(db).LoadPage("p1"); err != nil {
		t.Fatalf("LoadPage after reopen: %v", err)
	}
}

// ─────────────────────────────────────────────────────────────
// PageStore
// ─────────────────────────────────────────────────────────────

func TestPageStore_SaveLoadListDelete(t *testing.T) {
	db := openDB(t)
	s := storage.NewPageStore(db)

	p1 := samplePage("p1", "a", "b")
	p1.Metadata.UpdatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p2 := samplePage("p2")
	p2.Metadata.UpdatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range []*domain.PageSchema{p1, p2} {
		if err := s.SavePage(p); err != nil {
			t.Fatalf("SavePage %s: %v", p.ID, err)
		}
	}

	got, err := s.LoadPage("p1")
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if len(got.Components) != 2 || got.Find("b").Layout.Default.Y != 20 {
		t.Errorf("loaded components = %+v", got.Components)
	}
	if got.Components[0].Styles.Default["color"] != "#333" {
		t.Errorf("styles lost: %+v", got.Components[0].Styles)
	}

	p1.Settings.Title = "renamed"
	if err := s.SavePage(p1); err != nil {
		t.Fatalf("SavePage update: %v", err)
	}

	list, err := s.ListPages()
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(list) != 2 || list[0].ID != "p2" || list[1].Title != "renamed" {
		t.Errorf("list = %+v", list)
	}
	if list[1].SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("schema version = %d", list[1].SchemaVersion)
	}

	if err := s.DeletePage("p1"); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if _, err := s.LoadPage("p1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("LoadPage after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeletePage("p1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeletePage = %v, want ErrNotFound", err)
	}
}

func TestPageStore_SaveRequiresID(t *testing.T) {
	s := storage.NewPageStore(openDB(t))
	if err := s.SavePage(samplePage("")); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestPageStore_LoadMigratesLegacyRow(t *testing.T) {
	db := openDB(t)
	legacy := `{"components":[{"id":"a","type":"heading","x":5,"y":6,"width":100,"height":40}],"settings":{"title":"old"}}`
	_, err := db.Conn().Exec(
		`INSERT INTO pages (id, title, schema_version, schema_json) VALUES (?, ?, ?, ?)`,
		"legacy", "old", 0, legacy,
	)
	if err != nil {
		t.Fatal(err)
	}

	p, err := storage.NewPageStore(db).LoadPage("legacy")
	if err != nil {
		t.Fatalf("LoadPage: %v", err)
	}
	if p.ID != "legacy" || p.SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("id=%q version=%d", p.ID, p.SchemaVersion)
	}
	if l := p.Find("a").Layout.Default; l.X != 5 || l.Y != 6 || l.Scale != 1 {
		t.Errorf("layout = %+v", l)
	}
}

func TestDecodePage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"newer version", `{"schemaVersion": 99, "components": []}`, migrate.ErrTooNew},
		{"not json", `{`, migrate.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := storage.DecodePage([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Errorf("DecodePage = %v, want %v", err, tt.want)
			}
		})
	}

	dup := fmt.Sprintf(`{"schemaVersion": %d, "components": [
		{"id": "a", "type": "text", "layout": {"default": {"width": 1, "height": 1, "scale": 1, "visible": true}}, "styles": {"default": {}}, "visible": true},
		{"id": "a", "type": "text", "layout": {"default": {"width": 1, "height": 1, "scale": 1, "visible": true}}, "styles": {"default": {}}, "visible": true}
	]}`, domain.CurrentSchemaVersion)
	if _, err := storage.DecodePage([]byte(dup)); domain.CodeOf(err) != domain.CodeDuplicateID {
		t.Errorf("duplicate ids: %v", err)
	}

	unknown := fmt.Sprintf(`{"schemaVersion": %d, "components": [], "colour": "red"}`, domain.CurrentSchemaVersion)
	if _, err := storage.DecodePage([]byte(unknown)); err == nil {
		t.Error("unknown top-level property should fail schema validation")
	}
}

// ─────────────────────────────────────────────────────────────
// HistoryStore
// ─────────────────────────────────────────────────────────────

func entries(n int) []history.Entry {
	out := make([]history.Entry, n)
	ids := []string{}
	for i := range out {
		id := fmt.Sprintf("c%d", i)
		ids = append(ids, id)
		out[i] = history.Entry{
			ID:        fmt.Sprintf("e%d", i),
			Label:     "add " + id,
			CreatedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
			Operation: domain.ComponentOperation{Type: domain.OpAdd, ComponentID: id},
			Page:      samplePage("p", ids...),
		}
	}
	return out
}

func TestHistoryStore_RoundTrip(t *testing.T) {
	s := storage.NewHistoryStore(openDB(t), 10)

	if got, cursor, err := s.LoadHistory("p"); err != nil || got != nil || cursor != 0 {
		t.Fatalf("empty history = %v, %d, %v", got, cursor, err)
	}

	if err := s.SaveHistory("p", entries(3), 1); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}
	got, cursor, err := s.LoadHistory("p")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != 3 || cursor != 1 {
		t.Fatalf("got %d entries, cursor %d", len(got), cursor)
	}
	if got[2].Label != "add c2" || got[2].Operation.ComponentID != "c2" || len(got[2].Page.Components) != 3 {
		t.Errorf("entry 2 = %+v", got[2])
	}
	if !got[0].CreatedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("created = %v", got[0].CreatedAt)
	}

	// saving again replaces the previous rows
	if err := s.SaveHistory("p", entries(2), 1); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := s.LoadHistory("p"); len(got) != 2 {
		t.Errorf("after replace: %d entries", len(got))
	}

	if err := s.ClearHistory("p"); err != nil {
		t.Fatal(err)
	}
	if got, _, _ := s.LoadHistory("p"); got != nil {
		t.Errorf("after clear: %d entries", len(got))
	}
}

func TestHistoryStore_PrunesOldest(t *testing.T) {
	s := storage.NewHistoryStore(openDB(t), 3)
	if err := s.SaveHistory("p", entries(5), 3); err != nil {
		t.Fatal(err)
	}
	got, cursor, err := s.LoadHistory("p")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "e2" || cursor != 1 {
		t.Errorf("got %d entries starting at %s, cursor %d", len(got), got[0].ID, cursor)
	}
}

// ─────────────────────────────────────────────────────────────
// OperationLog
// ─────────────────────────────────────────────────────────────

func TestOperationLog_AppendList(t *testing.T) {
	l := storage.NewOperationLog(openDB(t))
	for _, id := range []string{"a", "b", "c"} {
		op := domain.ComponentOperation{Type: domain.OpAdd, ComponentID: id}
		if err := l.Append("p", op, `[{"op":"add","path":"/components/-","value":{}}]`); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := l.Append("other", domain.ComponentOperation{Type: domain.OpRemove, ComponentID: "x"}, ""); err != nil {
		t.Fatal(err)
	}

	got, err := l.List("p", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].Operation.ComponentID != "b" || got[1].Operation.ComponentID != "c" {
		t.Errorf("List(2) = %+v", got)
	}
	if got[0].PageID != "p" || got[0].PatchJSON == "" {
		t.Errorf("row = %+v", got[0])
	}

	all, _ := l.List("p", 0)
	if len(all) != 3 || all[0].Operation.ComponentID != "a" {
		t.Errorf("List(0) = %+v", all)
	}
	other, _ := l.List("other", 10)
	if len(other) != 1 || other[0].PatchJSON != "[]" {
		t.Errorf("other = %+v", other)
	}
}

// ─────────────────────────────────────────────────────────────
// VersionStore
// ─────────────────────────────────────────────────────────────

func TestVersionStore_CommitListRead(t *testing.T) {
	s := storage.NewVersionStore(t.TempDir())

	if vs, err := s.List("p", 0); err != nil || vs != nil {
		t.Fatalf("unpublished List = %v, %v", vs, err)
	}

	first, err := s.Commit(samplePage("p", "a"), "first")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	second, err := s.Commit(samplePage("p", "a", "b"), "second")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes")
	}
	if _, err := s.Commit(samplePage("p", "a", "b"), "unchanged"); err != nil {
		t.Fatalf("Commit of unchanged page: %v", err)
	}

	vs, err := s.List("p", 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(vs) != 2 || vs[0].Message != "unchanged" || vs[1].Hash != second {
		t.Errorf("versions = %+v", vs)
	}
	if vs[0].Author != "pagebuilder" {
		t.Errorf("author = %q", vs[0].Author)
	}

	p, err := s.Read("p", first)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(p.Components) != 1 || p.Components[0].ID != "a" {
		t.Errorf("first version components = %+v", p.Components)
	}
	p, err = s.Read("p", second[:7])
	if err != nil {
		t.Fatalf("Read short hash: %v", err)
	}
	if len(p.Components) != 2 {
		t.Errorf("second version has %d components", len(p.Components))
	}
}

func TestVersionStore_RejectsPathLikeIDs(t *testing.T) {
	s := storage.NewVersionStore(t.TempDir())
	for _, id := range []string{"", "../x", "a/b", ".git"} {
		if _, err := s.Commit(samplePage(id), "m"); err == nil {
			t.Errorf("Commit(%q) should fail", id)
		}
	}
}
