package migrate_test

import (
	"encoding/json"
	"errors"
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/migrate"
)

const unversioned = `{
  "components": [
    {"id": "a", "type": "heading", "x": 10, "y": 20, "width": 100, "height": 40, "style": {"color": "red"}},
    {"id": "b", "type": "text", "x": 50, "y": 100, "width": 60, "height": 30, "groupId": "g"},
    {"id": "c", "type": "text", "x": 200, "y": 80, "width": 40, "height": 40, "groupId": "g"}
  ],
  "settings": {"title": "legacy"}
}`

func TestUpgrade_FromUnversioned(t *testing.T) {
	p, err := migrate.Upgrade([]byte(unversioned))
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if err := domain.Validate(p); err != nil {
		t.Fatalf("upgraded page invalid: %v", err)
	}
	if p.SchemaVersion != domain.CurrentSchemaVersion {
		t.Errorf("schemaVersion = %d, want %d", p.SchemaVersion, domain.CurrentSchemaVersion)
	}
	if p.Settings.Title != "legacy" || p.Settings.Language != "en" || p.Settings.Direction != domain.DirectionLTR {
		t.Errorf("settings = %+v", p.Settings)
	}
	if p.Responsive != domain.DefaultResponsiveConfig() {
		t.Errorf("responsive = %+v", p.Responsive)
	}

	a := p.Find("a")
	want := domain.Layout{X: 10, Y: 20, Width: 100, Height: 40, Scale: 1, Visible: true}
	if a.Layout.Default != want {
		t.Errorf("a layout = %+v, want %+v", a.Layout.Default, want)
	}
	if a.Styles.Default["color"] != "red" {
		t.Errorf("a styles = %+v", a.Styles.Default)
	}
	if !a.Visible {
		t.Error("a should be visible")
	}

	f, ok := p.Groups["g"]
	if !ok {
		t.Fatal("group g has no frame")
	}
	if f.X != 50 || f.Y != 80 || f.Width != 190 || f.Height != 50 {
		t.Errorf("frame = %+v", f)
	}
	b, c := p.Find("b").Layout.Default, p.Find("c").Layout.Default
	if b.X != 0 || b.Y != 20 || c.X != 150 || c.Y != 0 {
		t.Errorf("members not relative: b=(%v,%v) c=(%v,%v)", b.X, b.Y, c.X, c.Y)
	}
}

func TestUpgrade_HoistsResponsiveOverrides(t *testing.T) {
	doc := `{
	  "schemaVersion": 1,
	  "components": [{
	    "id": "a", "type": "text",
	    "layout": {"default": {"x": 0, "y": 0, "width": 10, "height": 10, "scale": 1},
	               "responsive": {"tablet": {"x": 5}, "mobile": {}}},
	    "styles": {"default": {}, "responsive": {"mobile": {"fontSize": 12}}}
	  }]
	}`
	p, err := migrate.Upgrade([]byte(doc))
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	a := p.Find("a")
	if a.Layout.Tablet == nil || a.Layout.Tablet.X == nil || *a.Layout.Tablet.X != 5 {
		t.Errorf("tablet override = %+v", a.Layout.Tablet)
	}
	if a.Layout.Mobile != nil {
		t.Errorf("empty mobile override should be absent, got %+v", a.Layout.Mobile)
	}
	if got := domain.ResolveStyles(a, domain.BreakpointMobile)["fontSize"]; got != 12.0 {
		t.Errorf("mobile fontSize = %v", got)
	}
}

func TestUpgrade_GroupOfOneDissolved(t *testing.T) {
	doc := `{"schemaVersion": 2, "components": [
	  {"id": "a", "type": "t", "layout": {"default": {"x": 5, "y": 5, "width": 1, "height": 1}}, "groupId": "solo"}
	]}`
	p, err := migrate.Upgrade([]byte(doc))
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	a := p.Find("a")
	if a.GroupID != "" || len(p.Groups) != 0 {
		t.Errorf("group of one kept: groupId=%q groups=%v", a.GroupID, p.Groups)
	}
	if a.Layout.Default.Scale != 1 || a.Layout.Default.X != 5 {
		t.Errorf("layout = %+v", a.Layout.Default)
	}
}

func TestUpgrade_CurrentVersionUnchanged(t *testing.T) {
	page := domain.NewPage("p1")
	page.Settings.Title = "current"
	page.Components = append(page.Components, domain.ComponentNode{
		ID: "a", Type: "text", Visible: true,
		Layout: domain.ResponsiveLayout{Default: domain.Layout{Width: 10, Height: 10, Scale: 1, Visible: true}},
		Styles: domain.ResponsiveStyles{Default: domain.Style{}},
	})
	data, err := json.Marshal(page)
	if err != nil {
		t.Fatal(err)
	}
	got, err := migrate.Upgrade(data)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	again, _ := json.Marshal(got)
	if string(again) != string(data) {
		t.Errorf("current document changed:\n got %s\nwant %s", again, data)
	}
}

func TestUpgrade_Errors(t *testing.T) {
	gap := &migrate.Chain{Target: 3, Steps: map[int]migrate.Step{
		0: func(map[string]any) error { return nil },
		2: func(map[string]any) error { return nil },
	}}
	if _, err := gap.Upgrade([]byte(`{}`)); !errors.Is(err, migrate.ErrMigrationGap) {
		t.Errorf("gap: got %v, want ErrMigrationGap", err)
	}

	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"newer", `{"schemaVersion": 4}`, migrate.ErrTooNew},
		{"fractional version", `{"schemaVersion": 1.5}`, migrate.ErrMalformed},
		{"string version", `{"schemaVersion": "2"}`, migrate.ErrMalformed},
		{"not json", `{`, migrate.ErrMalformed},
		{"not an object", `null`, migrate.ErrMalformed},
		{"components not a list", `{"components": {}}`, migrate.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := migrate.Upgrade([]byte(tt.doc)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRun_StampsEachVersion(t *testing.T) {
	var seen []int
	chain := &migrate.Chain{Target: 2, Steps: map[int]migrate.Step{}}
	for v := 0; v < 2; v++ {
		chain.Steps[v] = func(doc map[string]any) error {
			got, err := migrate.Version(doc)
			if err != nil {
				return err
			}
			seen = append(seen, got)
			return nil
		}
	}
	doc := map[string]any{}
	if err := chain.Run(doc); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("steps saw versions %v", seen)
	}
	if doc["schemaVersion"] != 2.0 {
		t.Errorf("schemaVersion = %v", doc["schemaVersion"])
	}
}
