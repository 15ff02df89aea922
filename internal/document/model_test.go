package document_test

import (
	"math"
	"testing"

	"pagebuilder/internal/document"
	"pagebuilder/internal/domain"
)

type catalog map[string]document.Defaults

func (c catalog) Defaults(t string) (document.Defaults, bool) {
	d, ok := c[t]
	return d, ok
}

var testCatalog = catalog{
	"heading": {Props: map[string]any{"text": "Heading", "level": 1}, Width: 480, Height: 60},
	"image":   {Props: map[string]any{"src": ""}, Width: 300, Height: 300},
}

func seqIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i]
		i++
		return id
	}
}

func newModel(ids ...string) *document.Model {
	m := document.New(testCatalog)
	m.NewID = seqIDs(ids...)
	return m
}

// build adds one heading at each position, drawing ids from m.
func build(t *testing.T, m *document.Model, at ...[2]float64) *domain.PageSchema {
	t.Helper()
	p := domain.NewPage("page")
	for _, xy := range at {
		var err error
		p, _, err = m.AddNode(p, document.NodeSpec{Type: "heading", X: xy[0], Y: xy[1]})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return p
}

func TestAddNode(t *testing.T) {
	m := newModel("h1")
	p := domain.NewPage("page")

	out, op, err := m.AddNode(p, document.NodeSpec{Type: "heading", X: 10, Y: 20, Props: map[string]any{"text": "Hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Components) != 0 {
		t.Fatal("input page was mutated")
	}
	n := out.Find("h1")
	if n == nil {
		t.Fatal("node not added")
	}
	if n.Layout.Default.Width != 480 || n.Layout.Default.Height != 60 || n.Layout.Default.Scale != 1 {
		t.Errorf("layout = %+v", n.Layout.Default)
	}
	if n.Props["text"] != "Hi" || n.Props["level"] != 1 {
		t.Errorf("props = %v", n.Props)
	}
	if !n.Visible || n.Direction != domain.DirectionLTR || n.Language != "en" {
		t.Errorf("seeded fields wrong: %+v", n)
	}
	if op.Type != domain.OpAdd || op.ComponentID != "h1" || *op.TargetIndex != 0 {
		t.Errorf("op = %+v", op)
	}
	n.Props["level"] = 9
	if testCatalog["heading"].Props["level"] != 1 {
		t.Error("props alias the catalog")
	}
}

func TestAddNode_UnknownTypeFallsBack(t *testing.T) {
	m := newModel("x")
	out, _, err := m.AddNode(domain.NewPage("p"), document.NodeSpec{Type: "spacer"})
	if err != nil {
		t.Fatal(err)
	}
	l := out.Components[0].Layout.Default
	if l.Width != document.FallbackWidth || l.Height != document.FallbackHeight {
		t.Errorf("size = %vx%v", l.Width, l.Height)
	}
}

func TestAddNode_Rejects(t *testing.T) {
	m := newModel("h1", "h1")
	p := build(t, m, [2]float64{0, 0})

	out, _, err := m.AddNode(p, document.NodeSpec{Type: "heading"})
	if domain.CodeOf(err) != domain.CodeDuplicateID {
		t.Errorf("err = %v, want duplicate_id", err)
	}
	if out != p {
		t.Error("failed operation must return the original page")
	}

	_, _, err = newModel("z").AddNode(p, document.NodeSpec{})
	if domain.CodeOf(err) != domain.CodeMissingField {
		t.Errorf("err = %v, want missing_field", err)
	}
	_, _, err = newModel("z").AddNode(p, document.NodeSpec{Type: "heading", X: math.Inf(1)})
	if domain.CodeOf(err) != domain.CodeInvalidLayout {
		t.Errorf("err = %v, want invalid_layout", err)
	}
}

func TestRemoveNode(t *testing.T) {
	m := newModel("a", "b", "c")
	p := build(t, m, [2]float64{0, 0}, [2]float64{10, 10}, [2]float64{20, 20})

	out, op, err := m.RemoveNode(p, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Components) != 2 || out.IndexOf("b") != -1 {
		t.Fatalf("components = %d", len(out.Components))
	}
	if *op.Data.FromIndex != 1 || op.Data.Node.ID != "b" {
		t.Errorf("op = %+v", op)
	}
	if len(p.Components) != 3 {
		t.Error("input page was mutated")
	}

	if _, _, err := m.RemoveNode(p, "missing"); domain.CodeOf(err) != domain.CodeNotFound {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestRemoveNode_LastOtherGroupMember(t *testing.T) {
	m := newModel("a", "b", "g")
	p := build(t, m, [2]float64{100, 50}, [2]float64{300, 80})
	grouped, _, err := m.GroupNodes(p, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	out, op, err := m.RemoveNode(grouped, "a")
	if err != nil {
		t.Fatal(err)
	}
	b := out.Find("b")
	if b.GroupID != "" {
		t.Errorf("remaining member still grouped: %q", b.GroupID)
	}
	if b.Layout.Default.X != 300 || b.Layout.Default.Y != 80 {
		t.Errorf("remaining member not absolute: (%v,%v)", b.Layout.Default.X, b.Layout.Default.Y)
	}
	if out.Groups != nil {
		t.Errorf("frame kept: %v", out.Groups)
	}
	if err := domain.Validate(out); err != nil {
		t.Errorf("page invalid after remove: %v", err)
	}
	if len(op.Data.Members) != 1 || op.Data.Members[0].ID != "b" {
		t.Errorf("op members = %+v", op.Data.Members)
	}
}

func TestUpdateNode(t *testing.T) {
	m := newModel("a")
	p := build(t, m, [2]float64{0, 0})

	out, op, err := m.UpdateNode(p, "a", func(n *domain.ComponentNode) {
		n.Props["text"] = "Changed"
		n.Styles.Tablet = domain.Style{}
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Find("a").Props["text"] != "Changed" || p.Find("a").Props["text"] != "Heading" {
		t.Error("update not copy-on-write")
	}
	if out.Find("a").Styles.Tablet != nil {
		t.Error("empty override kept")
	}
	if op.Data.Previous.Props["text"] != "Heading" {
		t.Errorf("previous = %v", op.Data.Previous.Props)
	}

	tests := []struct {
		name string
		fn   func(n *domain.ComponentNode)
		want domain.Code
	}{
		{"id", func(n *domain.ComponentNode) { n.ID = "b" }, domain.CodeImmutableID},
		{"group", func(n *domain.ComponentNode) { n.GroupID = "g" }, domain.CodeInvalidSelection},
		{"negative size", func(n *domain.ComponentNode) { n.Layout.Default.Width = -1 }, domain.CodeInvalidLayout},
		{"bad override", func(n *domain.ComponentNode) {
			n.Layout.Tablet = &domain.LayoutOverride{Scale: domain.Ptr(0.0)}
		}, domain.CodeMalformedOverride},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := m.UpdateNode(p, "a", tt.fn)
			if domain.CodeOf(err) != tt.want {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
			if got != p {
				t.Error("failed update must return the original page")
			}
		})
	}
}

func TestUpdateNode_Locked(t *testing.T) {
	m := newModel("a")
	p := build(t, m, [2]float64{0, 0})
	p, _, _ = m.UpdateNode(p, "a", func(n *domain.ComponentNode) { n.Locked = true })

	if _, _, err := m.UpdateNode(p, "a", func(n *domain.ComponentNode) { n.Layout.Default.X = 5 }); domain.CodeOf(err) != domain.CodeLocked {
		t.Errorf("move of locked node: err = %v", err)
	}
	if _, _, err := m.SetLayout(p, "a", domain.BreakpointMobile, &domain.LayoutOverride{Width: domain.Ptr(50.0)}); domain.CodeOf(err) != domain.CodeLocked {
		t.Errorf("resize of locked node: err = %v", err)
	}
	if _, _, err := m.UpdateNode(p, "a", func(n *domain.ComponentNode) { n.Props["text"] = "ok" }); err != nil {
		t.Errorf("content edit of locked node: %v", err)
	}
	if _, _, err := m.SetStyle(p, "a", domain.BreakpointDefault, domain.Style{"color": "red"}); err != nil {
		t.Errorf("style edit of locked node: %v", err)
	}
}

func TestSetLayout_StoresDelta(t *testing.T) {
	m := newModel("a")
	p := build(t, m, [2]float64{10, 10})

	out, _, err := m.SetLayout(p, "a", domain.BreakpointMobile, &domain.LayoutOverride{X: domain.Ptr(0.0), Y: domain.Ptr(10.0)})
	if err != nil {
		t.Fatal(err)
	}
	o := out.Find("a").Layout.Mobile
	if o == nil || o.X == nil || *o.X != 0 {
		t.Fatalf("mobile override = %+v", o)
	}
	if o.Y != nil {
		t.Error("y equal to default should not be stored")
	}
	if out.Find("a").Layout.Default.X != 10 {
		t.Error("default changed by a mobile edit")
	}
}

func TestSetStyle(t *testing.T) {
	m := newModel("a")
	p := build(t, m, [2]float64{0, 0})

	out, _, err := m.SetStyle(p, "a", domain.BreakpointTablet, domain.Style{"fontSize": 0})
	if err != nil {
		t.Fatal(err)
	}
	if got := domain.ResolveStyles(out.Find("a"), domain.BreakpointTablet)["fontSize"]; got != 0 {
		t.Errorf("tablet fontSize = %v, want 0", got)
	}
	out, _, err = m.SetStyle(out, "a", domain.BreakpointTablet, domain.Style{"fontSize": nil})
	if err != nil {
		t.Fatal(err)
	}
	if out.Find("a").Styles.Tablet != nil {
		t.Errorf("tablet style = %v, want nil", out.Find("a").Styles.Tablet)
	}
}

func TestMoveNode(t *testing.T) {
	m := newModel("a", "b", "c")
	p := build(t, m, [2]float64{0, 0}, [2]float64{0, 0}, [2]float64{0, 0})

	out, op, err := m.MoveNode(p, "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	var order string
	for _, n := range out.Components {
		order += n.ID
	}
	if order != "bca" {
		t.Errorf("order = %s, want bca", order)
	}
	if *op.Data.FromIndex != 0 || *op.TargetIndex != 2 {
		t.Errorf("op = %+v", op)
	}
	if _, _, err := m.MoveNode(p, "a", 3); domain.CodeOf(err) != domain.CodeIndexOutOfRange {
		t.Errorf("err = %v, want index_out_of_range", err)
	}
}

func TestDuplicateNode(t *testing.T) {
	m := newModel("a", "b", "copy")
	p := build(t, m, [2]float64{10, 10}, [2]float64{50, 50})

	out, op, err := m.DuplicateNode(p, "a")
	if err != nil {
		t.Fatal(err)
	}
	if out.Components[1].ID != "copy" {
		t.Fatalf("duplicate not placed after source: %s", out.Components[1].ID)
	}
	l := out.Components[1].Layout.Default
	if l.X != 10+document.DuplicateOffset || l.Y != 10+document.DuplicateOffset {
		t.Errorf("offset = (%v,%v)", l.X, l.Y)
	}
	if op.Data.SourceID != "a" || *op.TargetIndex != 1 {
		t.Errorf("op = %+v", op)
	}
	out.Components[1].Props["text"] = "x"
	if out.Components[0].Props["text"] == "x" {
		t.Error("duplicate shares props with source")
	}
}

func TestDuplicateNode_GroupedSourceIsAbsolute(t *testing.T) {
	m := newModel("a", "b", "g", "copy")
	p := build(t, m, [2]float64{100, 100}, [2]float64{200, 150})
	p, _, err := m.GroupNodes(p, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}

	out, _, err := m.DuplicateNode(p, "b")
	if err != nil {
		t.Fatal(err)
	}
	c := out.Find("copy")
	if c.GroupID != "" {
		t.Error("duplicate joined the group")
	}
	if c.Layout.Default.X != 220 || c.Layout.Default.Y != 170 {
		t.Errorf("duplicate at (%v,%v), want (220,170)", c.Layout.Default.X, c.Layout.Default.Y)
	}
	if err := domain.Validate(out); err != nil {
		t.Error(err)
	}
}

func TestGroupNodes_Rejects(t *testing.T) {
	m := newModel("a", "b", "c", "g")
	p := build(t, m, [2]float64{0, 0}, [2]float64{10, 0}, [2]float64{20, 0})
	grouped, _, err := m.GroupNodes(p, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	locked, _, _ := m.UpdateNode(p, "c", func(n *domain.ComponentNode) { n.Locked = true })

	tests := []struct {
		name string
		page *domain.PageSchema
		ids  []string
		want domain.Code
	}{
		{"single", p, []string{"a"}, domain.CodeInvalidSelection},
		{"same id twice", p, []string{"a", "a"}, domain.CodeInvalidSelection},
		{"missing", p, []string{"a", "zz"}, domain.CodeNotFound},
		{"already grouped", grouped, []string{"a", "c"}, domain.CodeAlreadyGrouped},
		{"locked", locked, []string{"a", "c"}, domain.CodeLocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := m.GroupNodes(tt.page, tt.ids)
			if domain.CodeOf(err) != tt.want {
				t.Errorf("err = %v, want %s", err, tt.want)
			}
			if out != tt.page {
				t.Error("failed group must return the original page")
			}
		})
	}
}

func TestGroupUngroup_RoundTrip(t *testing.T) {
	for _, bp := range domain.Breakpoints {
		t.Run(string(bp), func(t *testing.T) {
			m := newModel("a", "b", "c", "g")
			p := build(t, m, [2]float64{120, 40}, [2]float64{30.5, 300}, [2]float64{600, 10})
			p, _, _ = m.SetLayout(p, "b", domain.BreakpointTablet, &domain.LayoutOverride{X: domain.Ptr(80.0)})
			m.Breakpoint = bp

			before := map[string]domain.Layout{}
			for _, n := range p.Components {
				before[n.ID] = domain.ResolveLayout(&n, bp)
			}

			grouped, op, err := m.GroupNodes(p, []string{"c", "a", "b"})
			if err != nil {
				t.Fatal(err)
			}
			f := grouped.Groups[op.Data.GroupID]
			if f.Breakpoint != bp {
				t.Errorf("frame breakpoint = %s", f.Breakpoint)
			}
			for _, n := range grouped.Components {
				rel := domain.ResolveLayout(&n, bp)
				if rel.X < 0 || rel.Y < 0 {
					t.Errorf("%s relative position (%v,%v) outside frame", n.ID, rel.X, rel.Y)
				}
			}

			back, _, err := m.UngroupNodes(grouped, op.Data.GroupID)
			if err != nil {
				t.Fatal(err)
			}
			for _, n := range back.Components {
				got := domain.ResolveLayout(&n, bp)
				want := before[n.ID]
				if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || got.Width != want.Width {
					t.Errorf("%s: got %+v, want %+v", n.ID, got, want)
				}
				if n.GroupID != "" {
					t.Errorf("%s still grouped", n.ID)
				}
			}
			if back.Groups != nil {
				t.Errorf("frame kept: %v", back.Groups)
			}
		})
	}
}

func TestGroupNodes_FrameIsBoundingBox(t *testing.T) {
	m := newModel("h1", "h2", "g")
	p := build(t, m, [2]float64{100, 200}, [2]float64{40, 260})

	out, op, err := m.GroupNodes(p, []string{"h1", "h2"})
	if err != nil {
		t.Fatal(err)
	}
	f := out.Groups["g"]
	if f.X != 40 || f.Y != 200 || f.Width != 540 || f.Height != 120 {
		t.Errorf("frame = %+v", f)
	}
	h1, h2 := out.Find("h1"), out.Find("h2")
	if h1.Layout.Default.X != 60 || h1.Layout.Default.Y != 0 || h2.Layout.Default.X != 0 || h2.Layout.Default.Y != 60 {
		t.Errorf("relative layouts h1=%+v h2=%+v", h1.Layout.Default, h2.Layout.Default)
	}
	if op.Type != domain.OpGroup || len(op.Data.Members) != 2 {
		t.Errorf("op = %+v", op)
	}
}

func TestUngroupNodes_Missing(t *testing.T) {
	m := newModel()
	p := domain.NewPage("p")
	if _, _, err := m.UngroupNodes(p, "nope"); domain.CodeOf(err) != domain.CodeNotFound {
		t.Errorf("err = %v, want not_found", err)
	}
}

func TestCopyBreakpoint(t *testing.T) {
	m := newModel("a", "b")
	p := build(t, m, [2]float64{10, 10}, [2]float64{20, 20})
	p, _, _ = m.SetLayout(p, "a", domain.BreakpointTablet, &domain.LayoutOverride{Width: domain.Ptr(300.0)})
	p, _, _ = m.SetStyle(p, "a", domain.BreakpointTablet, domain.Style{"fontSize": 18})

	out, op, err := m.CopyBreakpoint(p, domain.BreakpointTablet, domain.BreakpointMobile)
	if err != nil {
		t.Fatal(err)
	}
	a := out.Find("a")
	if got := domain.ResolveLayout(a, domain.BreakpointMobile).Width; got != 300 {
		t.Errorf("mobile width = %v, want 300", got)
	}
	if got := domain.ResolveStyles(a, domain.BreakpointMobile)["fontSize"]; got != 18 {
		t.Errorf("mobile fontSize = %v, want 18", got)
	}
	if out.Find("b").Layout.Mobile != nil {
		t.Error("node without tablet override got a mobile override")
	}
	if op.Type != domain.OpBatch || len(op.Data.MemberIDs) != 1 || op.Data.MemberIDs[0] != "a" {
		t.Errorf("op = %+v", op)
	}

	if _, _, err := m.CopyBreakpoint(p, domain.BreakpointMobile, domain.BreakpointMobile); domain.CodeOf(err) != domain.CodeInvalidSelection {
		t.Errorf("err = %v, want invalid_selection", err)
	}
}

func TestCopyBreakpoint_ToDefaultKeepsOtherTier(t *testing.T) {
	m := newModel("a")
	p := build(t, m, [2]float64{10, 10})
	p, _, _ = m.SetLayout(p, "a", domain.BreakpointMobile, &domain.LayoutOverride{X: domain.Ptr(0.0)})
	p, _, _ = m.SetLayout(p, "a", domain.BreakpointTablet, &domain.LayoutOverride{Y: domain.Ptr(99.0)})

	out, _, err := m.CopyBreakpoint(p, domain.BreakpointMobile, domain.BreakpointDefault)
	if err != nil {
		t.Fatal(err)
	}
	a := out.Find("a")
	if a.Layout.Default.X != 0 || a.Layout.Mobile != nil {
		t.Errorf("default = %+v mobile = %+v", a.Layout.Default, a.Layout.Mobile)
	}
	tab := domain.ResolveLayout(a, domain.BreakpointTablet)
	if tab.X != 10 || tab.Y != 99 {
		t.Errorf("tablet effective layout changed: %+v", tab)
	}
}

func TestSetDirection(t *testing.T) {
	m := newModel("a")
	p := build(t, m, [2]float64{0, 0})
	p, _, _ = m.SetStyle(p, "a", domain.BreakpointDefault, domain.Style{"textAlign": "left"})

	out, op, err := m.SetDirection(p, domain.DirectionRTL)
	if err != nil {
		t.Fatal(err)
	}
	if out.Settings.Direction != domain.DirectionRTL {
		t.Errorf("page direction = %s", out.Settings.Direction)
	}
	if out.Find("a").Styles.Default["textAlign"] != "right" {
		t.Errorf("style not mirrored: %v", out.Find("a").Styles.Default)
	}
	if op.Type != domain.OpBatch {
		t.Errorf("op type = %s", op.Type)
	}

	again, _, err := m.SetDirection(out, domain.DirectionRTL)
	if err != nil {
		t.Fatal(err)
	}
	if again.Find("a").Styles.Default["textAlign"] != "right" {
		t.Error("second rtl application double-mirrored")
	}
}

func TestReplaceComponents_Validates(t *testing.T) {
	m := newModel("a", "b")
	p := build(t, m, [2]float64{0, 0}, [2]float64{0, 0})
	nodes := domain.CloneNodes(p.Components)
	nodes[1].ID = "a"

	out, _, err := m.ReplaceComponents(p, nodes, "bulk")
	if domain.CodeOf(err) != domain.CodeDuplicateID {
		t.Errorf("err = %v, want duplicate_id", err)
	}
	if out != p {
		t.Error("failed replace must return the original page")
	}
}
