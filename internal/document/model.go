// Package document implements the mutating operations of a page. Every
// operation is copy-on-write: it returns a new page and a descriptor of what
// changed, and on failure returns the original page untouched together with a
// *domain.Error.
package document

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/rtl"
)

// DuplicateOffset is how far a duplicate is shifted from its source on the
// default layout.
const DuplicateOffset = 20

// Fallback size for component types the catalog does not know.
const (
	FallbackWidth  = 200
	FallbackHeight = 100
)

// Defaults are the seed values for a new component of some type.
type Defaults struct {
	Props  map[string]any
	Width  float64
	Height float64
}

type Catalog interface {
	Defaults(componentType string) (Defaults, bool)
}

// NodeSpec describes a component to add. Zero width or height falls back to
// the catalog size.
type NodeSpec struct {
	Type      string
	Props     map[string]any
	Styles    domain.Style
	X, Y      float64
	Width     float64
	Height    float64
	Language  string
	Direction domain.Direction
}

// Model holds what the operations need besides the page itself.
type Model struct {
	Catalog Catalog
	// NewID generates component and group ids. Defaults to uuid.NewString.
	NewID func() string
	// Breakpoint is the active device mode; grouping measures at it.
	Breakpoint domain.Breakpoint
}

func New(c Catalog) *Model {
	return &Model{Catalog: c, NewID: uuid.NewString, Breakpoint: domain.BreakpointDefault}
}

type result = domain.ComponentOperation

func fail(p *domain.PageSchema, err error) (*domain.PageSchema, result, error) {
	return p, result{}, err
}

func (m *Model) newID() string {
	if m.NewID == nil {
		return uuid.NewString()
	}
	return m.NewID()
}

func (m *Model) breakpoint() domain.Breakpoint {
	if m.Breakpoint.Valid() {
		return m.Breakpoint
	}
	return domain.BreakpointDefault
}

func (m *Model) defaults(componentType string) Defaults {
	if m.Catalog != nil {
		if d, ok := m.Catalog.Defaults(componentType); ok {
			if d.Width <= 0 {
				d.Width = FallbackWidth
			}
			if d.Height <= 0 {
				d.Height = FallbackHeight
			}
			return d
		}
	}
	return Defaults{Width: FallbackWidth, Height: FallbackHeight}
}

// ── Add / remove ────────────────────────────────────────────

// AddNode appends a new component seeded from the catalog.
func (m *Model) AddNode(p *domain.PageSchema, spec NodeSpec) (*domain.PageSchema, result, error) {
	if spec.Type == "" {
		return fail(p, domain.Errorf(domain.CodeMissingField, "", "component type is required"))
	}
	id := m.newID()
	if p.IndexOf(id) >= 0 {
		return fail(p, domain.Errorf(domain.CodeDuplicateID, id, "id already in use"))
	}

	d := m.defaults(spec.Type)
	w, h := spec.Width, spec.Height
	if w <= 0 {
		w = d.Width
	}
	if h <= 0 {
		h = d.Height
	}
	props := make(map[string]any, len(d.Props)+len(spec.Props))
	for k, v := range d.Props {
		props[k] = domain.CloneValue(v)
	}
	for k, v := range spec.Props {
		props[k] = domain.CloneValue(v)
	}
	styles := spec.Styles.Clone()
	if styles == nil {
		styles = domain.Style{}
	}
	lang := spec.Language
	if lang == "" {
		lang = p.Settings.Language
	}
	dir := spec.Direction
	if !dir.Valid() {
		dir = p.DefaultDirection()
	}

	n := domain.ComponentNode{
		ID:    id,
		Type:  spec.Type,
		Props: props,
		Layout: domain.ResponsiveLayout{
			Default: domain.Layout{X: spec.X, Y: spec.Y, Width: w, Height: h, Scale: 1, Visible: true},
		},
		Styles:    domain.ResponsiveStyles{Default: styles},
		Visible:   true,
		Language:  lang,
		Direction: dir,
	}
	if err := domain.ValidateNode(&n); err != nil {
		return fail(p, err)
	}

	out := p.Clone()
	out.Components = append(out.Components, n)
	added := n.Clone()
	return out, result{
		Type:        domain.OpAdd,
		ComponentID: id,
		Data:        domain.OperationData{Node: &added},
		TargetIndex: domain.Ptr(len(out.Components) - 1),
	}, nil
}

// RemoveNode deletes a component. When that leaves its group with a single
// member, the member is ungrouped back to absolute coordinates.
func (m *Model) RemoveNode(p *domain.PageSchema, id string) (*domain.PageSchema, result, error) {
	idx := p.IndexOf(id)
	if idx < 0 {
		return fail(p, domain.Errorf(domain.CodeNotFound, id, "component not found"))
	}

	out := p.Clone()
	removed := out.Components[idx]
	out.Components = slices.Delete(out.Components, idx, idx+1)
	op := result{
		Type:        domain.OpRemove,
		ComponentID: id,
		Data: domain.OperationData{
			Node:      &removed,
			FromIndex: domain.Ptr(idx),
			GroupID:   removed.GroupID,
		},
	}

	if g := removed.GroupID; g != "" {
		if rest := out.GroupMembers(g); len(rest) < 2 {
			out.DissolveGroup(g)
			for _, i := range rest {
				op.Data.MemberIDs = append(op.Data.MemberIDs, out.Components[i].ID)
				op.Data.Members = append(op.Data.Members, out.Components[i].Clone())
			}
		}
	}
	return out, op, nil
}

// ── Update ──────────────────────────────────────────────────

// UpdateNode applies fn to a copy of the component. The id and group
// membership cannot change, and a locked component keeps its position and
// size at every breakpoint.
func (m *Model) UpdateNode(p *domain.PageSchema, id string, fn func(n *domain.ComponentNode)) (*domain.PageSchema, result, error) {
	idx := p.IndexOf(id)
	if idx < 0 {
		return fail(p, domain.Errorf(domain.CodeNotFound, id, "component not found"))
	}

	out := p.Clone()
	prev := p.Components[idx].Clone()
	n := &out.Components[idx]
	fn(n)

	if n.ID != id {
		return fail(p, domain.Errorf(domain.CodeImmutableID, id, "component id cannot change to %q", n.ID))
	}
	if n.Type == "" {
		return fail(p, domain.Errorf(domain.CodeMissingField, id, "component type is required"))
	}
	if n.GroupID != prev.GroupID {
		return fail(p, domain.Errorf(domain.CodeInvalidSelection, id, "group membership changes through group and ungroup"))
	}
	if prev.IsLocked() && geometryChanged(&prev, n) {
		return fail(p, domain.Errorf(domain.CodeLocked, id, "component is locked"))
	}
	n.Layout.SetOverride(domain.BreakpointTablet, n.Layout.Tablet)
	n.Layout.SetOverride(domain.BreakpointMobile, n.Layout.Mobile)
	n.Styles.Set(domain.BreakpointDefault, n.Styles.Default)
	n.Styles.Set(domain.BreakpointTablet, n.Styles.Tablet)
	n.Styles.Set(domain.BreakpointMobile, n.Styles.Mobile)
	if err := domain.ValidateNode(n); err != nil {
		return fail(p, err)
	}

	after := n.Clone()
	return out, result{
		Type:        domain.OpUpdate,
		ComponentID: id,
		Data:        domain.OperationData{Node: &after, Previous: &prev},
		TargetIndex: domain.Ptr(idx),
	}, nil
}

// SetLayout writes the present fields of o onto the component's effective
// layout at bp. Only the delta from the default is stored for tablet and
// mobile.
func (m *Model) SetLayout(p *domain.PageSchema, id string, bp domain.Breakpoint, o *domain.LayoutOverride) (*domain.PageSchema, result, error) {
	if !bp.Valid() {
		return fail(p, domain.Errorf(domain.CodeUnknownBreakpoint, id, "unknown breakpoint %q", bp))
	}
	if n := p.Find(id); n != nil && n.IsLocked() && o.TouchesGeometry() {
		return fail(p, domain.Errorf(domain.CodeLocked, id, "component is locked"))
	}
	return m.UpdateNode(p, id, func(n *domain.ComponentNode) {
		domain.SetResolvedLayout(n, bp, domain.Overlay(domain.ResolveLayout(n, bp), o))
	})
}

// SetStyle merges s into the component's style at bp. A nil value deletes the
// key from that tier.
func (m *Model) SetStyle(p *domain.PageSchema, id string, bp domain.Breakpoint, s domain.Style) (*domain.PageSchema, result, error) {
	if !bp.Valid() {
		return fail(p, domain.Errorf(domain.CodeUnknownBreakpoint, id, "unknown breakpoint %q", bp))
	}
	return m.UpdateNode(p, id, func(n *domain.ComponentNode) {
		tier := n.Styles.Override(bp)
		if bp == domain.BreakpointDefault {
			tier = n.Styles.Default
		}
		merged := tier.Clone()
		if merged == nil {
			merged = domain.Style{}
		}
		for k, v := range s {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = domain.CloneValue(v)
		}
		n.Styles.Set(bp, merged)
	})
}

func geometryChanged(a, b *domain.ComponentNode) bool {
	for _, bp := range domain.Breakpoints {
		la, lb := domain.ResolveLayout(a, bp), domain.ResolveLayout(b, bp)
		if la.X != lb.X || la.Y != lb.Y || la.Width != lb.Width || la.Height != lb.Height {
			return true
		}
	}
	return false
}

// ── Move / duplicate ────────────────────────────────────────

// MoveNode moves a component to toIndex in paint order.
func (m *Model) MoveNode(p *domain.PageSchema, id string, toIndex int) (*domain.PageSchema, result, error) {
	idx := p.IndexOf(id)
	if idx < 0 {
		return fail(p, domain.Errorf(domain.CodeNotFound, id, "component not found"))
	}
	if toIndex < 0 || toIndex >= len(p.Components) {
		return fail(p, domain.Errorf(domain.CodeIndexOutOfRange, id, "index %d outside [0, %d)", toIndex, len(p.Components)))
	}

	out := p.Clone()
	n := out.Components[idx]
	out.Components = slices.Delete(out.Components, idx, idx+1)
	out.Components = slices.Insert(out.Components, toIndex, n)
	return out, result{
		Type:        domain.OpMove,
		ComponentID: id,
		Data:        domain.OperationData{FromIndex: domain.Ptr(idx)},
		TargetIndex: domain.Ptr(toIndex),
	}, nil
}

// DuplicateNode inserts a copy of the component right after it, shifted by
// DuplicateOffset. A copy of a grouped component is ungrouped and absolute.
func (m *Model) DuplicateNode(p *domain.PageSchema, id string) (*domain.PageSchema, result, error) {
	idx := p.IndexOf(id)
	if idx < 0 {
		return fail(p, domain.Errorf(domain.CodeNotFound, id, "component not found"))
	}
	newID := m.newID()
	if p.IndexOf(newID) >= 0 {
		return fail(p, domain.Errorf(domain.CodeDuplicateID, newID, "id already in use"))
	}

	c := p.Components[idx].Clone()
	c.ID = newID
	if c.GroupID != "" {
		if f, ok := p.Groups[c.GroupID]; ok {
			domain.Absolutize(&c, f)
		}
		c.GroupID = ""
	}
	c.Layout.Default.X += DuplicateOffset
	c.Layout.Default.Y += DuplicateOffset

	out := p.Clone()
	out.Components = slices.Insert(out.Components, idx+1, c)
	dup := c.Clone()
	return out, result{
		Type:        domain.OpDuplicate,
		ComponentID: newID,
		Data:        domain.OperationData{Node: &dup, SourceID: id},
		TargetIndex: domain.Ptr(idx + 1),
	}, nil
}

// ── Grouping ────────────────────────────────────────────────

// GroupNodes groups at least two ungrouped, unlocked components. Their
// bounding box is measured at the active breakpoint and each member's layout
// at that breakpoint becomes relative to the box origin. The new group id is
// returned in the operation's data.
func (m *Model) GroupNodes(p *domain.PageSchema, ids []string) (*domain.PageSchema, result, error) {
	var sel []string
	for _, id := range ids {
		if !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	if len(sel) < 2 {
		return fail(p, domain.Errorf(domain.CodeInvalidSelection, "", "grouping needs at least two components"))
	}

	bp := m.breakpoint()
	layouts := make([]domain.Layout, 0, len(sel))
	for _, id := range sel {
		n := p.Find(id)
		switch {
		case n == nil:
			return fail(p, domain.Errorf(domain.CodeNotFound, id, "component not found"))
		case n.GroupID != "":
			return fail(p, domain.Errorf(domain.CodeAlreadyGrouped, id, "component already belongs to group %s", n.GroupID))
		case n.IsLocked():
			return fail(p, domain.Errorf(domain.CodeLocked, id, "component is locked"))
		}
		layouts = append(layouts, domain.ResolveLayout(n, bp))
	}

	gid := m.newID()
	if _, taken := p.Groups[gid]; taken || p.IndexOf(gid) >= 0 {
		return fail(p, domain.Errorf(domain.CodeDuplicateID, "", "group id %s already in use", gid))
	}
	x, y, w, h := domain.BoundingBox(layouts)
	f := domain.GroupFrame{ID: gid, Breakpoint: bp, X: x, Y: y, Width: w, Height: h}

	out := p.Clone()
	out.PutGroup(f)
	members := make([]domain.ComponentNode, 0, len(sel))
	for _, i := range memberIndexes(out, sel) {
		domain.Relativize(&out.Components[i], f)
		members = append(members, out.Components[i].Clone())
	}
	return out, result{
		Type: domain.OpGroup,
		Data: domain.OperationData{GroupID: gid, MemberIDs: sel, Members: members},
	}, nil
}

// UngroupNodes restores the members of groupID to absolute coordinates.
func (m *Model) UngroupNodes(p *domain.PageSchema, groupID string) (*domain.PageSchema, result, error) {
	idx := p.GroupMembers(groupID)
	if len(idx) == 0 {
		return fail(p, domain.Errorf(domain.CodeNotFound, "", "group %s not found", groupID))
	}

	out := p.Clone()
	out.DissolveGroup(groupID)
	ids := make([]string, 0, len(idx))
	members := make([]domain.ComponentNode, 0, len(idx))
	for _, i := range idx {
		ids = append(ids, out.Components[i].ID)
		members = append(members, out.Components[i].Clone())
	}
	return out, result{
		Type: domain.OpUngroup,
		Data: domain.OperationData{GroupID: groupID, MemberIDs: ids, Members: members},
	}, nil
}

// memberIndexes returns the positions of ids in paint order.
func memberIndexes(p *domain.PageSchema, ids []string) []int {
	var out []int
	for i := range p.Components {
		if slices.Contains(ids, p.Components[i].ID) {
			out = append(out, i)
		}
	}
	return out
}

// ── Bulk ────────────────────────────────────────────────────

// CopyBreakpoint copies the effective layout and style of every unlocked
// component from one breakpoint to another.
func (m *Model) CopyBreakpoint(p *domain.PageSchema, from, to domain.Breakpoint) (*domain.PageSchema, result, error) {
	if !from.Valid() {
		return fail(p, domain.Errorf(domain.CodeUnknownBreakpoint, "", "unknown breakpoint %q", from))
	}
	if !to.Valid() {
		return fail(p, domain.Errorf(domain.CodeUnknownBreakpoint, "", "unknown breakpoint %q", to))
	}
	if from == to {
		return fail(p, domain.Errorf(domain.CodeInvalidSelection, "", "source and target breakpoint are both %s", from))
	}

	nodes := domain.CloneNodes(p.Components)
	for i := range nodes {
		n := &nodes[i]
		if n.IsLocked() {
			continue
		}
		l := domain.ResolveLayout(n, from)
		if f, ok := p.Groups[n.GroupID]; ok {
			if f.Breakpoint == from {
				l.X, l.Y = l.X+f.X, l.Y+f.Y
			}
			if f.Breakpoint == to {
				l.X, l.Y = l.X-f.X, l.Y-f.Y
			}
		}
		style := domain.ResolveStyles(n, from)
		if to == domain.BreakpointDefault {
			// Rebase the other tier on the new default so its effective
			// values stay the same.
			other := domain.BreakpointTablet
			if from == domain.BreakpointTablet {
				other = domain.BreakpointMobile
			}
			keepLayout := domain.ResolveLayout(n, other)
			keepStyle := domain.ResolveStyles(n, other)
			n.Layout.Default = l
			n.Styles.Default = style
			domain.SetResolvedLayout(n, other, keepLayout)
			n.Styles.Set(other, styleDelta(style, keepStyle))
			n.Layout.SetOverride(from, nil)
			n.Styles.Set(from, nil)
			continue
		}
		domain.SetResolvedLayout(n, to, l)
		n.Styles.Set(to, styleDelta(n.Styles.Default, style))
	}
	return m.ReplaceComponents(p, nodes, fmt.Sprintf("copy %s to %s", from, to))
}

func styleDelta(base, target domain.Style) domain.Style {
	out := domain.Style{}
	for k, v := range target {
		if bv, ok := base[k]; !ok || !reflect.DeepEqual(bv, v) {
			out[k] = domain.CloneValue(v)
		}
	}
	return out
}

// ReplaceComponents swaps the whole component list in one commit. The result
// must satisfy every page invariant.
func (m *Model) ReplaceComponents(p *domain.PageSchema, nodes []domain.ComponentNode, label string) (*domain.PageSchema, result, error) {
	out := p.Clone()
	out.Components = domain.CloneNodes(nodes)
	if out.Components == nil {
		out.Components = []domain.ComponentNode{}
	}
	if err := domain.Validate(out); err != nil {
		return fail(p, err)
	}
	return out, batch(p, out, label), nil
}

// SetDirection mirrors every component into dir and makes dir the page
// default.
func (m *Model) SetDirection(p *domain.PageSchema, dir domain.Direction) (*domain.PageSchema, result, error) {
	if !dir.Valid() {
		return fail(p, domain.Errorf(domain.CodeInvalidLayout, "", "unknown direction %q", dir))
	}
	nodes := rtl.ApplyToTree(p.Components, dir, p.DefaultDirection())
	out, op, err := m.ReplaceComponents(p, nodes, "direction "+string(dir))
	if err != nil {
		return out, op, err
	}
	out.Settings.Direction = dir
	return out, op, nil
}

// batch lists the components whose content differs between before and after.
func batch(before, after *domain.PageSchema, label string) result {
	prev := make(map[string]*domain.ComponentNode, len(before.Components))
	for i := range before.Components {
		prev[before.Components[i].ID] = &before.Components[i]
	}
	op := result{Type: domain.OpBatch, Data: domain.OperationData{Label: label}}
	for i := range after.Components {
		n := &after.Components[i]
		if old, ok := prev[n.ID]; ok && reflect.DeepEqual(old, n) {
			continue
		}
		op.Data.MemberIDs = append(op.Data.MemberIDs, n.ID)
		op.Data.Members = append(op.Data.Members, n.Clone())
	}
	return op
}
