package domain

import (
	"math"
	"slices"
)

// Validate checks every structural invariant of p and returns the first
// violation as an *Error.
func Validate(p *PageSchema) error {
	if err := p.Responsive.validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(p.Components))
	groups := map[string]int{}
	for i := range p.Components {
		n := &p.Components[i]
		if n.ID == "" {
			return newError(CodeMissingField, "", "component %d has no id", i)
		}
		if seen[n.ID] {
			return newError(CodeDuplicateID, n.ID, "duplicate component id")
		}
		seen[n.ID] = true
		if n.Type == "" {
			return newError(CodeMissingField, n.ID, "component has no type")
		}
		if err := ValidateNode(n); err != nil {
			return err
		}
		if n.GroupID != "" {
			groups[n.GroupID]++
		}
	}
	for _, id := range sortedKeys(groups) {
		if groups[id] < 2 {
			return newError(CodeOrphanedGroup, "", "group %s has a single member", id)
		}
		f, ok := p.Groups[id]
		if !ok {
			return newError(CodeOrphanedGroup, "", "group %s has no frame", id)
		}
		if !f.Breakpoint.Valid() {
			return newError(CodeUnknownBreakpoint, "", "group %s has breakpoint %q", id, f.Breakpoint)
		}
	}
	for _, id := range sortedKeys(p.Groups) {
		if groups[id] == 0 {
			return newError(CodeOrphanedGroup, "", "group frame %s has no members", id)
		}
	}
	return nil
}

// ValidateNode checks the layout and style invariants of a single node.
func ValidateNode(n *ComponentNode) error {
	d := n.Layout.Default
	if !finite(d.X, d.Y, d.Width, d.Height, d.Rotation, d.Scale) {
		return newError(CodeInvalidLayout, n.ID, "default layout has a non-finite value")
	}
	if d.Width < 0 || d.Height < 0 {
		return newError(CodeInvalidLayout, n.ID, "default layout has a negative size")
	}
	if d.Scale <= 0 {
		return newError(CodeInvalidLayout, n.ID, "default layout scale must be positive")
	}
	for _, bp := range []Breakpoint{BreakpointTablet, BreakpointMobile} {
		if err := validateOverride(n.ID, bp, n.Layout.Override(bp)); err != nil {
			return err
		}
	}
	if n.Direction != "" && !n.Direction.Valid() {
		return newError(CodeInvalidLayout, n.ID, "unknown direction %q", n.Direction)
	}
	return nil
}

func validateOverride(id string, bp Breakpoint, o *LayoutOverride) error {
	if o == nil {
		return nil
	}
	for _, v := range []*float64{o.X, o.Y, o.Width, o.Height, o.Rotation, o.Scale} {
		if v != nil && !finite(*v) {
			return newError(CodeMalformedOverride, id, "%s override has a non-finite value", bp)
		}
	}
	if (o.Width != nil && *o.Width < 0) || (o.Height != nil && *o.Height < 0) {
		return newError(CodeMalformedOverride, id, "%s override has a negative size", bp)
	}
	if o.Scale != nil && *o.Scale <= 0 {
		return newError(CodeMalformedOverride, id, "%s override scale must be positive", bp)
	}
	return nil
}

// Normalize returns a copy of p with the repairable invariants restored:
// empty overrides are dropped, groups of one are dissolved and frames without
// members are removed.
func Normalize(p *PageSchema) *PageSchema {
	c := p.Clone()
	for i := range c.Components {
		n := &c.Components[i]
		n.Layout.SetOverride(BreakpointTablet, n.Layout.Tablet)
		n.Layout.SetOverride(BreakpointMobile, n.Layout.Mobile)
		n.Styles.Set(BreakpointTablet, n.Styles.Tablet)
		n.Styles.Set(BreakpointMobile, n.Styles.Mobile)
		if n.Styles.Default == nil {
			n.Styles.Default = Style{}
		}
	}
	counts := map[string]int{}
	for i := range c.Components {
		if g := c.Components[i].GroupID; g != "" {
			counts[g]++
		}
	}
	for _, id := range sortedKeys(counts) {
		if counts[id] < 2 {
			c.DissolveGroup(id)
		}
	}
	for _, id := range sortedKeys(c.Groups) {
		if counts[id] == 0 {
			c.DropGroup(id)
		}
	}
	return c
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
