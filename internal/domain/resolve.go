// Property resolution: cascading a breakpoint override onto the default tier.

package domain

// ResolveLayout returns the effective layout of n at bp. Tablet and mobile
// overlay their own override on the default; they never read each other.
func ResolveLayout(n *ComponentNode, bp Breakpoint) Layout {
	return Overlay(n.Layout.Default, n.Layout.Override(bp))
}

// Overlay applies every present field of o on top of base.
func Overlay(base Layout, o *LayoutOverride) Layout {
	if o == nil {
		return base
	}
	if o.X != nil {
		base.X = *o.X
	}
	if o.Y != nil {
		base.Y = *o.Y
	}
	if o.Width != nil {
		base.Width = *o.Width
	}
	if o.Height != nil {
		base.Height = *o.Height
	}
	if o.ZIndex != nil {
		base.ZIndex = *o.ZIndex
	}
	if o.Rotation != nil {
		base.Rotation = *o.Rotation
	}
	if o.Scale != nil {
		base.Scale = *o.Scale
	}
	if o.Locked != nil {
		base.Locked = *o.Locked
	}
	if o.Visible != nil {
		base.Visible = *o.Visible
	}
	if o.FlexDirection != nil {
		base.FlexDirection = *o.FlexDirection
	}
	return base
}

// DeltaFrom returns the override that turns base into target, holding only
// the fields that differ. It returns nil when they are equal.
func DeltaFrom(base, target Layout) *LayoutOverride {
	o := &LayoutOverride{}
	if target.X != base.X {
		o.X = Ptr(target.X)
	}
	if target.Y != base.Y {
		o.Y = Ptr(target.Y)
	}
	if target.Width != base.Width {
		o.Width = Ptr(target.Width)
	}
	if target.Height != base.Height {
		o.Height = Ptr(target.Height)
	}
	if target.ZIndex != base.ZIndex {
		o.ZIndex = Ptr(target.ZIndex)
	}
	if target.Rotation != base.Rotation {
		o.Rotation = Ptr(target.Rotation)
	}
	if target.Scale != base.Scale {
		o.Scale = Ptr(target.Scale)
	}
	if target.Locked != base.Locked {
		o.Locked = Ptr(target.Locked)
	}
	if target.Visible != base.Visible {
		o.Visible = Ptr(target.Visible)
	}
	if target.FlexDirection != base.FlexDirection {
		o.FlexDirection = Ptr(target.FlexDirection)
	}
	if o.IsEmpty() {
		return nil
	}
	return o
}

// SetResolvedLayout stores l as the effective layout of n at bp. At the
// default tier the default is replaced; at other tiers only the delta from
// the default is kept.
func SetResolvedLayout(n *ComponentNode, bp Breakpoint, l Layout) {
	if bp == BreakpointDefault {
		n.Layout.Default = l
		return
	}
	n.Layout.SetOverride(bp, DeltaFrom(n.Layout.Default, l))
}

// ResolveStyles returns the effective style of n at bp as a new map. Keys
// present in the override win, even when their value is falsy.
func ResolveStyles(n *ComponentNode, bp Breakpoint) Style {
	out := n.Styles.Default.Clone()
	if out == nil {
		out = Style{}
	}
	for k, v := range n.Styles.Override(bp) {
		out[k] = CloneValue(v)
	}
	return out
}
