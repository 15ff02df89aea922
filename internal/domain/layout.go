package domain

// Layout is the fully populated geometry of a node at the default tier.
type Layout struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width" jsonschema:"minimum=0"`
	Height        float64 `json:"height" jsonschema:"minimum=0"`
	ZIndex        int     `json:"zIndex"`
	Rotation      float64 `json:"rotation"`
	Scale         float64 `json:"scale"`
	Locked        bool    `json:"locked"`
	Visible       bool    `json:"visible"`
	FlexDirection string  `json:"flexDirection,omitempty"`
}

// LayoutOverride is a partial Layout. A nil field is absent and resolves to
// the default tier's value; a non-nil zero value is an explicit override.
type LayoutOverride struct {
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
	Width         *float64 `json:"width,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	ZIndex        *int     `json:"zIndex,omitempty"`
	Rotation      *float64 `json:"rotation,omitempty"`
	Scale         *float64 `json:"scale,omitempty"`
	Locked        *bool    `json:"locked,omitempty"`
	Visible       *bool    `json:"visible,omitempty"`
	FlexDirection *string  `json:"flexDirection,omitempty"`
}

// IsEmpty reports whether no field is set.
func (o *LayoutOverride) IsEmpty() bool {
	return o == nil || (o.X == nil && o.Y == nil && o.Width == nil && o.Height == nil &&
		o.ZIndex == nil && o.Rotation == nil && o.Scale == nil && o.Locked == nil &&
		o.Visible == nil && o.FlexDirection == nil)
}

// Clone returns a deep copy; the copy shares no pointers with o.
func (o *LayoutOverride) Clone() *LayoutOverride {
	if o == nil {
		return nil
	}
	return &LayoutOverride{
		X:             clonePtr(o.X),
		Y:             clonePtr(o.Y),
		Width:         clonePtr(o.Width),
		Height:        clonePtr(o.Height),
		ZIndex:        clonePtr(o.ZIndex),
		Rotation:      clonePtr(o.Rotation),
		Scale:         clonePtr(o.Scale),
		Locked:        clonePtr(o.Locked),
		Visible:       clonePtr(o.Visible),
		FlexDirection: clonePtr(o.FlexDirection),
	}
}

// TouchesGeometry reports whether the override sets position or size.
func (o *LayoutOverride) TouchesGeometry() bool {
	return o != nil && (o.X != nil || o.Y != nil || o.Width != nil || o.Height != nil)
}

// ResponsiveLayout holds the default layout and the per-tier deltas.
type ResponsiveLayout struct {
	Default Layout          `json:"default" jsonschema:"required"`
	Tablet  *LayoutOverride `json:"tablet,omitempty"`
	Mobile  *LayoutOverride `json:"mobile,omitempty"`
}

// Override returns the partial layout stored for bp, nil for the default tier.
func (r *ResponsiveLayout) Override(bp Breakpoint) *LayoutOverride {
	switch bp {
	case BreakpointTablet:
		return r.Tablet
	case BreakpointMobile:
		return r.Mobile
	}
	return nil
}

// SetOverride stores o for bp. Empty overrides are dropped so that absence
// stays the only way to say "same as default".
func (r *ResponsiveLayout) SetOverride(bp Breakpoint, o *LayoutOverride) {
	if o.IsEmpty() {
		o = nil
	}
	switch bp {
	case BreakpointTablet:
		r.Tablet = o
	case BreakpointMobile:
		r.Mobile = o
	}
}

func (r ResponsiveLayout) Clone() ResponsiveLayout {
	return ResponsiveLayout{Default: r.Default, Tablet: r.Tablet.Clone(), Mobile: r.Mobile.Clone()}
}

// Style maps CSS-like property names to JSON-compatible values.
type Style map[string]any

func (s Style) Clone() Style {
	if s == nil {
		return nil
	}
	c := make(Style, len(s))
	for k, v := range s {
		c[k] = CloneValue(v)
	}
	return c
}

// ResponsiveStyles holds the default style and the per-tier partial styles.
type ResponsiveStyles struct {
	Default Style `json:"default"`
	Tablet  Style `json:"tablet,omitempty"`
	Mobile  Style `json:"mobile,omitempty"`
}

// Override returns the partial style stored for bp, nil for the default tier.
func (r *ResponsiveStyles) Override(bp Breakpoint) Style {
	switch bp {
	case BreakpointTablet:
		return r.Tablet
	case BreakpointMobile:
		return r.Mobile
	}
	return nil
}

// Set replaces the style stored for bp. An empty override is dropped.
func (r *ResponsiveStyles) Set(bp Breakpoint, s Style) {
	switch bp {
	case BreakpointDefault:
		if s == nil {
			s = Style{}
		}
		r.Default = s
	case BreakpointTablet:
		if len(s) == 0 {
			s = nil
		}
		r.Tablet = s
	case BreakpointMobile:
		if len(s) == 0 {
			s = nil
		}
		r.Mobile = s
	}
}

func (r ResponsiveStyles) Clone() ResponsiveStyles {
	return ResponsiveStyles{Default: r.Default.Clone(), Tablet: r.Tablet.Clone(), Mobile: r.Mobile.Clone()}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Ptr returns a pointer to v. Used to build overrides.
func Ptr[T any](v T) *T { return &v }

// CloneValue deep-copies a JSON-compatible value. Maps and slices produced by
// encoding/json are copied recursively; scalars are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		c := make(map[string]any, len(t))
		for k, e := range t {
			c[k] = CloneValue(e)
		}
		return c
	case Style:
		return t.Clone()
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = CloneValue(e)
		}
		return c
	case []string:
		return append([]string(nil), t...)
	}
	return v
}
