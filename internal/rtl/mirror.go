package rtl

import "pagebuilder/internal/domain"

var mirroredKeys = map[string]string{
	"paddingLeft":  "paddingRight",
	"paddingRight": "paddingLeft",
	"marginLeft":   "marginRight",
	"marginRight":  "marginLeft",
}

var mirroredValues = map[string]map[string]string{
	"textAlign":      {"left": "right", "right": "left"},
	"justifyContent": {"flex-start": "flex-end", "flex-end": "flex-start"},
}

var mirroredFlow = map[string]string{
	"row":         "row-reverse",
	"row-reverse": "row",
}

// MirrorStyle returns a copy of s with horizontal alignment swapped and left
// and right spacing keys renamed. Applying it twice yields s again.
func MirrorStyle(s domain.Style) domain.Style {
	if s == nil {
		return nil
	}
	out := make(domain.Style, len(s))
	for k, v := range s {
		v = domain.CloneValue(v)
		if swap, ok := mirroredValues[k]; ok {
			if str, ok := v.(string); ok {
				if m, ok := swap[str]; ok {
					v = m
				}
			}
		}
		if m, ok := mirroredKeys[k]; ok {
			k = m
		}
		out[k] = v
	}
	return out
}

// MirrorLayout reverses horizontal flow. Coordinates are left alone: the box
// stays where it is, only its content flows the other way.
func MirrorLayout(l domain.Layout) domain.Layout {
	if m, ok := mirroredFlow[l.FlexDirection]; ok {
		l.FlexDirection = m
	}
	return l
}

// MirrorOverride is MirrorLayout for a partial layout.
func MirrorOverride(o *domain.LayoutOverride) *domain.LayoutOverride {
	c := o.Clone()
	if c != nil && c.FlexDirection != nil {
		if m, ok := mirroredFlow[*c.FlexDirection]; ok {
			c.FlexDirection = domain.Ptr(m)
		}
	}
	return c
}

// ApplyToTree returns a copy of nodes set to dir. A node is mirrored only
// when its canonical direction (its own, else pageDefault, else ltr) differs
// from dir; every node is stamped with dir. An invalid dir leaves the copy
// unchanged.
func ApplyToTree(nodes []domain.ComponentNode, dir, pageDefault domain.Direction) []domain.ComponentNode {
	out := make([]domain.ComponentNode, len(nodes))
	for i := range nodes {
		n := nodes[i].Clone()
		if dir.Valid() {
			if canonical(&n, pageDefault) != dir {
				mirrorNode(&n)
			}
			n.Direction = dir
		}
		out[i] = n
	}
	return out
}

func canonical(n *domain.ComponentNode, pageDefault domain.Direction) domain.Direction {
	if n.Direction.Valid() {
		return n.Direction
	}
	if pageDefault.Valid() {
		return pageDefault
	}
	return domain.DirectionLTR
}

func mirrorNode(n *domain.ComponentNode) {
	n.Styles.Default = MirrorStyle(n.Styles.Default)
	n.Styles.Tablet = MirrorStyle(n.Styles.Tablet)
	n.Styles.Mobile = MirrorStyle(n.Styles.Mobile)
	n.Layout.Default = MirrorLayout(n.Layout.Default)
	n.Layout.Tablet = MirrorOverride(n.Layout.Tablet)
	n.Layout.Mobile = MirrorOverride(n.Layout.Mobile)
}
