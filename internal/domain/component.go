package domain

type Direction string

const (
	DirectionLTR Direction = "ltr"
	DirectionRTL Direction = "rtl"
)

func (d Direction) Valid() bool { return d == DirectionLTR || d == DirectionRTL }

// ComponentNode is a single placed element on the page.
type ComponentNode struct {
	ID     string           `json:"id" jsonschema:"required,minLength=1"`
	Type   string           `json:"type" jsonschema:"required,minLength=1"`
	Props  map[string]any   `json:"props,omitempty"`
	Layout ResponsiveLayout `json:"layout"`
	Styles ResponsiveStyles `json:"styles"`
	// GroupID references a group frame by id. Layout at the frame's
	// breakpoint is relative to the frame origin while set.
	GroupID   string    `json:"groupId,omitempty"`
	Locked    bool      `json:"locked"`
	Visible   bool      `json:"visible"`
	Language  string    `json:"language,omitempty"`
	Direction Direction `json:"direction,omitempty" jsonschema:"enum=ltr,enum=rtl"`
}

// Clone returns a deep copy of the node.
func (n *ComponentNode) Clone() ComponentNode {
	c := *n
	if n.Props != nil {
		c.Props = make(map[string]any, len(n.Props))
		for k, v := range n.Props {
			c.Props[k] = CloneValue(v)
		}
	}
	c.Layout = n.Layout.Clone()
	c.Styles = n.Styles.Clone()
	return c
}

// IsLocked reports whether position and size are frozen, either on the node
// or on its default layout.
func (n *ComponentNode) IsLocked() bool {
	return n.Locked || n.Layout.Default.Locked
}

// CloneNodes deep-copies a node list.
func CloneNodes(nodes []ComponentNode) []ComponentNode {
	if nodes == nil {
		return nil
	}
	out := make([]ComponentNode, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}
