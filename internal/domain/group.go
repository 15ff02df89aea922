package domain

import "math"

// BoundingBox returns the smallest frame enclosing every layout.
func BoundingBox(layouts []Layout) (x, y, w, h float64) {
	if len(layouts) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, l := range layouts {
		minX = math.Min(minX, l.X)
		minY = math.Min(minY, l.Y)
		maxX = math.Max(maxX, l.X+l.Width)
		maxY = math.Max(maxY, l.Y+l.Height)
	}
	return minX, minY, maxX - minX, maxY - minY
}

// Relativize rewrites n's layout at the frame's breakpoint relative to the
// frame origin and tags n with the frame id.
func Relativize(n *ComponentNode, f GroupFrame) {
	l := ResolveLayout(n, f.Breakpoint)
	l.X -= f.X
	l.Y -= f.Y
	SetResolvedLayout(n, f.Breakpoint, l)
	n.GroupID = f.ID
}

// Absolutize is the inverse of Relativize: it adds the frame origin back and
// clears the group reference.
func Absolutize(n *ComponentNode, f GroupFrame) {
	l := ResolveLayout(n, f.Breakpoint)
	l.X += f.X
	l.Y += f.Y
	SetResolvedLayout(n, f.Breakpoint, l)
	n.GroupID = ""
}

// DissolveGroup ungroups every member of groupID in place and drops the
// frame. Members of a group without a frame only lose the reference.
func (p *PageSchema) DissolveGroup(groupID string) {
	f, ok := p.Groups[groupID]
	for _, i := range p.GroupMembers(groupID) {
		if ok {
			Absolutize(&p.Components[i], f)
		} else {
			p.Components[i].GroupID = ""
		}
	}
	p.DropGroup(groupID)
}

// DropGroup removes the frame of groupID, leaving Groups nil when empty.
func (p *PageSchema) DropGroup(groupID string) {
	delete(p.Groups, groupID)
	if len(p.Groups) == 0 {
		p.Groups = nil
	}
}

// PutGroup stores f.
func (p *PageSchema) PutGroup(f GroupFrame) {
	if p.Groups == nil {
		p.Groups = map[string]GroupFrame{}
	}
	p.Groups[f.ID] = f
}
