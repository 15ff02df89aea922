package domain

import (
	"maps"
	"time"
)

// CurrentSchemaVersion is the persisted document version this build writes.
const CurrentSchemaVersion = 3

type PageSettings struct {
	Title     string            `json:"title,omitempty"`
	Language  string            `json:"language"`
	Direction Direction         `json:"direction"`
	Theme     string            `json:"theme,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

type PageMetadata struct {
	Author    string    `json:"author,omitempty"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GroupFrame records the bounding box a group was formed with. Members store
// their layout at Breakpoint relative to (X, Y).
type GroupFrame struct {
	ID         string     `json:"id"`
	Breakpoint Breakpoint `json:"breakpoint" jsonschema:"required,enum=default,enum=tablet,enum=mobile"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
}

// PageSchema is the document root and the unit of persistence.
type PageSchema struct {
	ID            string                `json:"id,omitempty"`
	SchemaVersion int                   `json:"schemaVersion" jsonschema:"required,minimum=0"`
	Components    []ComponentNode       `json:"components" jsonschema:"required"`
	Settings      PageSettings          `json:"settings"`
	Responsive    ResponsiveConfig      `json:"responsive"`
	Groups        map[string]GroupFrame `json:"groups,omitempty"`
	Metadata      PageMetadata          `json:"metadata"`
}

// NewPage returns an empty page with default settings.
func NewPage(id string) *PageSchema {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &PageSchema{
		ID:            id,
		SchemaVersion: CurrentSchemaVersion,
		Components:    []ComponentNode{},
		Settings:      PageSettings{Language: "en", Direction: DirectionLTR},
		Responsive:    DefaultResponsiveConfig(),
		Metadata:      PageMetadata{Version: 1, CreatedAt: now, UpdatedAt: now},
	}
}

// Clone returns a deep copy of the page.
func (p *PageSchema) Clone() *PageSchema {
	if p == nil {
		return nil
	}
	c := *p
	c.Components = CloneNodes(p.Components)
	if c.Components == nil {
		c.Components = []ComponentNode{}
	}
	c.Settings.Meta = maps.Clone(p.Settings.Meta)
	c.Groups = maps.Clone(p.Groups)
	return &c
}

// IndexOf returns the position of id in the component list, or -1.
func (p *PageSchema) IndexOf(id string) int {
	for i := range p.Components {
		if p.Components[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the node with id, or nil.
func (p *PageSchema) Find(id string) *ComponentNode {
	if i := p.IndexOf(id); i >= 0 {
		return &p.Components[i]
	}
	return nil
}

// GroupMembers returns the indexes of nodes carrying groupID, in paint order.
func (p *PageSchema) GroupMembers(groupID string) []int {
	var out []int
	for i := range p.Components {
		if p.Components[i].GroupID == groupID {
			out = append(out, i)
		}
	}
	return out
}

// DefaultDirection returns the page direction, falling back to ltr.
func (p *PageSchema) DefaultDirection() Direction {
	if p.Settings.Direction.Valid() {
		return p.Settings.Direction
	}
	return DirectionLTR
}
