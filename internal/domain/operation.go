package domain

import "slices"

type OperationType string

const (
	OpAdd       OperationType = "add"
	OpRemove    OperationType = "remove"
	OpUpdate    OperationType = "update"
	OpMove      OperationType = "move"
	OpDuplicate OperationType = "duplicate"
	OpGroup     OperationType = "group"
	OpUngroup   OperationType = "ungroup"
	OpBatch     OperationType = "batch"
	OpLoad      OperationType = "load"
)

// OperationData carries the payload of an operation. Only the fields that
// matter for the operation type are set.
type OperationData struct {
	Node      *ComponentNode  `json:"node,omitempty"`
	Previous  *ComponentNode  `json:"previous,omitempty"`
	FromIndex *int            `json:"fromIndex,omitempty"`
	SourceID  string          `json:"sourceId,omitempty"`
	GroupID   string          `json:"groupId,omitempty"`
	MemberIDs []string        `json:"memberIds,omitempty"`
	Members   []ComponentNode `json:"members,omitempty"`
	Label     string          `json:"label,omitempty"`
}

// ComponentOperation describes one committed mutation of a page.
type ComponentOperation struct {
	Type        OperationType `json:"type"`
	ComponentID string        `json:"componentId,omitempty"`
	Data        OperationData `json:"data"`
	TargetIndex *int          `json:"targetIndex,omitempty"`
}

// Label returns a short human readable description, used for history entries.
func (o ComponentOperation) Label() string {
	if o.Data.Label != "" {
		return o.Data.Label
	}
	if o.ComponentID != "" {
		return string(o.Type) + " " + o.ComponentID
	}
	if o.Data.GroupID != "" {
		return string(o.Type) + " " + o.Data.GroupID
	}
	return string(o.Type)
}

// Clone returns a deep copy of the operation.
func (o ComponentOperation) Clone() ComponentOperation {
	c := o
	if o.Data.Node != nil {
		n := o.Data.Node.Clone()
		c.Data.Node = &n
	}
	if o.Data.Previous != nil {
		n := o.Data.Previous.Clone()
		c.Data.Previous = &n
	}
	c.Data.FromIndex = clonePtr(o.Data.FromIndex)
	c.Data.MemberIDs = slices.Clone(o.Data.MemberIDs)
	c.Data.Members = CloneNodes(o.Data.Members)
	c.TargetIndex = clonePtr(o.TargetIndex)
	return c
}
