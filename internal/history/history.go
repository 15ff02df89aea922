// Package history keeps the bounded list of committed page snapshots and the
// cursor that undo and redo move.
//
// Snapshots are deep copies, so undo and redo are lookups and never replay
// patches. Patches are kept on entries for logging and transmission only.
package history

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/patch"
)

// DefaultMaxStates bounds a manager created with a non-positive size.
const DefaultMaxStates = 50

type State int

const (
	Idle State = iota
	// Applying means an undo or redo snapshot was handed out and the commit
	// that installs it has not arrived yet.
	Applying
)

func (s State) String() string {
	if s == Applying {
		return "applying"
	}
	return "idle"
}

// Entry is one committed state.
type Entry struct {
	ID        string                    `json:"id"`
	Label     string                    `json:"label"`
	CreatedAt time.Time                 `json:"createdAt"`
	Operation domain.ComponentOperation `json:"operation"`
	Patch     patch.Patch               `json:"patch,omitempty"`
	Page      *domain.PageSchema        `json:"page"`
}

// Components returns the component list of the snapshot.
func (e *Entry) Components() []domain.ComponentNode { return e.Page.Components }

func (e Entry) clone() Entry {
	c := e
	c.Operation = e.Operation.Clone()
	c.Patch = append(patch.Patch(nil), e.Patch...)
	c.Page = e.Page.Clone()
	return c
}

// Info summarizes the manager for display.
type Info struct {
	States       int    `json:"states"`
	CurrentIndex int    `json:"currentIndex"`
	MaxStates    int    `json:"maxStates"`
	CanUndo      bool   `json:"canUndo"`
	CanRedo      bool   `json:"canRedo"`
	State        string `json:"state"`
}

// Manager is not safe for concurrent use; one editing session owns it.
type Manager struct {
	entries []Entry
	cursor  int
	max     int
	state   State

	now func() time.Time
}

func New(maxStates int) *Manager {
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	return &Manager{cursor: -1, max: maxStates, now: time.Now}
}

// Reset drops every entry and seeds a single load entry for page.
func (m *Manager) Reset(page *domain.PageSchema) {
	m.entries = nil
	m.cursor = -1
	m.state = Idle
	m.push(domain.ComponentOperation{Type: domain.OpLoad}, page, nil)
}

// Commit records a new state. A commit arriving while Applying is the
// installation of an undo or redo snapshot: it is swallowed, the manager
// returns to Idle and Commit reports false.
func (m *Manager) Commit(op domain.ComponentOperation, page *domain.PageSchema, p patch.Patch) bool {
	if m.state == Applying {
		m.state = Idle
		return false
	}
	m.entries = m.entries[:m.cursor+1]
	m.push(op, page, p)
	return true
}

func (m *Manager) push(op domain.ComponentOperation, page *domain.PageSchema, p patch.Patch) {
	e := Entry{
		ID:        ulid.Make().String(),
		Label:     op.Label(),
		CreatedAt: m.now().UTC(),
		Operation: op,
		Patch:     p,
		Page:      page,
	}
	m.entries = append(m.entries, e.clone())
	m.cursor++
	if len(m.entries) > m.max {
		m.entries[0] = Entry{}
		m.entries = m.entries[1:]
		m.cursor--
	}
}

// Undo moves the cursor back and returns a copy of the entry now under it,
// or nil when there is nothing to undo.
func (m *Manager) Undo() *Entry {
	if !m.CanUndo() {
		return nil
	}
	m.state = Applying
	m.cursor--
	e := m.entries[m.cursor].clone()
	return &e
}

// Redo moves the cursor forward and returns a copy of the entry now under
// it, or nil when there is nothing to redo.
func (m *Manager) Redo() *Entry {
	if !m.CanRedo() {
		return nil
	}
	m.state = Applying
	m.cursor++
	e := m.entries[m.cursor].clone()
	return &e
}

func (m *Manager) CanUndo() bool { return m.cursor > 0 }

func (m *Manager) CanRedo() bool { return m.cursor >= 0 && m.cursor < len(m.entries)-1 }

func (m *Manager) State() State { return m.state }

func (m *Manager) Cursor() int { return m.cursor }

func (m *Manager) Max() int { return m.max }

// Current returns a copy of the entry under the cursor, or nil.
func (m *Manager) Current() *Entry {
	if m.cursor < 0 {
		return nil
	}
	e := m.entries[m.cursor].clone()
	return &e
}

func (m *Manager) Info() Info {
	return Info{
		States:       len(m.entries),
		CurrentIndex: m.cursor,
		MaxStates:    m.max,
		CanUndo:      m.CanUndo(),
		CanRedo:      m.CanRedo(),
		State:        m.state.String(),
	}
}

// Entries returns copies of every entry, oldest first.
func (m *Manager) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i := range m.entries {
		out[i] = m.entries[i].clone()
	}
	return out
}

// Restore replaces the manager's contents with persisted entries. The oldest
// entries are dropped when there are more than the bound.
func (m *Manager) Restore(entries []Entry, cursor int) error {
	if len(entries) == 0 {
		return fmt.Errorf("restore history: no entries")
	}
	if cursor < 0 || cursor >= len(entries) {
		return fmt.Errorf("restore history: cursor %d outside [0, %d)", cursor, len(entries))
	}
	for i := range entries {
		if entries[i].Page == nil {
			return fmt.Errorf("restore history: entry %d has no snapshot", i)
		}
	}
	if drop := len(entries) - m.max; drop > 0 {
		entries = entries[drop:]
		cursor = max(cursor-drop, 0)
	}
	m.entries = make([]Entry, len(entries))
	for i := range entries {
		m.entries[i] = entries[i].clone()
	}
	m.cursor = cursor
	m.state = Idle
	return nil
}
