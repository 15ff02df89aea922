package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/history"
	"pagebuilder/internal/patch"
)

// HistoryStore persists the linear undo history of each page in SQLite.
// Entries are stored with their full page snapshot, so a restored history
// can undo past the point the process started.
type HistoryStore struct {
	db  *DB
	max int
}

// NewHistoryStore keeps at most maxEntries per page. Zero or less keeps
// everything.
func NewHistoryStore(db *DB, maxEntries int) *HistoryStore {
	return &HistoryStore{db: db, max: maxEntries}
}

// SaveHistory replaces the stored history of pageID. When entries exceed the
// bound the oldest are dropped and cursor shifts with them.
func (s *HistoryStore) SaveHistory(pageID string, entries []history.Entry, cursor int) error {
	if drop := len(entries) - s.max; s.max > 0 && drop > 0 {
		entries = entries[drop:]
		cursor = max(cursor-drop, 0)
	}

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_entries WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for i, e := range entries {
		opJSON, err := json.Marshal(e.Operation)
		if err != nil {
			return fmt.Errorf("encode operation: %w", err)
		}
		patchJSON, err := json.Marshal(e.Patch)
		if err != nil {
			return fmt.Errorf("encode patch: %w", err)
		}
		snapshot, err := json.Marshal(e.Page)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO history_entries (id, page_id, seq, label, op_json, patch_json, snapshot_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, pageID, i, e.Label, string(opJSON), string(patchJSON), string(snapshot), e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert history entry: %w", err)
		}
	}
	_, err = tx.Exec(
		`INSERT INTO history_state (page_id, cursor) VALUES (?, ?)
		 ON CONFLICT(page_id) DO UPDATE SET cursor = excluded.cursor`,
		pageID, cursor,
	)
	if err != nil {
		return fmt.Errorf("update history state: %w", err)
	}
	return tx.Commit()
}

// LoadHistory returns the stored entries of pageID in order and the cursor.
// A page without history yields no entries and cursor 0.
func (s *HistoryStore) LoadHistory(pageID string) ([]history.Entry, int, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, label, op_json, patch_json, snapshot_json, created_at
		 FROM history_entries WHERE page_id = ? ORDER BY seq ASC`, pageID,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			e                           history.Entry
			opJSON, patchJSON, snapshot string
			created                     time.Time
		)
		if err := rows.Scan(&e.ID, &e.Label, &opJSON, &patchJSON, &snapshot, &created); err != nil {
			return nil, 0, fmt.Errorf("scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(opJSON), &e.Operation); err != nil {
			return nil, 0, fmt.Errorf("decode operation %s: %w", e.ID, err)
		}
		var p patch.Patch
		if err := json.Unmarshal([]byte(patchJSON), &p); err != nil {
			return nil, 0, fmt.Errorf("decode patch %s: %w", e.ID, err)
		}
		e.Patch = p
		var page domain.PageSchema
		if err := json.Unmarshal([]byte(snapshot), &page); err != nil {
			return nil, 0, fmt.Errorf("decode snapshot %s: %w", e.ID, err)
		}
		e.Page = domain.Normalize(&page)
		e.CreatedAt = created
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(entries) == 0 {
		return nil, 0, nil
	}

	var cursor int
	err = s.db.Conn().QueryRow(`SELECT cursor FROM history_state WHERE page_id = ?`, pageID).Scan(&cursor)
	if err != nil {
		// no state row: the newest entry is current
		cursor = len(entries) - 1
	}
	return entries, cursor, nil
}

// ClearHistory removes all history of a page.
func (s *HistoryStore) ClearHistory(pageID string) error {
	_, _ = s.db.Conn().Exec(`DELETE FROM history_state WHERE page_id = ?`, pageID)
	_, err := s.db.Conn().Exec(`DELETE FROM history_entries WHERE page_id = ?`, pageID)
	return err
}
