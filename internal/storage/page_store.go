package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/migrate"
	"pagebuilder/internal/schema"
)

// ErrNotFound is returned when a page id has no stored row.
var ErrNotFound = domain.ErrPageNotFound

// DecodePage upgrades a persisted document of any known version, checks it
// against the page schema and the document invariants, and returns it.
func DecodePage(data []byte) (*domain.PageSchema, error) {
	v, err := schema.Default()
	if err != nil {
		return nil, err
	}
	chain := migrate.Default()
	chain.Check = func(doc map[string]any) error { return v.Validate(doc) }

	p, err := chain.Upgrade(data)
	if err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if err := domain.Validate(p); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return p, nil
}

// EncodePage is the inverse of DecodePage for the current version.
func EncodePage(p *domain.PageSchema) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return data, nil
}

// PageStore keeps one JSON document per page in the pages table.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

// SavePage inserts or replaces the stored document of p.
func (s *PageStore) SavePage(p *domain.PageSchema) error {
	if p.ID == "" {
		return fmt.Errorf("save page: empty id")
	}
	data, err := EncodePage(p)
	if err != nil {
		return err
	}
	updated := p.Metadata.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = s.db.Conn().Exec(
		`INSERT INTO pages (id, title, language, schema_version, schema_json, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   language = excluded.language,
		   schema_version = excluded.schema_version,
		   schema_json = excluded.schema_json,
		   updated_at = excluded.updated_at`,
		p.ID, p.Settings.Title, p.Settings.Language, p.SchemaVersion, string(data), updated,
	)
	if err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	return nil
}

// LoadPage reads and upgrades the page with the given id. Rows written by an
// older build are migrated on the way out; the stored row is left as is.
func (s *PageStore) LoadPage(id string) (*domain.PageSchema, error) {
	var raw string
	err := s.db.Conn().QueryRow(`SELECT schema_json FROM pages WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load page %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	p, err := DecodePage([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("load page %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}

// ListPages returns every stored page, most recently updated first.
func (s *PageStore) ListPages() ([]domain.PageSummary, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, title, schema_version, updated_at FROM pages ORDER BY updated_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var out []domain.PageSummary
	for rows.Next() {
		var ps domain.PageSummary
		if err := rows.Scan(&ps.ID, &ps.Title, &ps.SchemaVersion, &ps.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

// DeletePage removes the page together with its history and operation log.
func (s *PageStore) DeletePage(id string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete page %s: %w", id, ErrNotFound)
	}
	for _, q := range []string{
		`DELETE FROM history_entries WHERE page_id = ?`,
		`DELETE FROM history_state WHERE page_id = ?`,
		`DELETE FROM operation_log WHERE page_id = ?`,
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("delete page data: %w", err)
		}
	}
	return tx.Commit()
}
