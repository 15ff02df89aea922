package storage

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"pagebuilder/internal/domain"
)

// OperationLog is the append-only record of committed edits. Row ids are
// ULIDs so the primary key orders rows by time.
type OperationLog struct {
	db *DB
}

func NewOperationLog(db *DB) *OperationLog {
	return &OperationLog{db: db}
}

// Append records op and its patch for pageID.
func (l *OperationLog) Append(pageID string, op domain.ComponentOperation, patchJSON string) error {
	opJSON, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}
	if patchJSON == "" {
		patchJSON = "[]"
	}
	_, err = l.db.Conn().Exec(
		`INSERT INTO operation_log (id, page_id, op_json, patch_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		ulid.Make().String(), pageID, string(opJSON), patchJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("append operation: %w", err)
	}
	return nil
}

// List returns the newest limit operations of pageID, oldest first. A limit
// of zero or less returns everything.
func (l *OperationLog) List(pageID string, limit int) ([]domain.LoggedOperation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.Conn().Query(
		`SELECT id, page_id, op_json, patch_json, created_at FROM operation_log
		 WHERE page_id = ? ORDER BY id DESC LIMIT ?`, pageID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var out []domain.LoggedOperation
	for rows.Next() {
		var (
			lo     domain.LoggedOperation
			opJSON string
		)
		if err := rows.Scan(&lo.ID, &lo.PageID, &opJSON, &lo.PatchJSON, &lo.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if err := json.Unmarshal([]byte(opJSON), &lo.Operation); err != nil {
			return nil, fmt.Errorf("decode operation %s: %w", lo.ID, err)
		}
		out = append(out, lo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}
