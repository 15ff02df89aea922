package domain

import (
	"errors"
	"time"
)

// ErrPageNotFound is returned by stores for an unknown page id.
var ErrPageNotFound = errors.New("page not found")

// PageSummary is a stored page without its component tree.
type PageSummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SchemaVersion int       `json:"schemaVersion"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type PageStore interface {
	SavePage(p *PageSchema) error
	LoadPage(id string) (*PageSchema, error)
	ListPages() ([]PageSummary, error)
	DeletePage(id string) error
}

// LoggedOperation is one row of the append-only operation log.
type LoggedOperation struct {
	ID        string             `json:"id"`
	PageID    string             `json:"pageId"`
	Operation ComponentOperation `json:"operation"`
	PatchJSON string             `json:"patchJson"`
	CreatedAt time.Time          `json:"createdAt"`
}

type OperationLog interface {
	Append(pageID string, op ComponentOperation, patchJSON string) error
	List(pageID string, limit int) ([]LoggedOperation, error)
}
