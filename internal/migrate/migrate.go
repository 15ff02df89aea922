// Package migrate upgrades persisted page documents to the current schema
// version by running a chain of single-version steps over the raw JSON tree.
package migrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"pagebuilder/internal/domain"
)

var (
	// ErrMigrationGap means no step is registered for a version below the
	// target. It is never skipped over.
	ErrMigrationGap = errors.New("migration gap")
	ErrTooNew       = errors.New("schema version newer than supported")
	ErrMalformed    = errors.New("malformed document")
)

// Step rewrites doc from version v to v+1 in place.
type Step func(doc map[string]any) error

// Chain maps a source version to the step that lifts it by one.
type Chain struct {
	Target int
	Steps  map[int]Step
	// Check, when set, sees the fully migrated tree before it is decoded.
	Check func(doc map[string]any) error
}

// Default is the chain this build ships with.
func Default() *Chain {
	return &Chain{
		Target: domain.CurrentSchemaVersion,
		Steps: map[int]Step{
			0: flatToResponsive,
			1: hoistOverrides,
			2: frameGroups,
		},
	}
}

// Upgrade runs the default chain over data and decodes the result.
func Upgrade(data []byte) (*domain.PageSchema, error) {
	return Default().Upgrade(data)
}

// Version reports the schemaVersion of a raw document. A document without
// the key predates versioning and is version 0.
func Version(doc map[string]any) (int, error) {
	raw, ok := doc["schemaVersion"]
	if !ok || raw == nil {
		return 0, nil
	}
	f, ok := raw.(float64)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: schemaVersion %v", ErrMalformed, raw)
	}
	return int(f), nil
}

// Upgrade decodes data, lifts it to c.Target and returns the normalized page.
func (c *Chain) Upgrade(data []byte) (*domain.PageSchema, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if err := c.Run(doc); err != nil {
		return nil, err
	}
	if c.Check != nil {
		if err := c.Check(doc); err != nil {
			return nil, err
		}
	}
	var p domain.PageSchema
	if err := remarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.Components == nil {
		p.Components = []domain.ComponentNode{}
	}
	return domain.Normalize(&p), nil
}

// Run applies every step from the document's version up to c.Target.
func (c *Chain) Run(doc map[string]any) error {
	v, err := Version(doc)
	if err != nil {
		return err
	}
	if v > c.Target {
		return fmt.Errorf("%w: %d > %d", ErrTooNew, v, c.Target)
	}
	for ; v < c.Target; v++ {
		step, ok := c.Steps[v]
		if !ok {
			return fmt.Errorf("%w: no step from version %d", ErrMigrationGap, v)
		}
		if err := step(doc); err != nil {
			return fmt.Errorf("migrate %d to %d: %w", v, v+1, err)
		}
		doc["schemaVersion"] = float64(v + 1)
	}
	return nil
}

func remarshal(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
