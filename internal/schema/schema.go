// Package schema generates the JSON Schema of persisted pages from the Go
// types and validates raw documents against it.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"pagebuilder/internal/domain"
)

const schemaURL = "pagebuilder://page.schema.json"

// Generate reflects the page schema with every property inlined.
func Generate() *invopop.Schema {
	r := invopop.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&domain.PageSchema{})
	s.Title = "Page"
	s.Description = fmt.Sprintf("pagebuilder document, schemaVersion %d", domain.CurrentSchemaVersion)
	return s
}

// JSON returns the generated schema as indented JSON.
func JSON() ([]byte, error) {
	return json.MarshalIndent(Generate(), "", "  ")
}

// Validator checks decoded documents against the compiled page schema.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	data, err := JSON()
	if err != nil {
		return nil, fmt.Errorf("marshal page schema: %w", err)
	}
	s, err := jsonschema.CompileString(schemaURL, string(data))
	if err != nil {
		return nil, fmt.Errorf("compile page schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a process-wide validator, compiled on first use.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	return defaultValidator, defaultErr
}

// Validate checks a document decoded with encoding/json (maps, slices,
// float64). It is the form migrate steps operate on.
func (v *Validator) Validate(doc any) error {
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("validate page: %w", err)
	}
	return nil
}

// ValidateBytes decodes data and validates it.
func (v *Validator) ValidateBytes(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode page: %w", err)
	}
	return v.Validate(doc)
}

// ValidatePage validates the JSON form of p.
func (v *Validator) ValidatePage(p *domain.PageSchema) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return v.ValidateBytes(data)
}
