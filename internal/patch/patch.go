// Package patch describes page changes as RFC 6902 JSON patches: derived
// directly from a committed operation or computed as a structural diff, then
// validated, optimized and applied.
package patch

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindAdd     Kind = "add"
	KindRemove  Kind = "remove"
	KindReplace Kind = "replace"
	KindMove    Kind = "move"
	KindCopy    Kind = "copy"
	KindTest    Kind = "test"
)

func (k Kind) valid() bool {
	switch k {
	case KindAdd, KindRemove, KindReplace, KindMove, KindCopy, KindTest:
		return true
	}
	return false
}

// needsValue reports whether entries of kind k must carry a value.
func (k Kind) needsValue() bool { return k == KindAdd || k == KindReplace || k == KindTest }

// needsFrom reports whether entries of kind k must carry a source path.
func (k Kind) needsFrom() bool { return k == KindMove || k == KindCopy }

// Operation is one patch entry. Path and value presence are tracked
// separately: "" is the document root and an explicit null is still a value.
type Operation struct {
	Op    Kind
	Path  string
	From  string
	Value any

	hasPath  bool
	hasValue bool
}

// HasValue reports whether the entry carries a value, null included.
func (o Operation) HasValue() bool { return o.hasValue }

type Patch []Operation

func Add(path string, v any) Operation {
	return Operation{Op: KindAdd, Path: path, Value: v, hasPath: true, hasValue: true}
}

func Replace(path string, v any) Operation {
	return Operation{Op: KindReplace, Path: path, Value: v, hasPath: true, hasValue: true}
}

func Test(path string, v any) Operation {
	return Operation{Op: KindTest, Path: path, Value: v, hasPath: true, hasValue: true}
}

func Remove(path string) Operation { return Operation{Op: KindRemove, Path: path, hasPath: true} }
func Move(from, path string) Operation { return Operation{Op: KindMove, From: from, Path: path, hasPath: true} }
func Copy(from, path string) Operation { return Operation{Op: KindCopy, From: from, Path: path, hasPath: true} }

type wireOperation struct {
	Op    Kind             `json:"op"`
	Path  string           `json:"path"`
	From  string           `json:"from,omitempty"`
	Value *json.RawMessage `json:"value,omitempty"`
}

func (o Operation) MarshalJSON() ([]byte, error) {
	w := wireOperation{Op: o.Op, Path: o.Path, From: o.From}
	if o.hasValue {
		raw, err := json.Marshal(o.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value of %s %s: %w", o.Op, o.Path, err)
		}
		msg := json.RawMessage(raw)
		w.Value = &msg
	}
	return json.Marshal(w)
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Operation{Op: w.Op, Path: w.Path, From: w.From}
	_, o.hasPath = fields["path"]
	if raw, ok := fields["value"]; ok {
		if err := json.Unmarshal(raw, &o.Value); err != nil {
			return err
		}
		o.hasValue = true
	}
	return nil
}

// Validate checks every entry before anything is applied.
func Validate(p Patch) error {
	for i, op := range p {
		reason := ""
		switch {
		case op.Op == "":
			reason = "missing op"
		case !op.Op.valid():
			reason = fmt.Sprintf("unknown op %q", op.Op)
		case !op.hasPath:
			reason = "missing path"
		case op.Path != "" && op.Path[0] != '/':
			reason = "path must start with /"
		case op.Op.needsValue() && !op.hasValue:
			reason = "missing value"
		case op.Op.needsFrom() && op.From == "":
			reason = "missing from"
		case op.Op.needsFrom() && op.From[0] != '/':
			reason = "from must start with /"
		}
		if reason != "" {
			return &ValidationError{Index: i, Op: op, Reason: reason}
		}
	}
	return nil
}

// Optimize collapses runs of replace entries on the same path into the last
// one of the run.
func Optimize(p Patch) Patch {
	out := make(Patch, 0, len(p))
	for _, op := range p {
		if n := len(out); n > 0 && op.Op == KindReplace && out[n-1].Op == KindReplace && out[n-1].Path == op.Path {
			out[n-1] = op
			continue
		}
		out = append(out, op)
	}
	return out
}
