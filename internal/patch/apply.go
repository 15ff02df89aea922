package patch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"pagebuilder/internal/domain"
)

// ToTree converts v into its generic JSON form: map[string]any, []any,
// float64, string, bool and nil.
func ToTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tree: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal tree: %w", err)
	}
	return out, nil
}

// Apply validates p and applies it in order to a deep copy of doc, which must
// be in tree form. The first failing entry aborts with an *ApplyError and doc
// is left as it was.
func Apply(doc any, p Patch) (any, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	out := domain.CloneValue(doc)
	for i, op := range p {
		var err error
		out, err = applyOne(out, op)
		if err != nil {
			return nil, &ApplyError{Index: i, Op: op, Err: err}
		}
	}
	return out, nil
}

// ApplyToPage applies p to a page and returns the resulting page.
func ApplyToPage(page *domain.PageSchema, p Patch) (*domain.PageSchema, error) {
	doc, err := ToTree(page)
	if err != nil {
		return nil, err
	}
	res, err := Apply(doc, p)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal patched page: %w", err)
	}
	var out domain.PageSchema
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode patched page: %w", err)
	}
	if out.Components == nil {
		out.Components = []domain.ComponentNode{}
	}
	if len(out.Groups) == 0 {
		out.Groups = nil
	}
	return &out, nil
}

func applyOne(doc any, op Operation) (any, error) {
	path, err := ParsePointer(op.Path)
	if err != nil {
		return nil, err
	}
	switch op.Op {
	case KindAdd:
		v, err := ToTree(op.Value)
		if err != nil {
			return nil, err
		}
		return add(doc, path, v)
	case KindRemove:
		return remove(doc, path)
	case KindReplace:
		v, err := ToTree(op.Value)
		if err != nil {
			return nil, err
		}
		return replace(doc, path, v)
	case KindMove:
		if op.From == op.Path {
			return doc, nil
		}
		if isPrefix(op.From, op.Path) {
			return nil, ErrMoveIntoChild
		}
		from, err := ParsePointer(op.From)
		if err != nil {
			return nil, err
		}
		v, err := get(doc, from)
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		if doc, err = remove(doc, from); err != nil {
			return nil, err
		}
		return add(doc, path, v)
	case KindCopy:
		from, err := ParsePointer(op.From)
		if err != nil {
			return nil, err
		}
		v, err := get(doc, from)
		if err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
		return add(doc, path, domain.CloneValue(v))
	case KindTest:
		want, err := ToTree(op.Value)
		if err != nil {
			return nil, err
		}
		got, err := get(doc, path)
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(got, want) {
			return nil, ErrTestFailed
		}
		return doc, nil
	}
	return nil, fmt.Errorf("unknown op %q", op.Op)
}

func get(doc any, path []string) (any, error) {
	cur := doc
	for _, tok := range path {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[tok]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, tok)
			}
			cur = v
		case []any:
			i, err := arrayIndex(tok, len(c), false)
			if err != nil {
				return nil, err
			}
			cur = c[i]
		default:
			return nil, ErrNotContainer
		}
	}
	return cur, nil
}

// edit walks to the parent of path and replaces it with fn's result,
// rebuilding the chain of containers above it.
func edit(doc any, path []string, fn func(parent any, key string) (any, error)) (any, error) {
	if len(path) == 1 {
		return fn(doc, path[0])
	}
	switch c := doc.(type) {
	case map[string]any:
		child, ok := c[path[0]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path[0])
		}
		nc, err := edit(child, path[1:], fn)
		if err != nil {
			return nil, err
		}
		c[path[0]] = nc
		return c, nil
	case []any:
		i, err := arrayIndex(path[0], len(c), false)
		if err != nil {
			return nil, err
		}
		nc, err := edit(c[i], path[1:], fn)
		if err != nil {
			return nil, err
		}
		c[i] = nc
		return c, nil
	}
	return nil, ErrNotContainer
}

func add(doc any, path []string, v any) (any, error) {
	if len(path) == 0 {
		return v, nil
	}
	return edit(doc, path, func(parent any, key string) (any, error) {
		switch c := parent.(type) {
		case map[string]any:
			c[key] = v
			return c, nil
		case []any:
			i, err := arrayIndex(key, len(c), true)
			if err != nil {
				return nil, err
			}
			return slices.Insert(c, i, v), nil
		}
		return nil, ErrNotContainer
	})
}

func remove(doc any, path []string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: cannot remove the document root", ErrInvalidPointer)
	}
	return edit(doc, path, func(parent any, key string) (any, error) {
		switch c := parent.(type) {
		case map[string]any:
			if _, ok := c[key]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, key)
			}
			delete(c, key)
			return c, nil
		case []any:
			i, err := arrayIndex(key, len(c), false)
			if err != nil {
				return nil, err
			}
			return slices.Delete(c, i, i+1), nil
		}
		return nil, ErrNotContainer
	})
}

func replace(doc any, path []string, v any) (any, error) {
	if len(path) == 0 {
		return v, nil
	}
	return edit(doc, path, func(parent any, key string) (any, error) {
		switch c := parent.(type) {
		case map[string]any:
			if _, ok := c[key]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrPathNotFound, key)
			}
			c[key] = v
			return c, nil
		case []any:
			i, err := arrayIndex(key, len(c), false)
			if err != nil {
				return nil, err
			}
			c[i] = v
			return c, nil
		}
		return nil, ErrNotContainer
	})
}
