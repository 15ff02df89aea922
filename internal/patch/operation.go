package patch

import (
	"fmt"
	"strconv"

	"pagebuilder/internal/domain"
)

func componentPath(i int) string { return "/components/" + strconv.Itoa(i) }

// FromOperation derives the patch for a committed operation directly, without
// diffing. before and after are the pages on either side of op. Bulk
// operations fall back to CreatePatch.
func FromOperation(before, after *domain.PageSchema, op domain.ComponentOperation) (Patch, error) {
	switch op.Type {
	case domain.OpAdd:
		i := after.IndexOf(op.ComponentID)
		if i < 0 {
			return nil, fmt.Errorf("add: component %s missing after", op.ComponentID)
		}
		return Patch{Add("/components/-", after.Components[i])}, nil

	case domain.OpRemove:
		i := before.IndexOf(op.ComponentID)
		if i < 0 {
			return nil, fmt.Errorf("remove: component %s missing before", op.ComponentID)
		}
		p := Patch{Remove(componentPath(i))}
		p = append(p, replaceMembers(after, op.Data.MemberIDs)...)
		return append(p, frameChanges(before, after, op.Data.GroupID)...), nil

	case domain.OpUpdate:
		i := after.IndexOf(op.ComponentID)
		if i < 0 {
			return nil, fmt.Errorf("update: component %s missing after", op.ComponentID)
		}
		return Patch{Replace(componentPath(i), after.Components[i])}, nil

	case domain.OpMove:
		from, to := before.IndexOf(op.ComponentID), after.IndexOf(op.ComponentID)
		if from < 0 || to < 0 {
			return nil, fmt.Errorf("move: component %s missing", op.ComponentID)
		}
		return Patch{Move(componentPath(from), componentPath(to))}, nil

	case domain.OpDuplicate:
		src := before.IndexOf(op.Data.SourceID)
		if src < 0 || src+1 >= len(after.Components) {
			return nil, fmt.Errorf("duplicate: source %s missing", op.Data.SourceID)
		}
		return Patch{Add(componentPath(src+1), after.Components[src+1])}, nil

	case domain.OpGroup, domain.OpUngroup:
		p := frameChanges(before, after, op.Data.GroupID)
		return append(p, replaceMembers(after, op.Data.MemberIDs)...), nil

	case domain.OpBatch, domain.OpLoad:
		return CreatePatch(before, after)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
}

// replaceMembers emits one whole-node replace per id, at its index in after.
func replaceMembers(after *domain.PageSchema, ids []string) Patch {
	var p Patch
	for _, id := range ids {
		if i := after.IndexOf(id); i >= 0 {
			p = append(p, Replace(componentPath(i), after.Components[i]))
		}
	}
	return p
}

// frameChanges emits the add or remove of a group frame. The groups object
// itself is omitted from pages without groups, so the first frame creates it
// and the last one removes it.
func frameChanges(before, after *domain.PageSchema, groupID string) Patch {
	if groupID == "" {
		return nil
	}
	_, had := before.Groups[groupID]
	f, has := after.Groups[groupID]
	switch {
	case !had && has:
		if len(before.Groups) == 0 {
			return Patch{Add("/groups", map[string]domain.GroupFrame{groupID: f})}
		}
		return Patch{Add(Pointer("groups", groupID), f)}
	case had && !has:
		if len(after.Groups) == 0 {
			return Patch{Remove("/groups")}
		}
		return Patch{Remove(Pointer("groups", groupID))}
	}
	return nil
}
