package patch

import (
	"reflect"
	"slices"
	"strconv"

	"pagebuilder/internal/domain"
)

// Diff computes a patch turning tree a into tree b. Objects are compared key
// by key. Arrays whose elements are all objects with a unique string "id" are
// matched by id (removes, then moves and adds, then nested changes); other
// arrays are aligned on their longest common subsequence.
func Diff(a, b any) Patch {
	var p Patch
	diffValue(&p, "", a, b)
	return p
}

// CreatePatch diffs two pages.
func CreatePatch(a, b *domain.PageSchema) (Patch, error) {
	ta, err := ToTree(a)
	if err != nil {
		return nil, err
	}
	tb, err := ToTree(b)
	if err != nil {
		return nil, err
	}
	return Diff(ta, tb), nil
}

func diffValue(p *Patch, path string, a, b any) {
	if reflect.DeepEqual(a, b) {
		return
	}
	switch av := a.(type) {
	case map[string]any:
		if bv, ok := b.(map[string]any); ok {
			diffObject(p, path, av, bv)
			return
		}
	case []any:
		if bv, ok := b.([]any); ok {
			if keyedByID(av) && keyedByID(bv) {
				diffByID(p, path, av, bv)
			} else {
				diffLCS(p, path, av, bv)
			}
			return
		}
	}
	*p = append(*p, Replace(path, b))
}

func diffObject(p *Patch, path string, a, b map[string]any) {
	for _, k := range sortedKeys(a) {
		if _, ok := b[k]; !ok {
			*p = append(*p, Remove(path+Pointer(k)))
		}
	}
	for _, k := range sortedKeys(a) {
		if bv, ok := b[k]; ok {
			diffValue(p, path+Pointer(k), a[k], bv)
		}
	}
	for _, k := range sortedKeys(b) {
		if _, ok := a[k]; !ok {
			*p = append(*p, Add(path+Pointer(k), b[k]))
		}
	}
}

func keyedByID(list []any) bool {
	seen := make(map[string]bool, len(list))
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return false
		}
		id, ok := m["id"].(string)
		if !ok || id == "" || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

func idOf(e any) string { return e.(map[string]any)["id"].(string) }

func diffByID(p *Patch, path string, a, b []any) {
	inB := make(map[string]bool, len(b))
	for _, e := range b {
		inB[idOf(e)] = true
	}
	old := make(map[string]any, len(a))
	cur := make([]string, 0, len(a))
	for _, e := range a {
		old[idOf(e)] = e
		cur = append(cur, idOf(e))
	}

	for i := len(cur) - 1; i >= 0; i-- {
		if !inB[cur[i]] {
			*p = append(*p, Remove(path+"/"+strconv.Itoa(i)))
			cur = slices.Delete(cur, i, i+1)
		}
	}
	// cur[:j] matches b[:j] after every step.
	for j, e := range b {
		id := idOf(e)
		if _, ok := old[id]; !ok {
			*p = append(*p, Add(path+"/"+strconv.Itoa(j), e))
			cur = slices.Insert(cur, j, id)
			continue
		}
		if k := slices.Index(cur, id); k != j {
			*p = append(*p, Move(path+"/"+strconv.Itoa(k), path+"/"+strconv.Itoa(j)))
			cur = slices.Delete(cur, k, k+1)
			cur = slices.Insert(cur, j, id)
		}
	}
	for j, e := range b {
		if prev, ok := old[idOf(e)]; ok {
			diffValue(p, path+"/"+strconv.Itoa(j), prev, e)
		}
	}
}

func diffLCS(p *Patch, path string, a, b []any) {
	n, m := len(a), len(b)
	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if reflect.DeepEqual(a[i], b[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}
	keepA := make([]bool, n)
	keepB := make([]bool, m)
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case reflect.DeepEqual(a[i], b[j]):
			keepA[i], keepB[j] = true, true
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			i++
		default:
			j++
		}
	}
	for i := n - 1; i >= 0; i-- {
		if !keepA[i] {
			*p = append(*p, Remove(path+"/"+strconv.Itoa(i)))
		}
	}
	for j := 0; j < m; j++ {
		if !keepB[j] {
			*p = append(*p, Add(path+"/"+strconv.Itoa(j), b[j]))
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
