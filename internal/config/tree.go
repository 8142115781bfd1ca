package config

import (
	"strconv"
	"strings"
)

// Trees are the generic form of a configuration: map[string]any nodes with
// []any lists and scalar leaves, as produced by yaml.v3 and by walking CUE.

// merge overlays src onto dst. Nested maps merge key by key; any other
// value in src replaces the value in dst. dst is modified in place.
func merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		sm, srcIsMap := sv.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = merge(dm, sm)
			continue
		}
		dst[k] = cloneValue(sv)
	}
	return dst
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return val
	}
}

// splitPath splits a dotted key. Empty segments are rejected by callers.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// lookup walks a dotted path through maps and list indexes.
func lookup(tree map[string]any, path string) (any, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	var cur any = tree
	for _, seg := range segs {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, ok := listIndex(node, seg)
			if !ok {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// setPath assigns value at a dotted path, creating intermediate maps.
// Numeric segments index into lists; an index must already exist, lists
// are never grown. It reports false if a scalar is in the way or an index
// is out of range.
func setPath(tree map[string]any, segs []string, value any) bool {
	var node any = tree
	for _, seg := range segs[:len(segs)-1] {
		switch n := node.(type) {
		case map[string]any:
			next, ok := n[seg]
			if !ok {
				next = map[string]any{}
				n[seg] = next
			}
			node = next
		case []any:
			i, ok := listIndex(n, seg)
			if !ok {
				return false
			}
			node = n[i]
		default:
			return false
		}
	}
	last := segs[len(segs)-1]
	switch n := node.(type) {
	case map[string]any:
		n[last] = value
	case []any:
		i, ok := listIndex(n, last)
		if !ok {
			return false
		}
		n[i] = value
	default:
		return false
	}
	return true
}

// deletePath removes the value at a dotted path, reporting whether it
// existed. A list element is removed in place; later elements shift down,
// so the parent list is rewritten in its own parent.
func deletePath(tree map[string]any, segs []string) bool {
	var parent any = tree
	var parentKey string
	var node any = tree
	for _, seg := range segs[:len(segs)-1] {
		var next any
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return false
			}
			next = v
		case []any:
			i, ok := listIndex(n, seg)
			if !ok {
				return false
			}
			next = n[i]
		default:
			return false
		}
		parent, parentKey, node = node, seg, next
	}
	last := segs[len(segs)-1]
	switch n := node.(type) {
	case map[string]any:
		if _, ok := n[last]; !ok {
			return false
		}
		delete(n, last)
	case []any:
		i, ok := listIndex(n, last)
		if !ok {
			return false
		}
		shrunk := append(n[:i:i], n[i+1:]...)
		switch p := parent.(type) {
		case map[string]any:
			p[parentKey] = shrunk
		case []any:
			j, _ := listIndex(p, parentKey)
			p[j] = shrunk
		}
	default:
		return false
	}
	return true
}

// listIndex parses seg as an index into list.
func listIndex(list []any, seg string) (int, bool) {
	i, err := strconv.Atoi(seg)
	if err != nil || i < 0 || i >= len(list) {
		return 0, false
	}
	return i, true
}
