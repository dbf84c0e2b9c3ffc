// Package tree implements the lock-step walk/transform/zip operations that
// the rest of parman uses to map a result shape onto a promise shape, and to
// type-check nested parameter/result payloads without reflection tags.
//
// A tree is any Go value. Two shapes are recognized structurally: an ordered
// sequence ([]any) and a mapping from string keys to subtrees (map[string]any).
// Anything else — including a tuple of several mismatched subtrees — is an
// opaque leaf.
package tree

import "sort"

// Get descends tree along path, where each path element is either an int
// (sequence index) or a string (mapping key). An empty path returns tree
// itself.
func Get(t any, path ...any) any {
	cur := t
	for _, key := range path {
		switch k := key.(type) {
		case int:
			seq, ok := cur.([]any)
			if !ok || k < 0 || k >= len(seq) {
				return nil
			}
			cur = seq[k]
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = m[k]
		default:
			return nil
		}
	}
	return cur
}

// kind classifies a node for lock-step descent purposes.
type kind int

const (
	kindLeaf kind = iota
	kindSeq
	kindMap
)

func classify(v any) kind {
	switch v.(type) {
	case []any:
		return kindSeq
	case map[string]any:
		return kindMap
	default:
		return kindLeaf
	}
}

// congruent reports whether every node in nodes shares the same non-leaf
// skeleton: all sequences of equal length, or all mappings with an equal key
// set. A single node is trivially congruent with itself.
func congruent(nodes []any) (kind, []string, int, bool) {
	k0 := classify(nodes[0])
	if k0 == kindLeaf {
		return kindLeaf, nil, 0, false
	}
	switch k0 {
	case kindSeq:
		n := len(nodes[0].([]any))
		for _, node := range nodes[1:] {
			s, ok := node.([]any)
			if !ok || len(s) != n {
				return kindLeaf, nil, 0, false
			}
		}
		return kindSeq, nil, n, true
	case kindMap:
		first := nodes[0].(map[string]any)
		keys := make([]string, 0, len(first))
		for k := range first {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, node := range nodes[1:] {
			m, ok := node.(map[string]any)
			if !ok || len(m) != len(first) {
				return kindLeaf, nil, 0, false
			}
			for _, k := range keys {
				if _, present := m[k]; !present {
					return kindLeaf, nil, 0, false
				}
			}
		}
		return kindMap, keys, 0, true
	}
	return kindLeaf, nil, 0, false
}

// Visitor is called once per leaf position reached during a Walk, receiving
// the path to that position and the corresponding node from each input tree
// (a single-element slice when only one tree was given).
type Visitor func(path []any, leaves []any) error

// Walk visits every leaf position reached by descending the given trees in
// lock-step, calling visit at each one. Descent stops — and the current
// nodes are treated as a leaf — at the first point where the trees' outer
// node types disagree (different kinds, sequences of different length, or
// mappings with different key sets).
func Walk(visit Visitor, trees ...any) error {
	return walk(nil, trees, visit)
}

func walk(path []any, nodes []any, visit Visitor) error {
	k, keys, n, ok := congruent(nodes)
	if !ok {
		return visit(append(append([]any{}, path...)), nodes)
	}
	switch k {
	case kindSeq:
		for i := 0; i < n; i++ {
			next := make([]any, len(nodes))
			for j, node := range nodes {
				next[j] = node.([]any)[i]
			}
			if err := walk(append(path, i), next, visit); err != nil {
				return err
			}
		}
	case kindMap:
		for _, key := range keys {
			next := make([]any, len(nodes))
			for j, node := range nodes {
				next[j] = node.(map[string]any)[key]
			}
			if err := walk(append(path, key), next, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// Transformer produces the output leaf value (or subtree) for a position,
// given its path and the corresponding node from each input tree.
type Transformer func(path []any, leaves []any) any

// Transform rebuilds a tree congruent to the inputs, replacing each leaf
// position with the value returned by f. Like Walk, descent stops at the
// first structural mismatch and f is invoked on the mismatched node tuple
// directly.
func Transform(f Transformer, trees ...any) any {
	return transform(nil, trees, f)
}

func transform(path []any, nodes []any, f Transformer) any {
	k, keys, n, ok := congruent(nodes)
	if !ok {
		return f(append([]any{}, path...), nodes)
	}
	switch k {
	case kindSeq:
		out := make([]any, n)
		for i := 0; i < n; i++ {
			next := make([]any, len(nodes))
			for j, node := range nodes {
				next[j] = node.([]any)[i]
			}
			out[i] = transform(append(path, i), next, f)
		}
		return out
	case kindMap:
		out := make(map[string]any, len(keys))
		for _, key := range keys {
			next := make([]any, len(nodes))
			for j, node := range nodes {
				next[j] = node.(map[string]any)[key]
			}
			out[key] = transform(append(path, key), next, f)
		}
		return out
	}
	return nil
}
