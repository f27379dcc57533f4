package graph

import (
	"strings"

	"github.com/rcliao/nextstep/internal/model"
)

// Merge folds a model-produced fragment into the previously stored graph.
//
// Nodes are matched by id. Previous nodes are never removed or moved; nodes
// present in both take the fragment's scalar fields (fields the fragment
// leaves empty keep their previous value) and merge children recursively;
// fragment-only nodes are inserted under the node they appear under in the
// fragment. A fragment rooted at an unknown id is attached under the
// previous root. Neither input is modified.
//
// With no previous graph the fragment is returned as is; callers storing it
// should pass it through Normalize first.
func Merge(previous, fragment *model.ConceptNode) *model.ConceptNode {
	if previous == nil {
		return fragment
	}
	if fragment == nil {
		return Clone(previous)
	}

	merged := Clone(previous)
	index := map[string]*model.ConceptNode{}
	Walk(merged, func(n, _ *model.ConceptNode) {
		// Stored nodes without an id are matched by the id their name derives.
		key := nodeID(n)
		if _, ok := index[key]; !ok && key != "" {
			index[key] = n
		}
	})

	apply(fragment, merged, index)
	return ensureSuperset(merged, previous)
}

// apply merges fragment node fn into the tree; anchor is where fn goes when
// its id is unknown.
func apply(fn, anchor *model.ConceptNode, index map[string]*model.ConceptNode) {
	id := nodeID(fn)
	if id == "" {
		for _, c := range fn.Children {
			if c != nil {
				apply(c, anchor, index)
			}
		}
		return
	}

	target, ok := index[id]
	if ok {
		updateScalars(target, fn)
	} else {
		target = copyScalars(fn)
		target.ID = id
		target.ExplorationDepth = clampDepth(target.ExplorationDepth)
		anchor.Children = append(anchor.Children, target)
		index[id] = target
	}

	for _, c := range fn.Children {
		if c == nil {
			continue
		}
		apply(c, target, index)
	}
}

// Normalize returns a copy of root that can be stored as a first graph:
// missing ids are derived from names and depths are clamped to [0, 1]. A
// non-root node with neither id nor name is dropped and its children take its
// place; a root with neither gets the id "root".
func Normalize(root *model.ConceptNode) *model.ConceptNode {
	if root == nil {
		return nil
	}
	n := copyScalars(root)
	if n.ID = nodeID(root); n.ID == "" {
		n.ID = "root"
	}
	n.ExplorationDepth = clampDepth(n.ExplorationDepth)
	n.Children = normalizeChildren(root.Children)
	return n
}

func normalizeChildren(children []*model.ConceptNode) []*model.ConceptNode {
	var out []*model.ConceptNode
	for _, c := range children {
		if c == nil {
			continue
		}
		id := nodeID(c)
		if id == "" {
			out = append(out, normalizeChildren(c.Children)...)
			continue
		}
		n := copyScalars(c)
		n.ID = id
		n.ExplorationDepth = clampDepth(n.ExplorationDepth)
		n.Children = normalizeChildren(c.Children)
		out = append(out, n)
	}
	return out
}

func updateScalars(dst, src *model.ConceptNode) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	dst.ExplorationDepth = clampDepth(src.ExplorationDepth)
	if src.LastVisited != "" {
		dst.LastVisited = src.LastVisited
	}
	if src.ImportanceWeight != nil {
		dst.ImportanceWeight = copyFloat(src.ImportanceWeight)
	}
	if src.UserInterest != nil {
		dst.UserInterest = copyFloat(src.UserInterest)
	}
	if src.Description != "" {
		dst.Description = src.Description
	}
	if src.Category != "" {
		dst.Category = src.Category
	}
	if len(src.SemanticTags) > 0 {
		dst.SemanticTags = append([]string(nil), src.SemanticTags...)
	}
}

// nodeID returns the node's id, deriving one from its name when the model
// left it out.
func nodeID(n *model.ConceptNode) string {
	if id := strings.TrimSpace(n.ID); id != "" {
		return id
	}
	return slug(n.Name)
}

func slug(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, "-")
}

func clampDepth(d float64) float64 {
	switch {
	case d < 0:
		return 0
	case d > 1:
		return 1
	}
	return d
}

// ensureSuperset re-attaches any previous node missing from merged under its
// previous parent (or the root), so IDs(merged) always covers IDs(previous).
func ensureSuperset(merged, previous *model.ConceptNode) *model.ConceptNode {
	have := IDSet(merged)
	Walk(previous, func(n, parent *model.ConceptNode) {
		if have[n.ID] {
			return
		}
		attach := merged
		if parent != nil {
			if p := Find(merged, parent.ID); p != nil {
				attach = p
			}
		}
		c := copyScalars(n)
		attach.Children = append(attach.Children, c)
		have[n.ID] = true
	})
	return merged
}
