// Package graph merges and inspects conversation concept graphs.
package graph

import "github.com/rcliao/nextstep/internal/model"

// Walk visits every node in pre-order. parent is nil for root.
func Walk(root *model.ConceptNode, fn func(n, parent *model.ConceptNode)) {
	walk(root, nil, fn)
}

func walk(n, parent *model.ConceptNode, fn func(n, parent *model.ConceptNode)) {
	if n == nil {
		return
	}
	fn(n, parent)
	for _, c := range n.Children {
		walk(c, n, fn)
	}
}

// IDs returns the ids of all nodes in pre-order, duplicates included.
func IDs(root *model.ConceptNode) []string {
	var ids []string
	Walk(root, func(n, _ *model.ConceptNode) {
		ids = append(ids, n.ID)
	})
	return ids
}

// IDSet returns the distinct node ids.
func IDSet(root *model.ConceptNode) map[string]bool {
	set := map[string]bool{}
	Walk(root, func(n, _ *model.ConceptNode) {
		set[n.ID] = true
	})
	return set
}

// Count returns the number of nodes.
func Count(root *model.ConceptNode) int {
	n := 0
	Walk(root, func(*model.ConceptNode, *model.ConceptNode) { n++ })
	return n
}

// Find returns the first node with id in pre-order, or nil.
func Find(root *model.ConceptNode, id string) *model.ConceptNode {
	var found *model.ConceptNode
	Walk(root, func(n, _ *model.ConceptNode) {
		if found == nil && n.ID == id {
			found = n
		}
	})
	return found
}

// Names returns node names in pre-order.
func Names(root *model.ConceptNode) []string {
	var names []string
	Walk(root, func(n, _ *model.ConceptNode) {
		names = append(names, n.Name)
	})
	return names
}

// Clone deep-copies a tree.
func Clone(n *model.ConceptNode) *model.ConceptNode {
	if n == nil {
		return nil
	}
	c := copyScalars(n)
	if n.Children != nil {
		c.Children = make([]*model.ConceptNode, 0, len(n.Children))
		for _, child := range n.Children {
			c.Children = append(c.Children, Clone(child))
		}
	}
	return c
}

// copyScalars copies a node without its children.
func copyScalars(n *model.ConceptNode) *model.ConceptNode {
	c := *n
	c.Children = nil
	c.ImportanceWeight = copyFloat(n.ImportanceWeight)
	c.UserInterest = copyFloat(n.UserInterest)
	if n.SemanticTags != nil {
		c.SemanticTags = append([]string(nil), n.SemanticTags...)
	}
	return &c
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
