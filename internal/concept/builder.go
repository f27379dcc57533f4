// Package concept assembles the "already explored" context that keeps
// recommendations from repeating what a reader has covered.
package concept

import (
	"sort"
	"strings"

	"github.com/rcliao/nextstep/internal/graph"
	"github.com/rcliao/nextstep/internal/model"
)

const (
	// MaxRecentConcepts bounds RecentConcepts.
	MaxRecentConcepts = 5
	// MaxPreferredCategories bounds PreferredCategories.
	MaxPreferredCategories = 3
	// MasteryDepth is the exploration depth at which an explored node counts as mastered.
	MasteryDepth = 0.8
)

// Turn is one step of reading history.
type Turn struct {
	Concepts []string
	Category string
}

// History is a snapshot of a conversation's reading history.
type History struct {
	Turns    []Turn // oldest first
	Graph    *model.ConceptNode
	Mastered []string
}

// Build derives the recommendation context from h. The result depends only
// on h: lists are deduplicated case-insensitively, keeping the first spelling.
func Build(h History) model.ConceptRecommendationContext {
	var cc model.ConceptRecommendationContext

	recent := newSet()
	for i := len(h.Turns) - 1; i >= 0 && recent.len() < MaxRecentConcepts; i-- {
		for _, c := range h.Turns[i].Concepts {
			if recent.len() == MaxRecentConcepts {
				break
			}
			recent.add(c)
		}
	}
	cc.RecentConcepts = recent.items

	mindMap := newSet()
	avoid := newSet()
	for _, m := range h.Mastered {
		avoid.add(m)
	}

	categories := map[string]int{}
	labels := map[string]string{}
	countCategory := func(c string) {
		c = strings.TrimSpace(c)
		if c == "" {
			return
		}
		k := strings.ToLower(c)
		if _, ok := labels[k]; !ok {
			labels[k] = c
		}
		categories[k]++
	}
	for _, t := range h.Turns {
		countCategory(t.Category)
	}

	graph.Walk(h.Graph, func(n, _ *model.ConceptNode) {
		mindMap.add(n.Name)
		if n.Status == model.NodeExplored && n.ExplorationDepth >= MasteryDepth {
			avoid.add(n.Name)
		}
		if n.Status == model.NodeExplored || n.Status == model.NodeCurrent {
			countCategory(n.Category)
		}
	})
	cc.MindMapConcepts = mindMap.items
	cc.AvoidanceList = avoid.items
	cc.PreferredCategories = topCategories(categories, labels)

	return cc
}

func topCategories(counts map[string]int, labels map[string]string) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > MaxPreferredCategories {
		keys = keys[:MaxPreferredCategories]
	}
	var out []string
	for _, k := range keys {
		out = append(out, labels[k])
	}
	return out
}

// orderedSet keeps insertion order with case-insensitive membership.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newSet() *orderedSet {
	return &orderedSet{seen: map[string]bool{}}
}

func (s *orderedSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	k := strings.ToLower(v)
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int { return len(s.items) }
