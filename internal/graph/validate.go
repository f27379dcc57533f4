package graph

import (
	"fmt"

	"github.com/rcliao/nextstep/internal/model"
)

// Problem describes one way a graph departs from the expected shape.
type Problem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.ID, p.Message)
}

// Validate reports shape problems in a model-produced graph: missing or
// duplicate ids, empty names, unknown statuses and depths out of range.
// Merge tolerates all of these; callers log them.
func Validate(root *model.ConceptNode) []Problem {
	var problems []Problem
	seen := map[string]bool{}
	Walk(root, func(n, _ *model.ConceptNode) {
		switch {
		case n.ID == "":
			problems = append(problems, Problem{ID: n.Name, Message: "missing id"})
		case seen[n.ID]:
			problems = append(problems, Problem{ID: n.ID, Message: "duplicate id"})
		}
		seen[n.ID] = true

		if n.Name == "" {
			problems = append(problems, Problem{ID: n.ID, Message: "empty name"})
		}
		if n.Status != "" && !model.ValidNodeStatuses[n.Status] {
			problems = append(problems, Problem{ID: n.ID, Message: fmt.Sprintf("unknown status %q", n.Status)})
		}
		if n.ExplorationDepth < 0 || n.ExplorationDepth > 1 {
			problems = append(problems, Problem{ID: n.ID, Message: fmt.Sprintf("exploration_depth %v out of range", n.ExplorationDepth)})
		}
	})
	return problems
}

// Dropped returns the ids of previous that fragment no longer mentions.
// A well-behaved incremental update returns an empty list.
func Dropped(previous, fragment *model.ConceptNode) []string {
	have := IDSet(fragment)
	var dropped []string
	Walk(previous, func(n, _ *model.ConceptNode) {
		if !have[n.ID] {
			dropped = append(dropped, n.ID)
		}
	})
	return dropped
}
