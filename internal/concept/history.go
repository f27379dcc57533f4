package concept

import (
	"strings"

	"github.com/rcliao/nextstep/internal/graph"
	"github.com/rcliao/nextstep/internal/model"
)

// FromMessages turns stored conversation messages into a History. A user
// message that followed a recommendation contributes that option's title,
// and the category of the graph node with that name when there is one.
func FromMessages(msgs []model.Message, root *model.ConceptNode) History {
	categories := map[string]string{}
	graph.Walk(root, func(n, _ *model.ConceptNode) {
		k := strings.ToLower(strings.TrimSpace(n.Name))
		if _, ok := categories[k]; !ok && strings.TrimSpace(n.Category) != "" {
			categories[k] = n.Category
		}
	})

	h := History{Graph: root}
	for _, m := range msgs {
		if m.Role != model.RoleUser || m.Selected == nil {
			continue
		}
		title := m.Selected.Content
		h.Turns = append(h.Turns, Turn{
			Concepts: []string{title},
			Category: categories[strings.ToLower(strings.TrimSpace(title))],
		})
	}
	return h
}
