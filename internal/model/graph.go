package model

import "time"

// Concept node statuses.
const (
	NodeExplored    = "explored"
	NodeCurrent     = "current"
	NodeRecommended = "recommended"
	NodePotential   = "potential"
)

// ValidNodeStatuses are the allowed concept node statuses.
var ValidNodeStatuses = map[string]bool{
	NodeExplored:    true,
	NodeCurrent:     true,
	NodeRecommended: true,
	NodePotential:   true,
}

// ConceptNode is one node of a conversation's concept graph (mind map).
// IDs are stable across merges; children are ordered.
type ConceptNode struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Status           string         `json:"status,omitempty"`
	ExplorationDepth float64        `json:"exploration_depth"`
	LastVisited      string         `json:"last_visited,omitempty"`
	ImportanceWeight *float64       `json:"importance_weight,omitempty"`
	UserInterest     *float64       `json:"user_interest,omitempty"`
	Description      string         `json:"description,omitempty"`
	Category         string         `json:"category,omitempty"`
	SemanticTags     []string       `json:"semantic_tags,omitempty"`
	Children         []*ConceptNode `json:"children,omitempty"`
}

// GraphVersion is one persisted revision of a conversation's concept graph.
type GraphVersion struct {
	ConversationID string       `json:"conversation_id"`
	Version        int          `json:"version"`
	Supersedes     int          `json:"supersedes,omitempty"`
	NodeCount      int          `json:"node_count"`
	Root           *ConceptNode `json:"root"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ConceptRecommendationContext is the reading history fed into prompt
// rendering to keep recommendations away from already explored concepts.
type ConceptRecommendationContext struct {
	AvoidanceList       []string `json:"avoidance_list,omitempty"`
	RecentConcepts      []string `json:"recent_concepts,omitempty"`
	MindMapConcepts     []string `json:"mind_map_concepts,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
}

// HasAvoidance reports whether there is anything recommendations should steer away from.
func (c *ConceptRecommendationContext) HasAvoidance() bool {
	return c != nil && (len(c.MindMapConcepts) > 0 || len(c.AvoidanceList) > 0)
}
