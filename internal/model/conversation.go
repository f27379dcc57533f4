// Package model defines the core nextstep data types.
package model

import "time"

// Conversation is a reading session with its own message history and concept graph.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one stored turn half. Assistant messages carry the narrative
// text in Content and the parsed recommendation options separately.
type Message struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	Reasoning      string                 `json:"reasoning,omitempty"`
	Options        []RecommendationOption `json:"options,omitempty"`
	Selected       *RecommendationOption  `json:"selected,omitempty"`
	Status         string                 `json:"status"`
	CreatedAt      time.Time              `json:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

const (
	StatusComplete  = "complete"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ValidRoles are the roles a stored message may have.
var ValidRoles = map[string]bool{
	RoleUser:      true,
	RoleAssistant: true,
}

// ValidStatuses are the allowed message statuses.
var ValidStatuses = map[string]bool{
	StatusComplete:  true,
	StatusFailed:    true,
	StatusCancelled: true,
}
