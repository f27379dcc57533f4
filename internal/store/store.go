// Package store persists conversations, messages and concept graph versions.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/nextstep/internal/model"
)

// ErrNotFound is returned when a conversation does not exist.
var ErrNotFound = errors.New("not found")

// AppendParams holds parameters for storing a message.
type AppendParams struct {
	ConversationID string
	Role           string
	Content        string
	Reasoning      string
	Options        []model.RecommendationOption
	Selected       *model.RecommendationOption
	Status         string
}

// ListParams holds parameters for listing conversations.
type ListParams struct {
	Limit int
}

// SearchParams holds parameters for searching messages.
type SearchParams struct {
	ConversationID string
	Query          string
	Role           string
	Limit          int
}

// Store defines the conversation storage interface.
type Store interface {
	CreateConversation(ctx context.Context, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, p ListParams) ([]model.Conversation, error)
	// DeleteConversation removes the conversation with its messages and graph versions.
	DeleteConversation(ctx context.Context, id string) error

	// AppendMessage stores a message at the end of a conversation.
	AppendMessage(ctx context.Context, p AppendParams) (*model.Message, error)
	// Messages returns a conversation's messages in the order they were appended.
	Messages(ctx context.Context, conversationID string) ([]model.Message, error)

	// LoadConceptGraph returns the latest graph, or nil when none was saved.
	LoadConceptGraph(ctx context.Context, conversationID string) (*model.ConceptNode, error)
	// SaveConceptGraph stores root as a new version superseding the latest one.
	SaveConceptGraph(ctx context.Context, conversationID string, root *model.ConceptNode) (*model.GraphVersion, error)

	Close() error
}
