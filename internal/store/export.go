package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/nextstep/internal/model"
)

// Export is a self-contained copy of one conversation.
type Export struct {
	Conversation model.Conversation   `json:"conversation"`
	Messages     []model.Message      `json:"messages"`
	Graphs       []model.GraphVersion `json:"graphs,omitempty"`
}

// ExportConversation returns the conversation with all messages and graph
// versions, oldest graph first.
func (s *SQLiteStore) ExportConversation(ctx context.Context, id string) (*Export, error) {
	c, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Messages(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.GraphHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return &Export{Conversation: *c, Messages: msgs, Graphs: history}, nil
}

// ImportConversation stores an export as a new conversation with fresh ids.
// Messages keep their order; graph versions are renumbered from 1.
func (s *SQLiteStore) ImportConversation(ctx context.Context, e *Export) (*model.Conversation, error) {
	if e == nil {
		return nil, errors.New("import: empty export")
	}
	c, err := s.CreateConversation(ctx, e.Conversation.Title)
	if err != nil {
		return nil, err
	}
	for i, m := range e.Messages {
		_, err := s.AppendMessage(ctx, AppendParams{
			ConversationID: c.ID,
			Role:           m.Role,
			Content:        m.Content,
			Reasoning:      m.Reasoning,
			Options:        m.Options,
			Selected:       m.Selected,
			Status:         m.Status,
		})
		if err != nil {
			return c, fmt.Errorf("import message %d: %w", i, err)
		}
	}
	for _, g := range e.Graphs {
		if g.Root == nil {
			continue
		}
		if _, err := s.SaveConceptGraph(ctx, c.ID, g.Root); err != nil {
			return c, fmt.Errorf("import graph v%d: %w", g.Version, err)
		}
	}
	return c, nil
}
