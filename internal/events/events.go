// Package events records the lifecycle of chat turns in an append-only log.
package events

import (
	"context"
	"time"
)

// Turn event kinds.
const (
	KindStarted   = "started"
	KindCompleted = "completed"
	KindFailed    = "failed"
	KindCancelled = "cancelled"
	KindGraph     = "graph"
)

// Event is one entry in a conversation's turn log.
type Event struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	TurnID         string    `json:"turn_id"`
	Kind           string    `json:"kind"`
	Options        int       `json:"options,omitempty"`
	Chars          int       `json:"chars,omitempty"`
	GraphVersion   int       `json:"graph_version,omitempty"`
	Error          string    `json:"error,omitempty"`
	Time           time.Time `json:"time"`
}

// Publisher appends events to the log.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
