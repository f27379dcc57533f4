// Package chat runs one reading turn end to end: context, prompt, stream,
// persistence and the concept graph update.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/nextstep/internal/concept"
	"github.com/rcliao/nextstep/internal/events"
	"github.com/rcliao/nextstep/internal/graph"
	"github.com/rcliao/nextstep/internal/llm"
	"github.com/rcliao/nextstep/internal/logger"
	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/prompt"
	"github.com/rcliao/nextstep/internal/splitter"
	"github.com/rcliao/nextstep/internal/store"
	"github.com/rcliao/nextstep/internal/stream"
)

// Options configures a Service.
type Options struct {
	Model        string
	GraphModel   string
	Language     prompt.Language
	Temperature  float64
	GraphUpdates bool
}

// TurnRequest is one user action: free text, a selected recommendation, or both.
type TurnRequest struct {
	ConversationID string
	Input          string
	Selected       *model.RecommendationOption
	Mode           prompt.Mode
	Goal           string
}

// TurnResult is what a turn produced. On a failed or cancelled turn it holds
// the partial output that was persisted.
type TurnResult struct {
	TurnID    string              `json:"turn_id"`
	User      *model.Message      `json:"user"`
	Assistant *model.Message      `json:"assistant"`
	Parsed    splitter.Result     `json:"parsed"`
	Graph     *model.GraphVersion `json:"graph,omitempty"`
	GraphErr  error               `json:"-"`
	Problems  []graph.Problem     `json:"graph_problems,omitempty"`
}

type activeTurn struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Service runs turns. At most one turn per conversation is in flight; a new
// turn cancels the previous one and waits for it to settle.
type Service struct {
	store  store.Store
	model  llm.Streamer
	events events.Publisher
	log    *logger.Logger
	opts   Options

	mu     sync.Mutex
	active map[string]*activeTurn
}

func New(st store.Store, m llm.Streamer, pub events.Publisher, log *logger.Logger, opts Options) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Language == "" {
		opts.Language = prompt.DefaultLanguage
	}
	if opts.GraphModel == "" {
		opts.GraphModel = opts.Model
	}
	return &Service{
		store:  st,
		model:  m,
		events: pub,
		log:    log,
		opts:   opts,
		active: map[string]*activeTurn{},
	}
}

// Turn runs req. onUpdate, when set, receives a snapshot after every applied
// delta. The returned error is the stream's terminal error; graph update
// failures are reported in TurnResult.GraphErr instead.
func (s *Service) Turn(ctx context.Context, req TurnRequest, onUpdate func(stream.Snapshot)) (*TurnResult, error) {
	input := strings.TrimSpace(req.Input)
	if input == "" && req.Selected != nil {
		input = req.Selected.Content
	}
	if input == "" {
		return nil, errors.New("turn: input or selected option required")
	}

	ctx, turn := s.begin(ctx, req.ConversationID)
	defer s.end(req.ConversationID, turn)
	log := s.log.With("conversation", req.ConversationID, "turn", turn.id)

	if _, err := s.store.GetConversation(ctx, req.ConversationID); err != nil {
		return nil, err
	}
	history, err := s.store.Messages(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	previous, err := s.store.LoadConceptGraph(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	pending := model.Message{Role: model.RoleUser, Content: input, Selected: req.Selected}
	cc := concept.Build(concept.FromMessages(append(history, pending), previous))
	system, err := prompt.Render(prompt.SmartRecommendation, s.opts.Language, prompt.Variables{
		Mode:           req.Mode,
		Goal:           req.Goal,
		ConceptContext: &cc,
	})
	if err != nil {
		return nil, err
	}

	// Writes after this point must survive cancellation of the turn.
	persistCtx := context.WithoutCancel(ctx)

	userMsg, err := s.store.AppendMessage(persistCtx, store.AppendParams{
		ConversationID: req.ConversationID,
		Role:           model.RoleUser,
		Content:        input,
		Selected:       req.Selected,
	})
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	s.publish(persistCtx, log, events.Event{ConversationID: req.ConversationID, TurnID: turn.id, Kind: events.KindStarted})

	chatReq := llm.ChatRequest{
		Model:       s.opts.Model,
		Messages:    chatMessages(system, history, input),
		Temperature: s.opts.Temperature,
	}
	acc := stream.New(stream.Hooks{OnUpdate: onUpdate})
	log.Debug("turn streaming", "history", len(history), "avoid", len(cc.AvoidanceList), "mind_map", len(cc.MindMapConcepts))
	streamErr := stream.Consume(ctx, llm.Source(s.model, chatReq), acc)

	snap := acc.Snapshot()
	status, kind := model.StatusComplete, events.KindCompleted
	switch {
	case errors.Is(streamErr, stream.ErrCancelled):
		status, kind = model.StatusCancelled, events.KindCancelled
	case streamErr != nil:
		status, kind = model.StatusFailed, events.KindFailed
	}

	assistant, err := s.store.AppendMessage(persistCtx, store.AppendParams{
		ConversationID: req.ConversationID,
		Role:           model.RoleAssistant,
		Content:        snap.Parsed.Main,
		Reasoning:      snap.Reasoning,
		Options:        snap.Parsed.Options,
		Status:         status,
	})
	if err != nil {
		return nil, errors.Join(streamErr, fmt.Errorf("save assistant message: %w", err))
	}

	ev := events.Event{
		ConversationID: req.ConversationID,
		TurnID:         turn.id,
		Kind:           kind,
		Options:        len(snap.Parsed.Options),
		Chars:          len(snap.Content),
	}
	if streamErr != nil {
		ev.Error = streamErr.Error()
	}
	s.publish(persistCtx, log, ev)

	res := &TurnResult{TurnID: turn.id, User: userMsg, Assistant: assistant, Parsed: snap.Parsed}
	if streamErr != nil {
		log.Info("turn ended early", "status", status, "error", streamErr)
		return res, streamErr
	}
	log.Info("turn complete", "options", len(snap.Parsed.Options), "chars", len(snap.Content))

	if s.opts.GraphUpdates {
		res.Graph, res.Problems, res.GraphErr = s.updateGraph(ctx, log, req.ConversationID, turn.id, previous, input, snap.Content)
		if res.GraphErr != nil {
			log.Warn("graph update skipped", "error", res.GraphErr)
		}
	}
	return res, nil
}

// Cancel stops the conversation's active turn, if any, and reports whether
// there was one.
func (s *Service) Cancel(conversationID string) bool {
	s.mu.Lock()
	t := s.active[conversationID]
	s.mu.Unlock()
	if t == nil {
		return false
	}
	t.cancel()
	return true
}

// Active reports whether a turn is in flight for the conversation.
func (s *Service) Active(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[conversationID] != nil
}

func (s *Service) begin(ctx context.Context, conversationID string) (context.Context, *activeTurn) {
	s.mu.Lock()
	for {
		prev := s.active[conversationID]
		if prev == nil {
			break
		}
		s.mu.Unlock()
		prev.cancel()
		<-prev.done
		s.mu.Lock()
	}
	ctx, cancel := context.WithCancel(ctx)
	t := &activeTurn{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	s.active[conversationID] = t
	s.mu.Unlock()
	return ctx, t
}

func (s *Service) end(conversationID string, t *activeTurn) {
	s.mu.Lock()
	if s.active[conversationID] == t {
		delete(s.active, conversationID)
	}
	s.mu.Unlock()
	t.cancel()
	close(t.done)
}

func (s *Service) publish(ctx context.Context, log *logger.Logger, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		log.Warn("publish turn event", "kind", e.Kind, "error", err)
	}
}

// chatMessages builds the request: the rendered system prompt, prior turns
// that produced text, then the new input.
func chatMessages(system string, history []model.Message, input string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: model.RoleSystem, Content: system})
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: model.RoleUser, Content: input})
}

type graphRequest struct {
	Graph     *model.ConceptNode `json:"graph"`
	User      string             `json:"user"`
	Assistant string             `json:"assistant"`
	Time      string             `json:"time"`
}

// updateGraph asks the model for the updated concept graph and merges it into
// the stored one. The merge keeps every previously stored node even when the
// model's reply drops some.
func (s *Service) updateGraph(ctx context.Context, log *logger.Logger, conversationID, turnID string, previous *model.ConceptNode, input, reply string) (*model.GraphVersion, []graph.Problem, error) {
	system, err := prompt.Render(prompt.KnowledgeGraph, s.opts.Language, prompt.Variables{})
	if err != nil {
		return nil, nil, err
	}
	payload, err := json.Marshal(graphRequest{
		Graph:     previous,
		User:      input,
		Assistant: reply,
		Time:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := llm.Complete(ctx, s.model, llm.ChatRequest{
		Model:       s.opts.GraphModel,
		Messages:    []llm.Message{{Role: model.RoleSystem, Content: system}, {Role: model.RoleUser, Content: string(payload)}},
		Temperature: 0,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("graph request: %w", err)
	}

	fragment, err := graph.ExtractFragment(out)
	if err != nil {
		return nil, nil, err
	}
	problems := graph.Validate(fragment)
	for _, p := range problems {
		log.Warn("graph fragment problem", "node", p.ID, "problem", p.Message)
	}
	if dropped := graph.Dropped(previous, fragment); len(dropped) > 0 {
		log.Warn("graph fragment dropped nodes, keeping them", "ids", dropped)
	}

	merged := graph.Merge(previous, fragment)
	if previous == nil {
		merged = graph.Normalize(merged)
	}
	v, err := s.store.SaveConceptGraph(context.WithoutCancel(ctx), conversationID, merged)
	if err != nil {
		return nil, problems, fmt.Errorf("save graph: %w", err)
	}
	s.publish(context.WithoutCancel(ctx), log, events.Event{
		ConversationID: conversationID,
		TurnID:         turnID,
		Kind:           events.KindGraph,
		GraphVersion:   v.Version,
	})
	return v, problems, nil
}
