package chat

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/nextstep/internal/events"
	"github.com/rcliao/nextstep/internal/graph"
	"github.com/rcliao/nextstep/internal/llm"
	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/prompt"
	"github.com/rcliao/nextstep/internal/store"
	"github.com/rcliao/nextstep/internal/stream"
)

type reply func(ctx context.Context, onDelta func(model.StreamDelta)) error

func text(parts ...string) reply {
	return func(_ context.Context, onDelta func(model.StreamDelta)) error {
		for _, p := range parts {
			onDelta(model.StreamDelta{Content: p})
		}
		return nil
	}
}

type fakeModel struct {
	mu      sync.Mutex
	calls   []llm.ChatRequest
	replies []reply
}

func (f *fakeModel) StreamChat(ctx context.Context, req llm.ChatRequest, onDelta func(model.StreamDelta)) error {
	f.mu.Lock()
	i := len(f.calls)
	f.calls = append(f.calls, req)
	var r reply
	if i < len(f.replies) {
		r = f.replies[i]
	}
	f.mu.Unlock()
	if r == nil {
		return errors.New("unexpected model call")
	}
	return r(ctx, onDelta)
}

func (f *fakeModel) call(i int) llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type fixture struct {
	svc   *Service
	store *store.SQLiteStore
	model *fakeModel
	rec   *recorder
	conv  *model.Conversation
}

func newFixture(t *testing.T, opts Options, replies ...reply) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	conv, err := st.CreateConversation(context.Background(), "Transformers")
	require.NoError(t, err)

	if opts.Model == "" {
		opts.Model = "test-model"
	}
	if opts.Language == "" {
		opts.Language = prompt.English
	}
	fm := &fakeModel{replies: replies}
	rec := &recorder{}
	return &fixture{
		svc:   New(st, fm, rec, nil, opts),
		store: st,
		model: fm,
		rec:   rec,
		conv:  conv,
	}
}

const (
	deepenLine = `{"type":"deepen","content":"Multi-head attention","describe":"Several attention maps in parallel"}`
	nextLine   = `{"type":"next","content":"BERT","describe":"Bidirectional pretraining"}`
)

func TestTurnPersistsNarrativeAndOptions(t *testing.T) {
	f := newFixture(t, Options{}, text("Attention weighs tokens.\n", deepenLine+"\n", nextLine))

	var updates []stream.Snapshot
	res, err := f.svc.Turn(context.Background(), TurnRequest{
		ConversationID: f.conv.ID,
		Input:          "Explain attention",
		Goal:           "Understand transformers",
	}, func(s stream.Snapshot) { updates = append(updates, s) })
	require.NoError(t, err)

	assert.Equal(t, "Attention weighs tokens.", res.Parsed.Main)
	require.Len(t, res.Parsed.Options, 2)
	assert.Equal(t, model.OptionDeepen, res.Parsed.Options[0].Type)
	assert.Equal(t, model.StatusComplete, res.Assistant.Status)
	assert.Nil(t, res.Graph)

	require.Len(t, updates, 3)
	assert.Len(t, updates[1].Parsed.Options, 1)

	msgs, err := f.store.Messages(context.Background(), f.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Explain attention", msgs[0].Content)
	assert.Equal(t, "Attention weighs tokens.", msgs[1].Content)
	assert.Len(t, msgs[1].Options, 2)

	req := f.model.call(0)
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, model.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, prompt.FormatMarker)
	assert.Contains(t, req.Messages[0].Content, "Understand transformers")
	assert.Equal(t, llm.Message{Role: model.RoleUser, Content: "Explain attention"}, req.Messages[1])

	assert.Equal(t, []string{events.KindStarted, events.KindCompleted}, f.rec.kinds())
	assert.False(t, f.svc.Active(f.conv.ID))
}

func TestTurnHistoryAndAvoidance(t *testing.T) {
	f := newFixture(t, Options{}, text("first"), text("second"))
	ctx := context.Background()

	_, err := f.store.SaveConceptGraph(ctx, f.conv.ID, &model.ConceptNode{
		ID: "root", Name: "Deep learning", Status: model.NodeCurrent,
		Children: []*model.ConceptNode{{ID: "tf", Name: "Transformers", Status: model.NodeExplored, ExplorationDepth: 0.9}},
	})
	require.NoError(t, err)

	_, err = f.svc.Turn(ctx, TurnRequest{ConversationID: f.conv.ID, Input: "Start"}, nil)
	require.NoError(t, err)

	selected := &model.RecommendationOption{Type: model.OptionDeepen, Content: "Self-attention", Describe: "Scores between positions"}
	res, err := f.svc.Turn(ctx, TurnRequest{ConversationID: f.conv.ID, Selected: selected}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Self-attention", res.User.Content)
	assert.Equal(t, selected, res.User.Selected)

	req := f.model.call(1)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, "Start", req.Messages[1].Content)
	assert.Equal(t, "first", req.Messages[2].Content)
	system := req.Messages[0].Content
	assert.Contains(t, system, "Transformers")
	assert.Contains(t, system, "Self-attention")
	assert.Contains(t, system, "Deep learning")
}

func TestTurnTransportErrorKeepsPartial(t *testing.T) {
	boom := errors.New("connection reset")
	f := newFixture(t, Options{GraphUpdates: true}, func(_ context.Context, onDelta func(model.StreamDelta)) error {
		onDelta(model.StreamDelta{Content: "partial answer"})
		return boom
	})

	res, err := f.svc.Turn(context.Background(), TurnRequest{ConversationID: f.conv.ID, Input: "q"}, nil)
	require.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Equal(t, model.StatusFailed, res.Assistant.Status)
	assert.Equal(t, "partial answer", res.Assistant.Content)
	assert.Nil(t, res.Graph, "no graph update after a failed turn")

	assert.Equal(t, []string{events.KindStarted, events.KindFailed}, f.rec.kinds())
	f.rec.mu.Lock()
	assert.Equal(t, "connection reset", f.rec.events[1].Error)
	f.rec.mu.Unlock()
}

func blockingReply(started chan<- struct{}) reply {
	return func(ctx context.Context, onDelta func(model.StreamDelta)) error {
		onDelta(model.StreamDelta{Content: "partial"})
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
}

func TestNewTurnCancelsActiveTurn(t *testing.T) {
	started := make(chan struct{})
	f := newFixture(t, Options{}, blockingReply(started), text("fresh"))
	ctx := context.Background()

	type outcome struct {
		res *TurnResult
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		res, err := f.svc.Turn(ctx, TurnRequest{ConversationID: f.conv.ID, Input: "one"}, nil)
		first <- outcome{res, err}
	}()
	<-started
	assert.True(t, f.svc.Active(f.conv.ID))

	res, err := f.svc.Turn(ctx, TurnRequest{ConversationID: f.conv.ID, Input: "two"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Assistant.Content)

	var o outcome
	select {
	case o = <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("first turn did not settle")
	}
	require.ErrorIs(t, o.err, stream.ErrCancelled)
	assert.Equal(t, model.StatusCancelled, o.res.Assistant.Status)
	assert.Equal(t, "partial", o.res.Assistant.Content)

	msgs, err := f.store.Messages(ctx, f.conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"one", "partial", "two", "fresh"},
		[]string{msgs[0].Content, msgs[1].Content, msgs[2].Content, msgs[3].Content})
	assert.Equal(t, model.StatusCancelled, msgs[1].Status)
}

func TestCancel(t *testing.T) {
	started := make(chan struct{})
	f := newFixture(t, Options{}, blockingReply(started))

	assert.False(t, f.svc.Cancel(f.conv.ID))

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Turn(context.Background(), TurnRequest{ConversationID: f.conv.ID, Input: "q"}, nil)
		done <- err
	}()
	<-started
	assert.True(t, f.svc.Cancel(f.conv.ID))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, stream.ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("turn did not stop after Cancel")
	}
	assert.Equal(t, []string{events.KindStarted, events.KindCancelled}, f.rec.kinds())
}

func TestGraphUpdateMergesFragment(t *testing.T) {
	graphReply := "Updated graph:\n```json\n" +
		`{"id":"root","name":"Deep learning","status":"current","children":[{"id":"attn","name":"Attention","status":"explored","exploration_depth":0.6}]}` +
		"\n```"
	f := newFixture(t, Options{GraphUpdates: true, GraphModel: "graph-model"}, text("Narrative"), text(graphReply))
	ctx := context.Background()

	_, err := f.store.SaveConceptGraph(ctx, f.conv.ID, &model.ConceptNode{
		ID: "root", Name: "Deep learning",
		Children: []*model.ConceptNode{{ID: "cnn", Name: "Convolutions", Status: model.NodeExplored}},
	})
	require.NoError(t, err)

	res, err := f.svc.Turn(ctx, TurnRequest{ConversationID: f.conv.ID, Input: "attention?"}, nil)
	require.NoError(t, err)
	require.NoError(t, res.GraphErr)
	require.NotNil(t, res.Graph)
	assert.Equal(t, 2, res.Graph.Version)
	assert.Equal(t, 1, res.Graph.Supersedes)

	stored, err := f.store.LoadConceptGraph(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "cnn", "attn"}, graph.IDs(stored))

	greq := f.model.call(1)
	assert.Equal(t, "graph-model", greq.Model)
	require.Len(t, greq.Messages, 2)
	assert.Contains(t, greq.Messages[1].Content, `"cnn"`)
	assert.Contains(t, greq.Messages[1].Content, "Narrative")

	assert.Equal(t, []string{events.KindStarted, events.KindCompleted, events.KindGraph}, f.rec.kinds())
}

func TestGraphUpdateFirstGraph(t *testing.T) {
	f := newFixture(t, Options{GraphUpdates: true}, text("Narrative"), text(`{"id":"root","name":"Optics"}`))

	res, err := f.svc.Turn(context.Background(), TurnRequest{ConversationID: f.conv.ID, Input: "light"}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Graph)
	assert.Equal(t, 1, res.Graph.Version)
	assert.Equal(t, "Optics", res.Graph.Root.Name)
}

func TestGraphUpdateNameOnlyRepliesDoNotDuplicate(t *testing.T) {
	graphReply := text(`{"name":"Go Concurrency","children":[{"name":"Channels"},{"name":"Goroutines"}]}`)
	f := newFixture(t, Options{GraphUpdates: true}, text("One"), graphReply, text("Two"), graphReply)
	ctx := context.Background()

	for _, input := range []string{"goroutines", "channels"} {
		res, err := f.svc.Turn(ctx, TurnRequest{ConversationID: f.conv.ID, Input: input}, nil)
		require.NoError(t, err)
		require.NoError(t, res.GraphErr)
		assert.Equal(t, 3, res.Graph.NodeCount)
	}

	stored, err := f.store.LoadConceptGraph(ctx, f.conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"go-concurrency", "channels", "goroutines"}, graph.IDs(stored))
}

func TestGraphUpdateUnusableReply(t *testing.T) {
	f := newFixture(t, Options{GraphUpdates: true}, text("Narrative"), text("Sorry, I cannot do that."))

	res, err := f.svc.Turn(context.Background(), TurnRequest{ConversationID: f.conv.ID, Input: "q"}, nil)
	require.NoError(t, err, "graph failures do not fail the turn")
	assert.ErrorIs(t, res.GraphErr, graph.ErrNoFragment)
	assert.Nil(t, res.Graph)

	stored, err := f.store.LoadConceptGraph(context.Background(), f.conv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTurnValidation(t *testing.T) {
	f := newFixture(t, Options{})

	_, err := f.svc.Turn(context.Background(), TurnRequest{ConversationID: f.conv.ID, Input: "  "}, nil)
	assert.Error(t, err)

	_, err = f.svc.Turn(context.Background(), TurnRequest{ConversationID: "missing", Input: "q"}, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, f.svc.Active("missing"))
}
