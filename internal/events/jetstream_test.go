package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *JetStream {
	t.Helper()
	j, err := Open(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestPublishAndReplay(t *testing.T) {
	ctx := context.Background()
	j := openTestLog(t)

	require.NoError(t, j.Publish(ctx, Event{ConversationID: "c1", TurnID: "t1", Kind: KindStarted}))
	require.NoError(t, j.Publish(ctx, Event{ConversationID: "c2", TurnID: "t2", Kind: KindStarted}))
	require.NoError(t, j.Publish(ctx, Event{ConversationID: "c1", TurnID: "t1", Kind: KindCompleted, Options: 3, Chars: 120}))
	require.NoError(t, j.Publish(ctx, Event{ConversationID: "c1", TurnID: "t1", Kind: KindGraph, GraphVersion: 2}))

	got, err := j.Replay(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{KindStarted, KindCompleted, KindGraph}, []string{got[0].Kind, got[1].Kind, got[2].Kind})
	assert.Equal(t, 3, got[1].Options)
	assert.Equal(t, 2, got[2].GraphVersion)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Time.IsZero())

	all, err := j.Replay(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "c2", all[1].ConversationID)
}

func TestReplayEmpty(t *testing.T) {
	j := openTestLog(t)
	got, err := j.Replay(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPublishDeduplicatesByID(t *testing.T) {
	ctx := context.Background()
	j := openTestLog(t)

	e := Event{ID: "fixed-id", ConversationID: "c1", Kind: KindFailed, Error: "boom"}
	require.NoError(t, j.Publish(ctx, e))
	require.NoError(t, j.Publish(ctx, e))

	got, err := j.Replay(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Error)
}

func TestPublishRequiresConversationAndKind(t *testing.T) {
	j := openTestLog(t)
	assert.Error(t, j.Publish(context.Background(), Event{Kind: KindStarted}))
	assert.Error(t, j.Publish(context.Background(), Event{ConversationID: "c"}))
}

func TestEventsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, err := Open(ctx, dir, nil)
	require.NoError(t, err)
	require.NoError(t, j.Publish(ctx, Event{ConversationID: "c1", Kind: KindStarted}))
	require.NoError(t, j.Close())

	j, err = Open(ctx, dir, nil)
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Replay(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "turns.01ABC.completed", Subject("01ABC", KindCompleted))
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
}
