// Package stream accumulates incremental model output for one turn.
//
// An Accumulator owns the content and reasoning buffers of a single stream.
// Deltas are appended in arrival order until exactly one terminal transition
// (complete or error) happens; after that every call is a no-op.
package stream

import (
	"errors"
	"strings"
	"sync"

	"github.com/rcliao/nextstep/internal/model"
	"github.com/rcliao/nextstep/internal/splitter"
)

var (
	// ErrCancelled terminates a stream that was cancelled before it finished.
	ErrCancelled = errors.New("stream cancelled")
	// ErrClosed is reported when the transport ends the stream with a nil error value.
	ErrClosed = errors.New("stream closed with unknown error")
)

// State is the lifecycle state of an Accumulator.
type State int

const (
	Streaming State = iota
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Streaming:
		return "streaming"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Snapshot is a consistent copy of an Accumulator's progress.
type Snapshot struct {
	Content   string
	Reasoning string
	State     State
	Err       error
	Deltas    int
	Parsed    splitter.Result
}

// Hooks are invoked synchronously, in order, never concurrently with each
// other. OnUpdate fires once per applied delta; exactly one of OnComplete
// and OnError fires per stream, and no OnUpdate follows it. Hooks may call
// Snapshot and Cancel but not OnDelta, OnComplete or OnError.
type Hooks struct {
	OnUpdate   func(Snapshot)
	OnComplete func(Snapshot)
	OnError    func(Snapshot, error)
}

// Accumulator buffers one stream.
type Accumulator struct {
	hooks Hooks

	// emit serializes transitions together with their hooks.
	emit sync.Mutex

	mu        sync.Mutex
	content   strings.Builder
	reasoning strings.Builder
	state     State
	err       error
	deltas    int
	cancelled bool
	done      chan struct{}
}

// New returns an Accumulator in the Streaming state.
func New(h Hooks) *Accumulator {
	return &Accumulator{hooks: h, done: make(chan struct{})}
}

// OnDelta appends d. It reports false when the delta was not applied because
// the stream is cancelled or already terminal.
func (a *Accumulator) OnDelta(d model.StreamDelta) bool {
	a.emit.Lock()
	defer a.release()

	a.mu.Lock()
	if a.state != Streaming || a.cancelled {
		a.mu.Unlock()
		return false
	}
	a.content.WriteString(d.Content)
	a.reasoning.WriteString(d.Reasoning)
	a.deltas++
	snap := a.snapshotLocked()
	a.mu.Unlock()

	if a.hooks.OnUpdate != nil {
		a.hooks.OnUpdate(snap)
	}
	return true
}

// OnComplete ends the stream successfully. A cancelled stream ends with
// ErrCancelled instead. It reports whether this call ended the stream.
func (a *Accumulator) OnComplete() bool {
	a.emit.Lock()
	defer a.release()
	return a.finish(nil)
}

// OnError ends the stream with err. Buffers are kept so partial output stays
// available. It reports whether this call ended the stream.
func (a *Accumulator) OnError(err error) bool {
	if err == nil {
		err = ErrClosed
	}
	a.emit.Lock()
	defer a.release()
	return a.finish(err)
}

// Cancel stops further deltas from being applied. The stream ends with
// ErrCancelled right away, or as soon as a transition or hook in progress
// returns.
func (a *Accumulator) Cancel() {
	a.mu.Lock()
	if a.state != Streaming {
		a.mu.Unlock()
		return
	}
	a.cancelled = true
	a.mu.Unlock()

	if a.emit.TryLock() {
		a.release()
	}
}

// release unlocks emit. A Cancel that found emit held only set the flag, so
// the holder ends the stream on its behalf, both before unlocking and for a
// Cancel that lands between that check and the unlock.
func (a *Accumulator) release() {
	for {
		if a.cancelPending() {
			a.finish(ErrCancelled)
		}
		a.emit.Unlock()
		if !a.cancelPending() || !a.emit.TryLock() {
			return
		}
	}
}

// finish performs the terminal transition. The caller holds emit.
func (a *Accumulator) finish(err error) bool {
	a.mu.Lock()
	if a.state != Streaming {
		a.mu.Unlock()
		return false
	}
	if a.cancelled {
		err = ErrCancelled
	}
	if err != nil {
		a.state = Failed
		a.err = err
	} else {
		a.state = Completed
	}
	snap := a.snapshotLocked()
	close(a.done)
	a.mu.Unlock()

	if err != nil {
		if a.hooks.OnError != nil {
			a.hooks.OnError(snap, err)
		}
	} else if a.hooks.OnComplete != nil {
		a.hooks.OnComplete(snap)
	}
	return true
}

// cancelPending reports a Cancel that has not ended the stream yet.
func (a *Accumulator) cancelPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancelled && a.state == Streaming
}

// Done is closed once the stream reaches a terminal state.
func (a *Accumulator) Done() <-chan struct{} {
	return a.done
}

// Err returns the terminal error, or nil while streaming or after success.
func (a *Accumulator) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// State returns the current lifecycle state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Content returns the accumulated content text.
func (a *Accumulator) Content() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.content.String()
}

// Reasoning returns the accumulated reasoning text.
func (a *Accumulator) Reasoning() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reasoning.String()
}

// Snapshot returns the current progress with the best current parse of the content.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Accumulator) snapshotLocked() Snapshot {
	content := a.content.String()
	return Snapshot{
		Content:   content,
		Reasoning: a.reasoning.String(),
		State:     a.state,
		Err:       a.err,
		Deltas:    a.deltas,
		Parsed:    splitter.Split(content),
	}
}
