package stream

import (
	"context"

	"github.com/rcliao/nextstep/internal/model"
)

// Source produces the deltas of one model reply in order. Stream returns
// once the reply is complete, failed, or ctx is done.
type Source interface {
	Stream(ctx context.Context, onDelta func(model.StreamDelta)) error
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, onDelta func(model.StreamDelta)) error

func (f SourceFunc) Stream(ctx context.Context, onDelta func(model.StreamDelta)) error {
	return f(ctx, onDelta)
}

// Consume drives acc from src until the stream ends and returns the terminal
// error (nil on success). Cancelling ctx cancels acc. The transport call runs
// on the calling goroutine and has returned by the time Consume does.
func Consume(ctx context.Context, src Source, acc *Accumulator) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, acc.Cancel)
	err := src.Stream(ctx, func(d model.StreamDelta) {
		if ctx.Err() != nil {
			acc.Cancel()
			return
		}
		if !acc.OnDelta(d) {
			cancel()
		}
	})
	stop()

	if err != nil {
		acc.OnError(err)
	} else {
		acc.OnComplete()
	}
	<-acc.Done()
	return acc.Err()
}
