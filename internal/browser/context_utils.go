package browser

import (
	"context"
	"time"
)

// CombineContext derives a context from parentCtx that also unblocks when
// secondaryCtx is done, so a per-call deadline and the session's lifetime
// both bound an operation.
func CombineContext(parentCtx, secondaryCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parentCtx)
	go func() {
		select {
		case <-secondaryCtx.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext inherits values but never cancellation, so cleanup code
// keeps running after its parent is cancelled.
type valueOnlyContext struct{ context.Context }

func (valueOnlyContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (valueOnlyContext) Done() <-chan struct{}       { return nil }
func (valueOnlyContext) Err() error                  { return nil }
