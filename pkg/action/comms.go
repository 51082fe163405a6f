// Package action implements the progress and cancellation protocol between a running action and its host.
package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/umputun/gensvc/pkg/progress"
)

// ErrCancelled is returned by cancellation checks once the host asked the action to stop.
var ErrCancelled = errors.New("action cancelled")

// Sink receives progress notifications. each call is an independent notification, no queueing.
type Sink interface {
	Progress(percent int, msg *progress.Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(percent int, msg *progress.Message)

// Progress calls f.
func (f SinkFunc) Progress(percent int, msg *progress.Message) { f(percent, msg) }

// Sinks fans a notification out to every sink in order.
type Sinks []Sink

// Progress forwards to each non-nil sink.
func (s Sinks) Progress(percent int, msg *progress.Message) {
	for _, sink := range s {
		if sink != nil {
			sink.Progress(percent, msg)
		}
	}
}

// Comms is the channel between a running action and its host: progress goes out, cancellation comes in.
// a nil *Comms is valid and means fire-and-forget, all methods are no-ops.
type Comms struct {
	ctx  context.Context
	sink Sink
}

// NewComms makes a Comms whose cancellation follows ctx. sink may be nil.
func NewComms(ctx context.Context, sink Sink) *Comms {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Comms{ctx: ctx, sink: sink}
}

// ReportProgress forwards a notification to the sink.
func (c *Comms) ReportProgress(percent int, msg *progress.Message) {
	if c == nil || c.sink == nil {
		return
	}
	c.sink.Progress(percent, msg)
}

// CancellationPending reports, without blocking, whether the host asked to cancel.
func (c *Comms) CancellationPending() bool {
	if c == nil {
		return false
	}
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// ThrowIfCancelPending returns ErrCancelled when cancellation is pending.
// the returned error also matches the context error with errors.Is.
func (c *Comms) ThrowIfCancelPending() error {
	if !c.CancellationPending() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrCancelled, c.ctx.Err())
}

// Context returns the context backing cancellation, background for a nil Comms.
func (c *Comms) Context() context.Context {
	if c == nil {
		return context.Background()
	}
	return c.ctx
}
