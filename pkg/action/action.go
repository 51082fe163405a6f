package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/status"
)

// Flags describe what an action type supports. declared once per type and never changed.
type Flags uint8

// Flags values. FlagNormal is the empty set.
const (
	FlagNormal        Flags = 0
	FlagExitOnSuccess Flags = 1 << (iota - 1)
	FlagNoProgressSent
	FlagNoMessagesSent
	FlagCancelNotSupported
)

// Has reports whether all bits of flag are set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// String lists set flags, "normal" for none.
func (f Flags) String() string {
	if f == FlagNormal {
		return "normal"
	}
	names := []struct {
		flag Flags
		name string
	}{
		{FlagExitOnSuccess, "exit-on-success"},
		{FlagNoProgressSent, "no-progress"},
		{FlagNoMessagesSent, "no-messages"},
		{FlagCancelNotSupported, "cancel-not-supported"},
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, ",")
}

// Logger receives progress messages, each one once, for the log.
type Logger interface {
	Log(m progress.Message)
}

// Action is a unit of work run by the service. concrete actions embed Base to satisfy it.
type Action[In, Out any] interface {
	// Flags returns the capability descriptor of the action type.
	Flags() Flags
	// SubmitChangesOnSuccess tells the service to save pending changes when the action succeeds.
	SubmitChangesOnSuccess() bool
	// Do runs the action. a returned ErrCancelled means the host cancelled it.
	Do(ctx context.Context, comms *Comms, in In) (status.Result[Out], error)

	reporter() *Base
}

// Base carries the progress window of an action and implements the reporting protocol.
// the zero value reports into the full 0..100 range.
type Base struct {
	lower, upper int
	bounded      bool
	last         int
	reported     bool // last holds a computed value
	log          Logger
}

// SetBounds narrows the window the action's 0..100 progress is mapped into.
// it must be called before the action runs.
func (b *Base) SetBounds(lower, upper int) error {
	if lower < 0 || upper > 100 || lower > upper {
		return fmt.Errorf("invalid progress bounds [%d,%d]", lower, upper)
	}
	b.lower, b.upper, b.bounded = lower, upper, true
	return nil
}

// Bounds returns the current progress window.
func (b *Base) Bounds() (lower, upper int) {
	if !b.bounded {
		return 0, 100
	}
	return b.lower, b.upper
}

// Child maps a sub-range of this action's 0..100 scale into absolute bounds for a nested action.
func (b *Base) Child(lower, upper int) (childLower, childUpper int) {
	return b.remap(lower), b.remap(upper)
}

// SetLogger sets the collaborator that receives every reported message.
func (b *Base) SetLogger(l Logger) {
	b.log = l
}

// Logger returns the collaborator set by SetLogger, nil if none.
func (b *Base) Logger() Logger {
	return b.log
}

// ReportProgress maps percent into the window and sends it, skipping repeats of the same percentage
// without a message. messages are always sent and also passed to the logger.
func (b *Base) ReportProgress(comms *Comms, percent int, msg *progress.Message) {
	if comms == nil {
		return
	}

	reported := b.remap(percent)
	if !b.reported || reported != b.last || msg != nil {
		comms.ReportProgress(reported, msg)
	}
	if msg != nil && b.log != nil {
		b.log.Log(*msg)
	}
	b.last, b.reported = reported, true
}

// ReportProgressAndCheckCancel reports progress, then returns ErrCancelled if the host asked to cancel.
// long running actions call it on every loop iteration.
func (b *Base) ReportProgressAndCheckCancel(comms *Comms, percent int, msg *progress.Message) error {
	b.ReportProgress(comms, percent, msg)
	return comms.ThrowIfCancelPending()
}

// CancelPending reports whether cancellation is pending, false without comms.
func (b *Base) CancelPending(comms *Comms) bool {
	return comms.CancellationPending()
}

// LastReported returns the last computed percentage, -1 before the first report.
func (b *Base) LastReported() int {
	if !b.reported {
		return -1
	}
	return b.last
}

func (b *Base) remap(percent int) int {
	clamped := min(max(percent, 0), 100)
	lower, upper := b.Bounds()
	return lower + clamped*(upper-lower)/100
}

func (b *Base) reporter() *Base { return b }

// Prepare attaches the logger to an action before it runs. a nil logger keeps the current one.
func Prepare[In, Out any](a Action[In, Out], log Logger) {
	if log != nil {
		a.reporter().SetLogger(log)
	}
}
