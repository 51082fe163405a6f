package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/status"
)

// DelayInput configures a Delay run.
type DelayInput struct {
	Steps       int           // number of waits, at least 1
	Interval    time.Duration // wait per step
	WarnEvery   int           // add a warning every n-th step, 0 for none
	FailAtStep  int           // return an error entry at this step, 0 for none
	WriteAnyway bool          // save even if warnings were added
}

// WriteEvenIfWarning implements the service warning policy.
func (in DelayInput) WriteEvenIfWarning() bool { return in.WriteAnyway }

// Delay waits in steps, reporting progress and checking for cancellation between waits.
// it exercises progress, warnings and cancellation without touching data.
type Delay struct {
	action.Base
	clock action.Clock
}

// NewDelay makes a Delay using clock, RealClock if nil.
func NewDelay(clock action.Clock) *Delay {
	if clock == nil {
		clock = action.RealClock{}
	}
	return &Delay{clock: clock}
}

// Name returns the action name.
func (d *Delay) Name() string { return "delay" }

// Flags returns the action capabilities.
func (d *Delay) Flags() action.Flags { return action.FlagExitOnSuccess }

// SubmitChangesOnSuccess is false, delay has nothing to save.
func (d *Delay) SubmitChangesOnSuccess() bool { return false }

// Do runs the steps and returns the number of steps completed.
func (d *Delay) Do(ctx context.Context, comms *action.Comms, in DelayInput) (status.Result[int], error) {
	res := status.NewResult[int]()
	if in.Steps < 1 {
		return res.WithNamedError("steps", "steps must be at least 1, got %d", in.Steps), nil
	}

	start := progress.Info("waiting %d step(s) of %s", in.Steps, in.Interval)
	d.ReportProgress(comms, 0, &start)
	for step := 1; step <= in.Steps; step++ {
		if err := d.clock.Sleep(ctx, in.Interval); err != nil {
			return status.NewResult[int](), fmt.Errorf("step %d: %w: %w", step, action.ErrCancelled, err)
		}

		if step == in.FailAtStep {
			msg := progress.Error("step %d failed", step)
			d.ReportProgress(comms, step*100/in.Steps, &msg)
			return res.WithNamedError("fail_at_step", "step %d failed as requested", step), nil
		}

		var msg *progress.Message
		if in.WarnEvery > 0 && step%in.WarnEvery == 0 {
			w := progress.Warning("step %d is slow", step)
			res = res.WithWarning("%s", w.Text)
			msg = &w
		}
		if err := d.ReportProgressAndCheckCancel(comms, step*100/in.Steps, msg); err != nil {
			return status.NewResult[int](), err
		}
	}

	return res.WithSuccessResult(in.Steps, "waited %d step(s)", in.Steps), nil
}
