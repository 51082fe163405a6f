// Package service runs actions: it invokes the action, decides whether its changes are saved,
// and disposes the action on every exit path.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/status"
)

//go:generate moq -out mocks/saver.go -pkg mocks -skip-ensure -fmt goimports . Saver
//go:generate moq -out mocks/observer.go -pkg mocks -skip-ensure -fmt goimports . Observer

// persistence suffixes appended to the success message
const (
	savedSuffix   = "... and written to database."
	skippedSuffix = "... but NOT written to database as warnings."
)

// ErrNoSaver is returned when an action asks to save changes but the service has no Saver.
var ErrNoSaver = errors.New("no saver configured")

// errPanicked marks a run whose action panicked. the panic itself propagates to the caller.
var errPanicked = errors.New("action panicked")

// Saver writes pending changes. an invalid result means the changes were rejected
// (validation or constraint failure), an error means the save could not run at all.
type Saver interface {
	Save(ctx context.Context) (status.Result[int], error)
}

// Discarder is implemented by savers that can drop staged changes.
// DoDB discards when it returns without saving.
type Discarder interface {
	Discard()
}

// WarningGate is implemented by inputs that control whether warnings block saving.
// inputs without it are saved even if the action returned warnings.
type WarningGate interface {
	WriteEvenIfWarning() bool
}

// Namer is implemented by actions that want a readable name in logs and run records.
type Namer interface {
	Name() string
}

// Logger is the logging collaborator of the service.
type Logger interface {
	Print(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Debug(format string, args ...any)
}

// Observer is told about every finished run.
type Observer interface {
	RunFinished(ctx context.Context, run Run)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, run Run)

// RunFinished calls f.
func (f ObserverFunc) RunFinished(ctx context.Context, run Run) { f(ctx, run) }

// Run describes a finished action run.
type Run struct {
	Action   string
	Flags    action.Flags
	Outcome  Phase
	Phases   []Phase
	Message  string
	Errors   []string
	Warnings []string
	Saved    bool
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Options configure a Service. all fields are optional.
type Options struct {
	Saver     Saver
	Logger    Logger
	Observers []Observer
}

// Service runs actions against one persistence collaborator.
type Service struct {
	saver     Saver
	log       Logger
	observers []Observer
	now       func() time.Time
}

// New makes a Service from opts.
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Service{saver: opts.Saver, log: log, observers: opts.Observers, now: time.Now}
}

// Do runs act with in and returns its result. nothing is saved.
// a returned error is either action.ErrCancelled or a failure of the action body.
func Do[In, Out any](ctx context.Context, s *Service, act action.Action[In, Out], comms *action.Comms, in In) (status.Result[Out], error) {
	return run(ctx, s, act, comms, in, false)
}

// DoDB runs act and saves pending changes when the result is valid, the action asks for it
// and warnings don't block the write. a rejected save replaces the action's result.
func DoDB[In, Out any](ctx context.Context, s *Service, act action.Action[In, Out], comms *action.Comms, in In) (status.Result[Out], error) {
	return run(ctx, s, act, comms, in, true)
}

func run[In, Out any](ctx context.Context, s *Service, act action.Action[In, Out], comms *action.Comms,
	in In, persist bool) (res status.Result[Out], err error) {
	name := actionName(act)
	flags := act.Flags()

	tr := &PhaseTracker{}
	tr.OnChange(func(old, cur Phase) { s.log.Debug("%s: %s -> %s", name, old, cur) })
	tr.Set(PhaseCreated)

	if l, ok := s.log.(action.Logger); ok {
		action.Prepare(act, l)
	}

	started := s.now()
	saved := false
	finished := false
	defer func() {
		if d, ok := s.saver.(Discarder); ok && persist && !saved {
			d.Discard()
		}
		if c, ok := any(act).(io.Closer); ok {
			if cerr := c.Close(); cerr != nil {
				s.log.Warn("close %s: %v", name, cerr)
			}
		}
		if !finished {
			// unwinding from a panic, the panic keeps propagating after this
			tr.Set(PhaseFailedByException)
			err = errPanicked
		}
		tr.Set(PhaseDisposed)
		s.report(ctx, Run{Action: name, Flags: flags, Outcome: tr.Outcome(), Phases: tr.History(),
			Saved: saved, Err: err, Started: started, Duration: s.now().Sub(started)}, res.Status)
	}()

	tr.Set(PhaseRunning)
	s.log.Debug("run %s, flags %s", name, flags)
	res, err = act.Do(ctx, comms, in)
	tr.Set(Classify(res, err))
	if err != nil || !persist || !act.SubmitChangesOnSuccess() || !res.IsValid() {
		finished = true
		return res, err
	}

	if gate, ok := any(in).(WarningGate); ok && res.HasWarnings() && !gate.WriteEvenIfWarning() {
		finished = true
		return res.WithMessage("%s%s", res.Message(), skippedSuffix), nil
	}

	if s.saver == nil {
		finished = true
		return res, fmt.Errorf("save changes of %s: %w", name, ErrNoSaver)
	}

	tr.Set(PhasePersisting)
	changes, serr := s.saver.Save(ctx)
	if serr != nil {
		tr.Set(PhaseFailedByException)
		finished = true
		return res, fmt.Errorf("save changes of %s: %w", name, serr)
	}
	if !changes.IsValid() {
		res = status.Convert[Out](changes)
		tr.Set(Classify(res, nil))
		finished = true
		return res, nil
	}

	saved = true
	if n, ok := changes.Value(); ok {
		s.log.Debug("%s: saved %d change(s)", name, n)
	}
	res = res.WithMessage("%s%s", res.Message(), savedSuffix)
	tr.Set(Classify(res, nil))
	finished = true
	return res, nil
}

// report logs the run outcome and tells observers about it.
func (s *Service) report(ctx context.Context, r Run, st status.Status) {
	r.Message = st.Message()
	r.Warnings = st.Warnings()
	if errs, err := st.Errors(); err == nil {
		for _, e := range errs {
			r.Errors = append(r.Errors, e.String())
		}
	}

	switch r.Outcome {
	case PhaseSucceeded, PhaseSucceededWithWarnings:
		s.log.Print("%s %s: %s", r.Action, r.Outcome, st)
	case PhaseFailed:
		s.log.Warn("%s failed: %s", r.Action, st.JoinErrors("; "))
	case PhaseCancelled:
		s.log.Warn("%s cancelled after %s", r.Action, r.Duration.Round(time.Millisecond))
	default:
		s.log.Error("%s failed: %v", r.Action, r.Err)
	}

	// observers still run for cancelled contexts
	octx := context.WithoutCancel(ctx)
	for _, o := range s.observers {
		if o != nil {
			o.RunFinished(octx, r)
		}
	}
}

func actionName(act any) string {
	if n, ok := act.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", act)
}

type nopLogger struct{}

func (nopLogger) Print(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Debug(string, ...any) {}
