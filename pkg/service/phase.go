package service

import (
	"errors"
	"sync"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/status"
)

// Phase is a state of a single action run.
type Phase string

// run phases. Succeeded through Cancelled are terminal outcomes.
const (
	PhaseCreated               Phase = "created"
	PhaseRunning               Phase = "running"
	PhaseSucceeded             Phase = "succeeded"
	PhaseSucceededWithWarnings Phase = "succeeded with warnings"
	PhaseFailed                Phase = "failed"
	PhaseFailedByException     Phase = "failed by exception"
	PhaseCancelled             Phase = "cancelled"
	PhasePersisting            Phase = "persisting"
	PhaseDisposed              Phase = "disposed"
)

// Terminal reports whether p is an outcome of the action body.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseSucceeded, PhaseSucceededWithWarnings, PhaseFailed, PhaseFailedByException, PhaseCancelled:
		return true
	default:
		return false
	}
}

// Classify names the outcome of an action given what it returned.
func Classify(res status.Outcome, err error) Phase {
	switch {
	case errors.Is(err, action.ErrCancelled):
		return PhaseCancelled
	case err != nil:
		return PhaseFailedByException
	}
	s := res.Base()
	switch {
	case !s.IsValid():
		return PhaseFailed
	case s.HasWarnings():
		return PhaseSucceededWithWarnings
	default:
		return PhaseSucceeded
	}
}

// PhaseTracker stores the current phase of a run and the transitions it went through.
// safe for concurrent use.
type PhaseTracker struct {
	mu       sync.RWMutex
	phase    Phase
	history  []Phase
	onChange func(old, cur Phase)
}

// OnChange registers a callback that fires when the phase changes.
// only one callback is supported; subsequent calls replace the previous one.
func (t *PhaseTracker) OnChange(fn func(old, cur Phase)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Set moves to phase p and fires the OnChange callback if the phase changed.
func (t *PhaseTracker) Set(p Phase) {
	t.mu.Lock()
	old := t.phase
	if old == p {
		t.mu.Unlock()
		return
	}
	t.phase = p
	t.history = append(t.history, p)
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(old, p)
	}
}

// Get returns the current phase.
func (t *PhaseTracker) Get() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

// History returns every phase set so far, in order.
func (t *PhaseTracker) History() []Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make([]Phase, len(t.history))
	copy(res, t.history)
	return res
}

// Outcome returns the last terminal phase reached, empty if the action has not finished.
func (t *PhaseTracker) Outcome() Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.history) - 1; i >= 0; i-- {
		if t.history[i].Terminal() {
			return t.history[i]
		}
	}
	return ""
}
