package service

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/status"
)

func TestPhaseTracker_SetGet(t *testing.T) {
	tr := &PhaseTracker{}
	assert.Equal(t, Phase(""), tr.Get())

	tr.Set(PhaseCreated)
	assert.Equal(t, PhaseCreated, tr.Get())

	tr.Set(PhaseRunning)
	assert.Equal(t, PhaseRunning, tr.Get())
	assert.Equal(t, []Phase{PhaseCreated, PhaseRunning}, tr.History())
}

func TestPhaseTracker_OnChange(t *testing.T) {
	tr := &PhaseTracker{}

	var captured []struct{ old, cur Phase }
	tr.OnChange(func(old, cur Phase) {
		captured = append(captured, struct{ old, cur Phase }{old, cur})
	})

	tr.Set(PhaseRunning)
	tr.Set(PhaseRunning) // same phase, no callback
	tr.Set(PhaseSucceeded)

	require.Len(t, captured, 2)
	assert.Equal(t, Phase(""), captured[0].old)
	assert.Equal(t, PhaseRunning, captured[0].cur)
	assert.Equal(t, PhaseRunning, captured[1].old)
	assert.Equal(t, PhaseSucceeded, captured[1].cur)
	assert.Equal(t, []Phase{PhaseRunning, PhaseSucceeded}, tr.History())
}

func TestPhaseTracker_Outcome(t *testing.T) {
	tr := &PhaseTracker{}
	tr.Set(PhaseRunning)
	assert.Equal(t, Phase(""), tr.Outcome())

	tr.Set(PhaseSucceeded)
	tr.Set(PhasePersisting)
	assert.Equal(t, PhaseSucceeded, tr.Outcome())

	tr.Set(PhaseFailed)
	tr.Set(PhaseDisposed)
	assert.Equal(t, PhaseFailed, tr.Outcome())
}

func TestPhaseTracker_ConcurrentAccess(t *testing.T) {
	tr := &PhaseTracker{}
	phases := []Phase{PhaseRunning, PhaseSucceeded, PhasePersisting, PhaseFailed, PhaseDisposed}

	var cbCount atomic.Int64
	tr.OnChange(func(_, _ Phase) {
		_ = tr.Get() // read path from the callback must not deadlock
		cbCount.Add(1)
	})

	start := make(chan struct{})
	var wg sync.WaitGroup
	for w := range 16 {
		wg.Go(func() {
			<-start
			for i := range 200 {
				tr.Set(phases[(w+i)%len(phases)])
				tr.Get()
				tr.Outcome()
			}
		})
	}
	close(start)
	wg.Wait()

	assert.Positive(t, cbCount.Load())
	assert.Len(t, tr.History(), int(cbCount.Load()))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		res  status.Outcome
		err  error
		want Phase
	}{
		{name: "clean", res: status.Success("ok"), want: PhaseSucceeded},
		{name: "warnings", res: status.Success("ok").WithWarning("w"), want: PhaseSucceededWithWarnings},
		{name: "errors", res: status.Fail("bad"), want: PhaseFailed},
		{name: "unset", res: status.New(), want: PhaseFailed},
		{name: "result", res: status.SuccessResult(1, "ok"), want: PhaseSucceeded},
		{name: "error", res: status.New(), err: errors.New("boom"), want: PhaseFailedByException},
		{name: "cancelled", res: status.New(), err: action.ErrCancelled, want: PhaseCancelled},
		{name: "wrapped cancel", res: status.Success("ok"), err: fmt.Errorf("step 3: %w", action.ErrCancelled), want: PhaseCancelled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.res, tc.err)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.Terminal())
		})
	}
	assert.False(t, PhasePersisting.Terminal())
	assert.False(t, PhaseDisposed.Terminal())
}
