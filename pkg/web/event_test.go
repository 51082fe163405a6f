package web

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/service"
)

func TestNewProgressEvent(t *testing.T) {
	e := NewProgressEvent("import", 30, nil)
	assert.Equal(t, EventTypeProgress, e.Type)
	assert.Equal(t, 30, e.Percent)
	assert.Empty(t, e.Text)
	assert.False(t, e.Timestamp.IsZero())

	msg := progress.Warning("row %d skipped", 3)
	e = NewProgressEvent("import", 40, &msg)
	assert.Equal(t, EventTypeMessage, e.Type)
	assert.Equal(t, "warning", e.Kind)
	assert.Equal(t, "row 3 skipped", e.Text)
}

func TestNewFinishedEvent(t *testing.T) {
	e := NewFinishedEvent(service.Run{Action: "import", Outcome: service.PhaseSucceeded, Message: "imported 2 item(s)"})
	assert.Equal(t, EventTypeFinished, e.Type)
	assert.Equal(t, 100, e.Percent)
	assert.Equal(t, "succeeded", e.Outcome)
	assert.Equal(t, "imported 2 item(s)", e.Text)

	require.NotNil(t, e.Capabilities)
	assert.Equal(t, Capabilities{Flags: "normal", CanCancel: true}, *e.Capabilities)

	e = NewFinishedEvent(service.Run{Action: "import", Outcome: service.PhaseFailedByException, Err: errors.New("disk full")})
	assert.Equal(t, "disk full", e.Text)
}

func TestNewCapabilities(t *testing.T) {
	tbl := []struct {
		flags action.Flags
		want  Capabilities
	}{
		{action.FlagNormal, Capabilities{Flags: "normal", CanCancel: true}},
		{action.FlagExitOnSuccess, Capabilities{Flags: "exit-on-success", CanCancel: true, ExitOnSuccess: true}},
		{action.FlagCancelNotSupported, Capabilities{Flags: "cancel-not-supported"}},
		{action.FlagNoProgressSent | action.FlagNoMessagesSent, Capabilities{Flags: "no-progress,no-messages", CanCancel: true}},
	}
	for _, tt := range tbl {
		t.Run(tt.flags.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, *NewCapabilities(tt.flags))
		})
	}
}

func TestEvent_JSON(t *testing.T) {
	msg := progress.Info("hello")
	data, err := NewProgressEvent("delay", 5, &msg).JSON()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "message", got["type"])
	assert.Equal(t, "delay", got["action"])
	assert.InDelta(t, 5, got["percent"], 0)
	assert.Equal(t, "hello", got["text"])
	assert.NotContains(t, got, "outcome")
	assert.NotContains(t, got, "capabilities")

	data, err = NewFinishedEvent(service.Run{Action: "delay", Flags: action.FlagExitOnSuccess, Outcome: service.PhaseSucceeded}).JSON()
	require.NoError(t, err)
	got = map[string]any{}
	require.NoError(t, json.Unmarshal(data, &got))
	caps, ok := got["capabilities"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"flags": "exit-on-success", "can_cancel": true, "exit_on_success": true}, caps)
}
