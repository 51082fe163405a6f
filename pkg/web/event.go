// Package web streams action progress to browsers over SSE and serves a small dashboard.
package web

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/service"
)

// EventType is the SSE event name.
type EventType string

// event types streamed to clients.
const (
	EventTypeProgress EventType = "progress" // percentage only
	EventTypeMessage  EventType = "message"  // percentage with a progress message
	EventTypeFinished EventType = "finished" // run outcome
)

// Event is a single event streamed to web clients.
type Event struct {
	Type      EventType `json:"type"`
	Action    string    `json:"action"`
	Percent   int       `json:"percent"`
	Kind      string    `json:"kind,omitempty"`
	Text      string    `json:"text,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	Capabilities *Capabilities `json:"capabilities,omitempty"` // finished events only
}

// Capabilities tells clients how to treat a finished action.
type Capabilities struct {
	Flags         string `json:"flags"`
	CanCancel     bool   `json:"can_cancel"`
	ExitOnSuccess bool   `json:"exit_on_success"`
}

// NewCapabilities describes flags for clients.
func NewCapabilities(flags action.Flags) *Capabilities {
	return &Capabilities{Flags: flags.String(), CanCancel: !flags.Has(action.FlagCancelNotSupported),
		ExitOnSuccess: flags.Has(action.FlagExitOnSuccess)}
}

// NewProgressEvent makes a progress event, a message event when msg is set.
func NewProgressEvent(name string, percent int, msg *progress.Message) Event {
	e := Event{Type: EventTypeProgress, Action: name, Percent: percent, Timestamp: time.Now()}
	if msg != nil {
		e.Type, e.Kind, e.Text = EventTypeMessage, msg.Kind.String(), msg.Text
	}
	return e
}

// NewFinishedEvent makes the closing event of a run.
func NewFinishedEvent(run service.Run) Event {
	text := run.Message
	if run.Err != nil {
		text = run.Err.Error()
	}
	return Event{Type: EventTypeFinished, Action: run.Action, Percent: 100, Text: text,
		Outcome: string(run.Outcome), Timestamp: time.Now(), Capabilities: NewCapabilities(run.Flags)}
}

// JSON returns the event as JSON for SSE data.
func (e Event) JSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
