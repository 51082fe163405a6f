package web

import (
	"context"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/service"
)

type logger interface {
	Print(format string, args ...any)
}

// Streamer forwards the progress of one action to a Hub.
// it is an action.Sink for progress and a service.Observer for the outcome.
// the action flags decide what reaches clients: FlagNoProgressSent drops percentage-only updates,
// FlagNoMessagesSent strips the message from message updates.
type Streamer struct {
	hub   *Hub
	name  string
	flags action.Flags
	log   logger
}

// NewStreamer makes a streamer for the named action with its flags.
func NewStreamer(hub *Hub, name string, flags action.Flags, log logger) *Streamer {
	return &Streamer{hub: hub, name: name, flags: flags, log: log}
}

// Progress publishes a progress notification unless the action flags suppress it.
func (s *Streamer) Progress(percent int, msg *progress.Message) {
	if msg != nil && s.flags.Has(action.FlagNoMessagesSent) {
		msg = nil
	}
	if msg == nil && s.flags.Has(action.FlagNoProgressSent) {
		return
	}
	s.broadcast(NewProgressEvent(s.name, percent, msg))
}

// RunFinished publishes the run outcome.
func (s *Streamer) RunFinished(_ context.Context, run service.Run) {
	s.broadcast(NewFinishedEvent(run))
}

func (s *Streamer) broadcast(e Event) {
	if err := s.hub.Broadcast(e); err != nil && s.log != nil {
		s.log.Print("[WARN] %v", err)
	}
}
