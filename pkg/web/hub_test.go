package web

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/gensvc/pkg/action"
	"github.com/umputun/gensvc/pkg/progress"
	"github.com/umputun/gensvc/pkg/service"
)

// readEvent connects to the hub and keeps broadcasting e until the client sees an event line of its type.
func readEvent(t *testing.T, hub *Hub, e Event) (eventLine, dataLine string) {
	t.Helper()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = hub.Broadcast(e)
			}
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
			continue
		}
		if eventLine != "" && strings.HasPrefix(line, "data: ") {
			return eventLine, line
		}
	}
	t.Fatalf("no event received: %v", scanner.Err())
	return "", ""
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(NewBuffer(10))
	msg := progress.Info("halfway")

	eventLine, dataLine := readEvent(t, hub, NewProgressEvent("import", 50, &msg))
	assert.Equal(t, "event: message", eventLine)
	assert.Contains(t, dataLine, `"text":"halfway"`)
	assert.Contains(t, dataLine, `"percent":50`)
	assert.Positive(t, hub.Buffer().Count())
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	require.NoError(t, hub.Broadcast(NewProgressEvent("import", 10, nil)))
	assert.Equal(t, 1, hub.Buffer().Count())
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub(nil)
	require.NoError(t, hub.Shutdown(context.Background()))
	err := hub.Broadcast(NewProgressEvent("import", 10, nil))
	require.Error(t, err)
	assert.Equal(t, 1, hub.Buffer().Count(), "events are buffered even when publishing fails")
}

type printRecorder struct{ lines []string }

func (p *printRecorder) Print(format string, _ ...any) { p.lines = append(p.lines, format) }

func TestStreamer(t *testing.T) {
	hub := NewHub(NewBuffer(10))
	s := NewStreamer(hub, "import", action.FlagNormal, nil)

	msg := progress.Error("bad row")
	s.Progress(0, nil)
	s.Progress(40, &msg)
	s.RunFinished(context.Background(), service.Run{Action: "import", Outcome: service.PhaseFailed, Message: "1 error(s)"})

	events := hub.Buffer().ByAction("import")
	require.Len(t, events, 3)
	assert.Equal(t, EventTypeProgress, events[0].Type)
	assert.Equal(t, EventTypeMessage, events[1].Type)
	assert.Equal(t, "error", events[1].Kind)
	assert.Equal(t, EventTypeFinished, events[2].Type)
	assert.Equal(t, "failed", events[2].Outcome)
}

func TestStreamer_LogsPublishFailure(t *testing.T) {
	hub := NewHub(nil)
	require.NoError(t, hub.Shutdown(context.Background()))
	log := &printRecorder{}
	NewStreamer(hub, "import", action.FlagNormal, log).Progress(10, nil)
	require.Len(t, log.lines, 1)
	assert.Equal(t, "[WARN] %v", log.lines[0])
}

func TestStreamer_Flags(t *testing.T) {
	tbl := []struct {
		name  string
		flags action.Flags
		types []EventType
		texts []string
	}{
		{name: "normal", flags: action.FlagNormal,
			types: []EventType{EventTypeProgress, EventTypeMessage, EventTypeFinished}, texts: []string{"", "bad row", ""}},
		{name: "no progress", flags: action.FlagNoProgressSent,
			types: []EventType{EventTypeMessage, EventTypeFinished}, texts: []string{"bad row", ""}},
		{name: "no messages", flags: action.FlagNoMessagesSent,
			types: []EventType{EventTypeProgress, EventTypeProgress, EventTypeFinished}, texts: []string{"", "", ""}},
		{name: "no progress and no messages", flags: action.FlagNoProgressSent | action.FlagNoMessagesSent,
			types: []EventType{EventTypeFinished}, texts: []string{""}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(NewBuffer(10))
			s := NewStreamer(hub, "import", tt.flags, nil)
			msg := progress.Error("bad row")
			s.Progress(10, nil)
			s.Progress(40, &msg)
			s.RunFinished(context.Background(), service.Run{Action: "import", Flags: tt.flags, Outcome: service.PhaseSucceeded})

			events := hub.Buffer().ByAction("import")
			require.Len(t, events, len(tt.types))
			for i, e := range events {
				assert.Equal(t, tt.types[i], e.Type, "event %d", i)
				if e.Type != EventTypeFinished {
					assert.Equal(t, tt.texts[i], e.Text, "event %d", i)
				}
			}
			require.NotNil(t, events[len(events)-1].Capabilities)
			assert.Equal(t, tt.flags.String(), events[len(events)-1].Capabilities.Flags)
		})
	}
}
