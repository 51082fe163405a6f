package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmaxmax/go-sse"
)

// Hub publishes events to SSE clients and keeps recent ones in a Buffer.
type Hub struct {
	srv    *sse.Server
	buffer *Buffer
}

// NewHub makes a hub buffering into buffer, a default-sized one if nil.
func NewHub(buffer *Buffer) *Hub {
	if buffer == nil {
		buffer = NewBuffer(0)
	}
	return &Hub{srv: &sse.Server{}, buffer: buffer}
}

// Broadcast buffers e and publishes it to every connected client.
func (h *Hub) Broadcast(e Event) error {
	h.buffer.Add(e)
	data, err := e.JSON()
	if err != nil {
		return err
	}
	msg := &sse.Message{Type: sse.Type(string(e.Type))}
	msg.AppendData(string(data))
	if err := h.srv.Publish(msg); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

// Buffer returns the event history.
func (h *Hub) Buffer() *Buffer {
	return h.buffer
}

// ServeHTTP streams events to a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.srv.ServeHTTP(w, r)
}

// Shutdown disconnects all clients.
func (h *Hub) Shutdown(ctx context.Context) error {
	if err := h.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown sse: %w", err)
	}
	return nil
}
