// Package sse streams live snapshots to HTTP clients as Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Handler streams every value of a subscription as one SSE event.
type Handler[T any] struct {
	event     string
	subscribe func(ctx context.Context) <-chan T
	heartbeat time.Duration
	clients   prometheus.Gauge
}

// NewHandler returns a handler that names each event after event and sends a
// comment line every heartbeat to keep idle connections open. clients may be
// nil.
func NewHandler[T any](event string, subscribe func(ctx context.Context) <-chan T, heartbeat time.Duration, clients prometheus.Gauge) *Handler[T] {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Handler[T]{
		event:     event,
		subscribe: subscribe,
		heartbeat: heartbeat,
		clients:   clients,
	}
}

// WriteEvent writes a single SSE frame.
func WriteEvent(w io.Writer, event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

// ServeHTTP is the SSE endpoint handler.
func (h *Handler[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.clients != nil {
		h.clients.Inc()
		defer h.clients.Dec()
	}

	ctx := r.Context()
	ch := h.subscribe(ctx)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case v, ok := <-ch:
			if !ok {
				return
			}
			if err := WriteEvent(w, h.event, v); err != nil {
				slog.Warn("sse: write failed", slog.String("event", h.event), slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		}
	}
}
