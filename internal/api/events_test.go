package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/readvideos/vt-engine/internal/metrics"
	"github.com/readvideos/vt-engine/internal/pipeline"
)

// The stream must work behind the full middleware stack: the metrics
// middleware wraps the response writer, and the handler still needs to
// reach the underlying flusher.
func TestStreamEventsThroughMiddleware(t *testing.T) {
	bus := pipeline.NewBus(16)
	bus.Publish("stage", "v1", map[string]any{"stage": "chunking"})
	bus.Publish("run_complete", "v1", nil)
	published := bus.ReplaySince("", pipeline.EventFilter{})
	if len(published) != 2 {
		t.Fatalf("published = %d events, want 2", len(published))
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(zerolog.Nop()))
	r.Use(metrics.InstrumentHandler)
	NewEventsHandler(bus).Routes(r)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/events/stream", nil).WithContext(ctx)
	// Ask for replay of everything after the first event.
	req.Header.Set("Last-Event-ID", published[0].ID)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "event: run_complete") {
		t.Errorf("body missing replayed event:\n%s", body)
	}
	if strings.Contains(body, "event: stage") {
		t.Errorf("body contains event before Last-Event-ID:\n%s", body)
	}
}

func TestStreamEventsDeliversLive(t *testing.T) {
	bus := pipeline.NewBus(16)
	r := chi.NewRouter()
	r.Use(metrics.InstrumentHandler)
	NewEventsHandler(bus).Routes(r)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/events/stream?types=run_complete", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	// Give the handler time to subscribe, then publish and close.
	time.Sleep(50 * time.Millisecond)
	bus.Publish("run_complete", "v9", nil)
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after cancel")
	}

	if !strings.Contains(w.Body.String(), "event: run_complete") {
		t.Errorf("live event not delivered:\n%s", w.Body.String())
	}
}
