package pipeline

import (
	"testing"
	"time"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBusSubscribeFilter(t *testing.T) {
	b := NewBus(16)
	ch, cancel := b.Subscribe(EventFilter{Types: []string{"run_complete"}, VideoID: "v1"})
	defer cancel()

	b.Publish("stage", "v1", map[string]any{"stage": "chunking"})
	b.Publish("run_complete", "v2", nil)
	b.Publish("run_complete", "v1", nil)

	e := recvEvent(t, ch)
	if e.Type != "run_complete" || e.VideoID != "v1" {
		t.Errorf("got %s/%s, want run_complete/v1", e.Type, e.VideoID)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra event: %+v", extra)
	default:
	}
}

func TestBusReplaySince(t *testing.T) {
	b := NewBus(16)
	b.Publish("stage", "v1", nil)
	b.Publish("stage", "v1", nil)

	all := b.ReplaySince("", EventFilter{})
	if len(all) != 2 {
		t.Fatalf("ReplaySince(\"\") = %d events, want 2", len(all))
	}

	after := b.ReplaySince(all[0].ID, EventFilter{})
	if len(after) != 1 || after[0].ID != all[1].ID {
		t.Errorf("ReplaySince(first) = %+v, want only the second event", after)
	}
}

func TestBusRingOverwrite(t *testing.T) {
	b := NewBus(4)
	for i := 0; i < 10; i++ {
		b.Publish("stage", "v1", nil)
	}
	events := b.ReplaySince("", EventFilter{})
	if len(events) != 4 {
		t.Errorf("ring holds %d events, want 4", len(events))
	}
}

func TestBusZeroRingSize(t *testing.T) {
	b := NewBus(0)
	b.Publish("stage", "v1", nil)

	events := b.ReplaySince("", EventFilter{})
	if len(events) != 1 {
		t.Errorf("ReplaySince = %d events, want 1 (minimum ring)", len(events))
	}
}

func TestBusCancelStopsDelivery(t *testing.T) {
	b := NewBus(16)
	ch, cancel := b.Subscribe(EventFilter{})
	cancel()

	b.Publish("stage", "v1", nil)
	select {
	case e := <-ch:
		t.Errorf("event after cancel: %+v", e)
	default:
	}
}
