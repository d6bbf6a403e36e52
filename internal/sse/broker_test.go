package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "workflow.saved", Data: map[string]string{"session": "s1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: workflow.saved") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"session":"s1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

// drain collects every message currently buffered in ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestPublishEditorEvent_GraphThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event of a session triggers graph.updated, the second does not.
	b.PublishEditorEvent("node.created", "s1", "g1/select")
	b.PublishEditorEvent("node.moved", "s1", "g1/select")
	// Another session has its own throttle.
	b.PublishEditorEvent("node.created", "s2", "g2")

	time.Sleep(50 * time.Millisecond)
	graphCount, changeCount := 0, 0
	for _, s := range drain(ch) {
		if strings.Contains(s, "event: "+GraphUpdated) {
			graphCount++
		} else {
			changeCount++
		}
	}
	if changeCount != 3 {
		t.Errorf("change events = %d, want 3", changeCount)
	}
	if graphCount != 2 {
		t.Errorf("graph events = %d, want 2 (one per session)", graphCount)
	}
}

func TestPublishSourceEvent(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSourceEvent("created", "reviews.yaml")
	b.PublishSourceEvent("deleted", "old.yaml")

	time.Sleep(50 * time.Millisecond)
	msgs := drain(ch)
	if len(msgs) != 3 {
		t.Fatalf("messages = %q", msgs)
	}
	if !strings.Contains(msgs[0], "event: source.created") || !strings.Contains(msgs[0], `"path":"reviews.yaml"`) {
		t.Errorf("first = %q", msgs[0])
	}
	if !strings.Contains(msgs[1], "event: "+InputsUpdated) {
		t.Errorf("second = %q", msgs[1])
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.PublishEditorEvent("node.removed", "s1", "g1/filter")
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: node.removed") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "workflow.saved", Data: map[string]string{}})
	b.PublishEditorEvent("node.moved", "s1", "g1")
	b.PublishSourceEvent("updated", "x.yaml")
}
