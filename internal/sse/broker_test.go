package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/starford/linkdex/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

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

	b.Publish(Event{Type: "note.created", Data: map[string]string{"path": "a.md"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.created") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"path":"a.md"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func drain(ch chan []byte, wait time.Duration) (index, notes int, raw []string) {
	deadline := time.After(wait)
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			raw = append(raw, s)
			if strings.Contains(s, "event: "+TypeIndexUpdated) {
				index++
			} else {
				notes++
			}
		case <-deadline:
			return index, notes, raw
		}
	}
}

func TestIndexUpdated_ThrottledWithTrailingEdge(t *testing.T) {
	b := NewBroker(200 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// A burst: the first request is delivered at once, the rest collapse
	// into a single trailing event.
	for i := 0; i < 10; i++ {
		b.IndexUpdated()
		time.Sleep(5 * time.Millisecond)
	}

	index, _, _ := drain(ch, 100*time.Millisecond)
	if index != 1 {
		t.Errorf("leading index events = %d, want 1", index)
	}
	index, _, _ = drain(ch, 400*time.Millisecond)
	if index != 1 {
		t.Errorf("trailing index events = %d, want 1", index)
	}
}

func TestChangeHandlerPublishesNoteEvents(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	doc := fakeDoc("new.md")
	b.OnCreated(doc)
	b.OnChanged(doc)
	b.OnRenamed(doc, "old.md")
	b.OnDeleted(doc)

	_, notes, raw := drain(ch, 100*time.Millisecond)
	if notes != 4 {
		t.Fatalf("note events = %d, want 4: %v", notes, raw)
	}
	for i, typ := range []string{TypeNoteCreated, TypeNoteUpdated, TypeNoteRenamed, TypeNoteDeleted} {
		if !strings.Contains(raw[i], "event: "+typ) {
			t.Errorf("event %d = %q, want %s", i, raw[i], typ)
		}
	}
	if !strings.Contains(raw[2], `"old_path":"old.md"`) {
		t.Errorf("rename payload = %q", raw[2])
	}
}

type fakeDoc string

func (d fakeDoc) Path() string       { return string(d) }
func (d fakeDoc) ModTime() time.Time { return time.Time{} }

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

	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: note.updated") {
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
	b.Publish(Event{Type: "note.updated", Data: map[string]string{"path": "x.md"}})
	b.PublishNoteEvent(models.NoteEvent{Kind: "updated", Path: "x.md"})
	b.IndexUpdated()
}
