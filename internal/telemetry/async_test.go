package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*Event
	emitErr error
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events
}

func TestEmitAsync_NilEmitter(t *testing.T) {
	event := &Event{EventType: EventLogin, UserID: "u1"}

	// Should not panic
	EmitAsync(nil, context.Background(), event)
}

func TestEmitAsync_NilEvent(t *testing.T) {
	emitter := &mockEventEmitter{}

	// Should not panic
	EmitAsync(emitter, context.Background(), nil)

	// Give the goroutine time to run (if it starts)
	time.Sleep(10 * time.Millisecond)

	if events := emitter.getEvents(); len(events) != 0 {
		t.Errorf("expected 0 events, got %d", len(events))
	}
}

func TestEmitAsync_DeliversEvent(t *testing.T) {
	emitter := &mockEventEmitter{}
	event := &Event{EventType: EventLogout, UserID: "u1", CreatedAt: time.Now().UTC()}

	EmitAsync(emitter, context.Background(), event)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(emitter.getEvents()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	events := emitter.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != EventLogout {
		t.Errorf("event type = %q, want %q", events[0].EventType, EventLogout)
	}
}

func TestEmitAsync_EmitterErrorDoesNotPanic(t *testing.T) {
	emitter := &mockEventEmitter{emitErr: errors.New("broker down")}

	EmitAsync(emitter, context.Background(), &Event{EventType: EventHeartbeat, UserID: "u1"})

	time.Sleep(20 * time.Millisecond)
	if len(emitter.getEvents()) != 1 {
		t.Error("event should still have been handed to the emitter")
	}
}

func TestEmitAsync_CanceledCallerContext(t *testing.T) {
	emitter := &mockEventEmitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The emit runs detached from the caller's context.
	EmitAsync(emitter, ctx, &Event{EventType: EventSweep, Expired: 3})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(emitter.getEvents()) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("event should be emitted even when the caller's context is canceled")
}
