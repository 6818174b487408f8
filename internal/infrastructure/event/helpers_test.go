package event

import (
	"context"
	"sync"

	"github.com/escola/backend/internal/domain/shared"
	"github.com/google/uuid"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, uuid.New()),
	}
}

type recordingHandler struct {
	types   []string
	err     error
	panics  bool
	mu      sync.Mutex
	handled []shared.DomainEvent
	done    chan struct{}
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types, done: make(chan struct{}, 64)}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	h.mu.Unlock()
	h.done <- struct{}{}
	if h.panics {
		panic("handler exploded")
	}
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}
