package event

import (
	"slices"
	"strings"
	"sync"

	"github.com/escola/backend/internal/domain/shared"
)

// subscription binds a handler to the event types it receives. No patterns
// means every event; a pattern ending in ".*" matches a whole family such as
// "billing.payment.*".
type subscription struct {
	handler  shared.EventHandler
	patterns []string
}

func (s subscription) accepts(eventType string) bool {
	if len(s.patterns) == 0 {
		return true
	}
	return slices.ContainsFunc(s.patterns, func(p string) bool {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			return strings.HasPrefix(eventType, prefix)
		}
		return p == eventType
	})
}

// HandlerRegistry resolves the handlers of an event type in subscription order
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []subscription
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes a handler. Registering the same handler again widens its
// patterns instead of delivering twice.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.subs {
		if r.subs[i].handler != handler {
			continue
		}
		if len(eventTypes) == 0 || len(r.subs[i].patterns) == 0 {
			r.subs[i].patterns = nil
		} else {
			r.subs[i].patterns = append(r.subs[i].patterns, eventTypes...)
		}
		return
	}
	r.subs = append(r.subs, subscription{handler: handler, patterns: slices.Clone(eventTypes)})
}

func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool { return s.handler == handler })
}

// GetHandlers returns the handlers accepting eventType
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []shared.EventHandler
	for _, s := range r.subs {
		if s.accepts(eventType) {
			result = append(result, s.handler)
		}
	}
	return result
}
