package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseAggregateRoot is embedded by aggregates. Version starts at 1 and moves
// forward on every Touch; events raised by a command wait here until the
// application layer pulls them after a successful save.
type BaseAggregateRoot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
	pending   []DomainEvent
}

// NewBaseAggregateRoot returns a root with a fresh ID at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// GetVersion returns the aggregate version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// Touch marks the aggregate as changed
func (a *BaseAggregateRoot) Touch() {
	a.UpdatedAt = time.Now()
	a.Version++
}

// AddDomainEvent queues an event for publication
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events without clearing them
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// PullDomainEvents returns the queued events and clears the queue
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
