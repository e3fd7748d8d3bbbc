// Package events carries the in-process publish/subscribe bus. The bus
// is emission-only plumbing: conversation flow never depends on a
// subscriber having run, and a slow subscriber can never stall the
// publisher.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types published by the conversation core.
const (
	TypeSessionStarted   = "session.started"
	TypeSessionCompleted = "session.completed"
	TypeSessionEscalated = "session.escalated"
	TypeSessionAbandoned = "session.abandoned"
	TypeSessionPurged    = "session.purged"
	TypeStateChanged     = "conversation.state_changed"
	TypeFieldMerged      = "profile.field_merged"
	TypeClarification    = "conversation.clarification"
	TypeCalculationDone  = "calculation.completed"
	TypeEligibilityDone  = "eligibility.completed"
	TypeRulesReloaded    = "rules.reloaded"
)

// Event is a single bus message. Payload keys are free-form strings so
// subscribers never need the publisher's types.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Handler consumes one event. It runs on the subscriber's own
// goroutine, so it may block without affecting other subscribers.
type Handler func(Event)

const subscriberBuffer = 256

type subscriber struct {
	name string
	ch   chan Event
}

// Bus fans events out to named subscribers. Each subscriber gets a
// buffered channel drained by a dedicated goroutine; when the buffer is
// full the event is dropped for that subscriber and logged, never
// queued against the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	closed bool
	wg     sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler under a name used in drop logs.
// Subscribing after Close is a no-op.
func (b *Bus) Subscribe(name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	sub := subscriber{name: name, ch: make(chan Event, subscriberBuffer)}
	b.subs = append(b.subs, sub)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for ev := range sub.ch {
			fn(ev)
		}
	}()
}

// Publish stamps the event with an id and timestamp (when unset) and
// hands it to every subscriber. Publish never blocks: a subscriber
// whose buffer is full loses the event.
func (b *Bus) Publish(ev Event) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			zap.L().Warn("event dropped, subscriber buffer full",
				zap.String("subscriber", sub.name),
				zap.String("event_type", ev.Type),
				zap.String("session_id", ev.SessionID))
		}
	}
}

// Close stops accepting events and waits for every subscriber to drain
// its buffer.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
	b.wg.Wait()
}
