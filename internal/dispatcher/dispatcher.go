package dispatcher

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/anypay/events-server/internal/session"
)

// Topic identifies a subscribable resource by its type and ID, e.g.
// ("invoice", "42"). Two topics are equal iff both fields match exactly;
// there is no wildcard or hierarchy.
type Topic struct {
	Type string
	ID   string
}

// Dispatcher maintains the topic to subscriber-set mapping and performs
// fan-out delivery. It holds sessions by identifier only — the session table
// owns session lifetime, and the dispatcher looks up live sessions there at
// delivery time.
type Dispatcher struct {
	sessions *session.Manager

	mu     sync.RWMutex
	topics map[Topic]map[uuid.UUID]struct{}
}

// New creates a dispatcher that resolves subscriber IDs through the given
// session table.
func New(sessions *session.Manager) *Dispatcher {
	return &Dispatcher{
		sessions: sessions,
		topics:   make(map[Topic]map[uuid.UUID]struct{}),
	}
}

// Subscribe adds a session to a topic's subscriber set. Subscribing twice to
// the same topic has the same effect as once.
func (d *Dispatcher) Subscribe(sessionID uuid.UUID, subType, id string) {
	topic := Topic{Type: subType, ID: id}

	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.topics[topic]
	if subs == nil {
		subs = make(map[uuid.UUID]struct{})
		d.topics[topic] = subs
	}
	subs[sessionID] = struct{}{}
}

// Unsubscribe removes a session from a topic's subscriber set. Unsubscribing
// from a topic never subscribed to is a no-op.
func (d *Dispatcher) Unsubscribe(sessionID uuid.UUID, subType, id string) {
	topic := Topic{Type: subType, ID: id}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropLocked(topic, sessionID)
}

// RemoveSession purges a session from every topic's subscriber set. Called
// once at disconnect; safe to call for a session that never subscribed.
func (d *Dispatcher) RemoveSession(sessionID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for topic := range d.topics {
		d.dropLocked(topic, sessionID)
	}
}

// Publish enqueues the payload on every live subscriber of (subType, id).
// Delivery to each subscriber is independent: a dead session never blocks
// delivery to the others, it is simply dropped from the topic's set.
func (d *Dispatcher) Publish(subType, id string, payload []byte) {
	topic := Topic{Type: subType, ID: id}

	// Snapshot the subscriber set so delivery happens outside the lock.
	d.mu.RLock()
	subs := d.topics[topic]
	ids := make([]uuid.UUID, 0, len(subs))
	for sessionID := range subs {
		ids = append(ids, sessionID)
	}
	d.mu.RUnlock()

	var dead []uuid.UUID
	for _, sessionID := range ids {
		s := d.sessions.Get(sessionID)
		if s == nil {
			dead = append(dead, sessionID)
			continue
		}
		if err := s.Send(payload); err != nil {
			dead = append(dead, sessionID)
		}
	}

	if len(dead) > 0 {
		d.mu.Lock()
		for _, sessionID := range dead {
			d.dropLocked(topic, sessionID)
		}
		d.mu.Unlock()
		slog.Debug("Dropped dead subscribers", "topicType", subType, "topicID", id, "count", len(dead))
	}
}

// Subscribed reports whether a session is currently in a topic's set.
func (d *Dispatcher) Subscribed(sessionID uuid.UUID, subType, id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.topics[Topic{Type: subType, ID: id}][sessionID]
	return ok
}

// dropLocked removes a session from one topic and prunes the set when it
// empties. Caller must hold the write lock.
func (d *Dispatcher) dropLocked(topic Topic, sessionID uuid.UUID) {
	subs := d.topics[topic]
	if subs == nil {
		return
	}
	delete(subs, sessionID)
	if len(subs) == 0 {
		delete(d.topics, topic)
	}
}
