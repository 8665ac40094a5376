package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/anypay/events-server/internal/domain"
)

// sendBufferSize bounds the outbound queue per session. A session whose
// buffer fills up is treated as dead and forcibly closed.
const sendBufferSize = 256

// Session represents one live client connection. It decouples "a message is
// ready for this client" from the actual network write: callers enqueue on
// the outbound channel and a dedicated writer pump drains it, so the channel
// is the only ordering authority for messages to this client.
type Session struct {
	ID uuid.UUID

	send chan []byte
	mu   sync.RWMutex
	// closed is set once the send channel has been closed. The channel
	// itself stays non-nil so the writer pump can finish draining it.
	closed bool
}

// New creates a session with a fresh identifier and an open outbound queue.
func New() *Session {
	return &Session{
		ID:   uuid.New(),
		send: make(chan []byte, sendBufferSize),
	}
}

// Send enqueues a message on the session's outbound channel. It never blocks:
// if the session is already closed it returns domain.ErrSessionClosed, and if
// the buffer is full the session is closed and the message dropped.
func (s *Session) Send(msg []byte) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return domain.ErrSessionClosed
	}

	select {
	case s.send <- msg:
		s.mu.RUnlock()
		return nil
	default:
	}
	s.mu.RUnlock()

	// Buffer full: the client is lagging or gone. Close the session so the
	// writer pump terminates and the connection handler tears down.
	slog.Warn("Session send buffer full, closing session", "sessionID", s.ID)
	s.Close()
	return domain.ErrSessionClosed
}

// Outbound returns the receive side of the session's queue. It is consumed
// exclusively by the connection's writer pump.
func (s *Session) Outbound() <-chan []byte {
	return s.send
}

// Close closes the session's outbound channel. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}
