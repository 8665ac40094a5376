package session_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anypay/events-server/internal/domain"
	"github.com/anypay/events-server/internal/session"
)

func TestSessionSendPreservesOrder(t *testing.T) {
	s := session.New()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Send([]byte(fmt.Sprintf("msg-%d", i))))
	}
	s.Close()

	var got []string
	for msg := range s.Outbound() {
		got = append(got, string(msg))
	}

	require.Len(t, got, 10)
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg, "messages must drain in enqueue order")
	}
}

func TestSessionSendAfterClose(t *testing.T) {
	s := session.New()
	s.Close()

	err := s.Send([]byte("late"))
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	s := session.New()

	assert.NotPanics(t, func() {
		s.Close()
		s.Close()
	})
	assert.True(t, s.Closed())
}

func TestSessionSendOverflowClosesSession(t *testing.T) {
	s := session.New()

	// Fill the buffer without a consumer, then push one more.
	var err error
	for i := 0; i < 1000; i++ {
		if err = s.Send([]byte("x")); err != nil {
			break
		}
	}

	require.ErrorIs(t, err, domain.ErrSessionClosed, "an unconsumed session must eventually overflow")
	assert.True(t, s.Closed())
}

func TestManagerLifecycle(t *testing.T) {
	m := session.NewManager()
	s := session.New()

	m.Add(s)
	require.Equal(t, 1, m.Len())
	assert.Same(t, s, m.Get(s.ID))

	m.Remove(s.ID)
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Get(s.ID))
	assert.True(t, s.Closed(), "removal must close the session's channel")
}

func TestManagerRemoveUnknownID(t *testing.T) {
	m := session.NewManager()

	assert.NotPanics(t, func() {
		m.Remove(uuid.New())
	})
}

func TestManagerIDsAreUnique(t *testing.T) {
	seen := make(map[uuid.UUID]bool)
	for i := 0; i < 100; i++ {
		s := session.New()
		require.False(t, seen[s.ID], "session IDs must never repeat")
		seen[s.ID] = true
	}
}
