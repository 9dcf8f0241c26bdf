package protocol

import (
	"sync"

	"github.com/flowpanel/flowpanel/pkg/errors"
)

// DefaultQueueSize is the outbound buffer per session. A session that
// cannot drain this many messages is considered stalled and is closed
// rather than blocking or reordering the engine.
const DefaultQueueSize = 256

// Session is one connected canvas. Outbound messages are queued FIFO and
// never block the engine; the transport drains [Session.Outbound] and
// forwards inbound frames to [Handler.HandleMessage].
type Session struct {
	id  string
	out chan []byte

	mu     sync.Mutex
	closed bool
}

func newSession(id string, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{id: id, out: make(chan []byte, queueSize)}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Outbound returns the channel of encoded messages to deliver to the
// canvas, in send order. The channel is closed when the session closes.
func (s *Session) Outbound() <-chan []byte { return s.out }

// send queues a message without blocking. Fails with SESSION_CLOSED when
// the session is closed or its queue overflows; an overflowing session is
// closed so the canvas reconnects with a fresh sync instead of receiving a
// gapped stream.
func (s *Session) send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New(errors.ErrCodeSessionClosed, "session %q is closed", s.id)
	}
	select {
	case s.out <- data:
		return nil
	default:
		s.closeLocked()
		return errors.New(errors.ErrCodeSessionClosed, "session %q overflowed its outbound queue", s.id)
	}
}

// Close closes the outbound channel. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}
