package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// LocalSession is an in-process session backed by a bounded buffer. Server-side
// listeners and tests read from Messages.
type LocalSession struct {
	id       string
	messages chan Message

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

// NewLocalSession creates a session with the given buffer size.
func NewLocalSession(buffer int) *LocalSession {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &LocalSession{
		id:       uuid.NewString(),
		messages: make(chan Message, buffer),
	}
}

// ID returns the session identifier.
func (s *LocalSession) ID() string {
	return s.id
}

// Messages exposes delivered messages. The channel is closed by Close.
func (s *LocalSession) Messages() <-chan Message {
	return s.messages
}

// Deliver enqueues message without blocking.
func (s *LocalSession) Deliver(message Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.messages <- message:
		return true
	default:
		return false
	}
}

// OnClose registers fn to run when the session closes. It runs immediately when the
// session is already closed.
func (s *LocalSession) OnClose(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close ends the session and runs the close callbacks once.
func (s *LocalSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	callbacks := s.onClose
	s.onClose = nil
	close(s.messages)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
