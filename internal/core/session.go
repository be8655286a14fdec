package core

import (
	"sync"
	"time"

	"github.com/peermeet/signal-server/internal/proto"
)

// State tracks a session's connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateDisconnected
)

// Participant identifies a connected peer.
type Participant struct {
	ID   string
	Name string
}

// Session wraps one accepted socket connection. It owns the outbound
// queue drained by the transport's write loop. The queue channel is
// never closed; Close signals shutdown through Done instead, so
// concurrent Send calls can never panic.
type Session struct {
	Participant

	Out chan *proto.Signal

	done      chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	roomID      string
	state       State
	lastActive  time.Time
	closeReason string
}

// NewSession constructs a session with a buffered outbound queue.
func NewSession(id, name string, queueSize int) *Session {
	if name == "" {
		name = id
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Session{
		Participant: Participant{ID: id, Name: name},
		Out:         make(chan *proto.Signal, queueSize),
		done:        make(chan struct{}),
		state:       StateConnecting,
		lastActive:  time.Now(),
	}
}

// Send enqueues a signal for delivery without blocking the caller.
// It reports false if the session is already closed or its queue is
// full; a full queue means the consumer is dead and the caller should
// close the session.
func (s *Session) Send(sig *proto.Signal) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.Out <- sig:
		s.Touch()
		return true
	default:
		return false
	}
}

// Close marks the session disconnected and releases its write loop.
// It reports whether this call performed the close, so the owner runs
// room cleanup exactly once.
func (s *Session) Close(reason string) bool {
	first := false
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateDisconnected
		s.closeReason = reason
		s.mu.Unlock()
		close(s.done)
		first = true
	})
	return first
}

// Done is closed when the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Activate transitions the session out of the connecting state.
func (s *Session) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting {
		s.state = StateActive
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID returns the room this session currently belongs to, if any.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// SetRoomID records the session's current room association.
func (s *Session) SetRoomID(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = roomID
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// LastActive returns the last-activity timestamp.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// CloseReason returns the reason recorded by the first Close call.
func (s *Session) CloseReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeReason
}
