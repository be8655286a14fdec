package core

import (
	"sync"
	"time"

	"github.com/peermeet/signal-server/internal/proto"
)

// Room groups the sessions of participants signaling each other.
// The member set is guarded by the room's own mutex so traffic in one
// room never contends with another.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu      sync.Mutex
	members map[string]*Session
	peak    int
}

func newRoom(id, name string) *Room {
	if name == "" {
		name = id
	}
	return &Room{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		members:   make(map[string]*Session),
	}
}

// add inserts a session into the member set.
func (r *Room) add(s *Session, capacity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[s.ID]; exists {
		return ErrAlreadyMember
	}
	if capacity > 0 && len(r.members) >= capacity {
		return ErrRoomFull
	}
	r.members[s.ID] = s
	if len(r.members) > r.peak {
		r.peak = len(r.members)
	}
	return nil
}

// remove deletes a member by participant id. It reports whether the
// participant was a member, and whether the room is now empty.
func (r *Room) remove(participantID string) (*Session, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, exists := r.members[participantID]
	if !exists {
		return nil, false, len(r.members) == 0
	}
	delete(r.members, participantID)
	return s, true, len(r.members) == 0
}

// broadcast enqueues a signal to every member except excludeID.
// Sessions whose queue rejected the signal are returned so the
// registry can tear them down outside the room lock.
func (r *Room) broadcast(sig *proto.Signal, excludeID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dead []*Session
	for id, member := range r.members {
		if id == excludeID {
			continue
		}
		if !member.Send(sig) {
			dead = append(dead, member)
		}
	}
	return dead
}

// relay enqueues a signal to a single member.
func (r *Room) relay(targetID string, sig *proto.Signal) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, exists := r.members[targetID]
	if !exists {
		return nil, ErrNoSuchTarget
	}
	if !target.Send(sig) {
		return target, ErrNoSuchTarget
	}
	return nil, nil
}

// memberInfo returns a stable copy of the current member identities.
func (r *Room) memberInfo() []proto.ParticipantInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := make([]proto.ParticipantInfo, 0, len(r.members))
	for _, member := range r.members {
		info = append(info, proto.ParticipantInfo{ID: member.ID, Name: member.Name})
	}
	return info
}

func (r *Room) stats() (peak int, createdAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak, r.CreatedAt
}
