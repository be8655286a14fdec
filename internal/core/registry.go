package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/proto"
)

// Recorder receives room lifecycle events for best-effort mirroring.
// Implementations must never block; the registry calls them on the
// signaling path.
type Recorder interface {
	RoomCreated(roomID, name string)
	ParticipantJoined(roomID, participantID, name string)
	ParticipantLeft(roomID, participantID string)
	RoomClosed(roomID string, peakParticipants int, createdAt time.Time)
}

// RoomInfo is a read-only snapshot of a live room, consumed by the
// REST fallback path when the durable store is unreachable.
type RoomInfo struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Members   []proto.ParticipantInfo
}

// Registry maps room ids to live rooms and owns join/leave/broadcast/
// relay semantics. The registry map itself is guarded by a RWMutex;
// member sets are guarded per room, so a busy room never stalls
// signaling in another. Critical sections only touch in-memory maps.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	capacity int
	recorder Recorder
	log      zerolog.Logger
}

// NewRegistry constructs a registry. capacity caps members per room
// (0 = unlimited); recorder may be nil.
func NewRegistry(capacity int, recorder Recorder, logger *zerolog.Logger) *Registry {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		capacity: capacity,
		recorder: recorder,
		log:      lg,
	}
}

// Join adds the session to the room, creating the room on first join.
// Pre-existing members receive a presence-update naming the new
// participant. A session already in a different room leaves it first;
// re-joining the same room yields ErrAlreadyMember.
func (reg *Registry) Join(roomID string, s *Session) error {
	if current := s.RoomID(); current != "" && current != roomID {
		_ = reg.Leave(current, s.ID)
	}

	// Lookup-or-create and the member insert stay under the registry
	// lock so a concurrent leave cannot evict the room in between.
	reg.mu.Lock()
	room, exists := reg.rooms[roomID]
	if !exists {
		room = newRoom(roomID, roomID)
		reg.rooms[roomID] = room
	}
	err := room.add(s, reg.capacity)
	if err != nil && !exists {
		delete(reg.rooms, roomID)
	}
	reg.mu.Unlock()

	if err != nil {
		return err
	}

	s.SetRoomID(roomID)
	s.Activate()

	presence := proto.PresenceSignal(roomID, proto.Presence{
		Event:       proto.PresenceJoined,
		Participant: proto.ParticipantInfo{ID: s.ID, Name: s.Name},
		Members:     room.memberInfo(),
	})
	reg.reap(room.broadcast(presence, s.ID))

	if reg.recorder != nil {
		if !exists {
			reg.recorder.RoomCreated(roomID, room.Name)
		}
		reg.recorder.ParticipantJoined(roomID, s.ID, s.Name)
	}

	reg.log.Debug().Str("room", roomID).Str("participant", s.ID).Msg("participant joined")
	return nil
}

// Leave removes the member and evicts the room when it becomes empty.
// Leaving a room one is not a member of is a no-op; an unknown room is
// ErrRoomNotFound.
func (reg *Registry) Leave(roomID, participantID string) error {
	reg.mu.Lock()
	room, ok := reg.rooms[roomID]
	if !ok {
		reg.mu.Unlock()
		return ErrRoomNotFound
	}
	s, removed, empty := room.remove(participantID)
	if removed && empty {
		delete(reg.rooms, roomID)
	}
	reg.mu.Unlock()

	if !removed {
		return nil
	}

	s.SetRoomID("")

	if !empty {
		presence := proto.PresenceSignal(roomID, proto.Presence{
			Event:       proto.PresenceLeft,
			Participant: proto.ParticipantInfo{ID: s.ID, Name: s.Name},
			Members:     room.memberInfo(),
		})
		reg.reap(room.broadcast(presence, participantID))
	}

	if reg.recorder != nil {
		reg.recorder.ParticipantLeft(roomID, participantID)
		if empty {
			peak, createdAt := room.stats()
			reg.recorder.RoomClosed(roomID, peak, createdAt)
		}
	}

	reg.log.Debug().Str("room", roomID).Str("participant", participantID).Bool("evicted", empty).Msg("participant left")
	return nil
}

// Broadcast fans a signal out to every current member except the
// excluded sender. Delivery order across members is unspecified;
// per-receiver order follows the session queue.
func (reg *Registry) Broadcast(roomID string, sig *proto.Signal, excludeID string) error {
	room, ok := reg.room(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	reg.reap(room.broadcast(sig, excludeID))
	return nil
}

// Relay delivers a signal point-to-point to one member of the room.
func (reg *Registry) Relay(roomID, targetID string, sig *proto.Signal) error {
	room, ok := reg.room(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	dead, err := room.relay(targetID, sig)
	if dead != nil {
		reg.reap([]*Session{dead})
	}
	return err
}

// Detach removes a destroyed session from whatever room it belongs
// to. Called on every transport teardown, so no later broadcast can
// target a dead session.
func (reg *Registry) Detach(s *Session) {
	if roomID := s.RoomID(); roomID != "" {
		_ = reg.Leave(roomID, s.ID)
	}
}

// Snapshot returns a copy of a live room's state, if present.
func (reg *Registry) Snapshot(roomID string) (RoomInfo, bool) {
	room, ok := reg.room(roomID)
	if !ok {
		return RoomInfo{}, false
	}
	return RoomInfo{
		ID:        room.ID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
		Members:   room.memberInfo(),
	}, true
}

// RoomCount reports the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

func (reg *Registry) room(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// reap closes sessions whose queue rejected a signal. A full queue
// means the consumer stopped draining; the session is torn down and
// detached so the client can reconnect and renegotiate.
func (reg *Registry) reap(dead []*Session) {
	for _, s := range dead {
		if s.Close("send queue overflow") {
			reg.log.Warn().Str("participant", s.ID).Msg("closing unresponsive session")
			reg.Detach(s)
		}
	}
}
