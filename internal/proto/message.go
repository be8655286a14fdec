package proto

import "encoding/json"

// Kind discriminates the signal message variants.
type Kind string

const (
	KindJoin           Kind = "join"
	KindLeave          Kind = "leave"
	KindOffer          Kind = "offer"
	KindAnswer         Kind = "answer"
	KindICECandidate   Kind = "ice-candidate"
	KindPresenceUpdate Kind = "presence-update"
	KindError          Kind = "error"
)

// MaxPayloadBytes caps the opaque SDP/ICE payload size.
const MaxPayloadBytes = 64 * 1024

// Signal is the wire envelope exchanged over the signaling socket.
// Payload is opaque to the server beyond size validation.
type Signal struct {
	Type    Kind            `json:"type"`
	RoomID  string          `json:"roomId"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Known reports whether k is one of the protocol's message kinds.
func (k Kind) Known() bool {
	switch k {
	case KindJoin, KindLeave, KindOffer, KindAnswer, KindICECandidate, KindPresenceUpdate, KindError:
		return true
	}
	return false
}

// NeedsTarget reports whether messages of this kind require a target
// participant for point-to-point relay.
func (k Kind) NeedsTarget() bool {
	return k == KindOffer || k == KindAnswer || k == KindICECandidate
}

// ServerOnly reports whether this kind may only be emitted by the server.
func (k Kind) ServerOnly() bool {
	return k == KindPresenceUpdate || k == KindError
}

// PresenceEvent distinguishes the two membership changes.
type PresenceEvent string

const (
	PresenceJoined PresenceEvent = "joined"
	PresenceLeft   PresenceEvent = "left"
)

// ParticipantInfo identifies a participant in presence payloads.
type ParticipantInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Presence is the payload of a presence-update signal.
type Presence struct {
	Event       PresenceEvent     `json:"event"`
	Participant ParticipantInfo   `json:"participant"`
	Members     []ParticipantInfo `json:"members"`
}

// PresenceSignal builds a presence-update envelope for a room.
func PresenceSignal(roomID string, p Presence) *Signal {
	payload, _ := json.Marshal(p)
	return &Signal{
		Type:    KindPresenceUpdate,
		RoomID:  roomID,
		Payload: payload,
	}
}

// ErrorSignal builds an error envelope reported back to a sender.
func ErrorSignal(roomID, code, msg string) *Signal {
	return &Signal{
		Type:    KindError,
		RoomID:  roomID,
		Code:    code,
		Message: msg,
	}
}
