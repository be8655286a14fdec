package core

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/proto"
)

// Router validates inbound signals and dispatches them to registry
// operations. Validation failures are reported back to the sender
// in-band; a malformed message never terminates the connection.
type Router struct {
	registry *Registry
	log      zerolog.Logger
}

// NewRouter builds a router over the given registry.
func NewRouter(registry *Registry, logger *zerolog.Logger) *Router {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Router{registry: registry, log: lg}
}

// HandleInbound processes one raw message from the session's socket.
func (rt *Router) HandleInbound(s *Session, raw []byte) {
	s.Touch()

	var sig proto.Signal
	if err := json.Unmarshal(raw, &sig); err != nil {
		rt.sendError(s, "", ErrCodeValidation, "malformed message")
		return
	}

	if verr := validate(&sig); verr != nil {
		rt.sendError(s, sig.RoomID, verr.Code, verr.Message)
		return
	}

	// The sender identity always comes from the authenticated session,
	// never from the wire.
	sig.From = s.ID

	switch sig.Type {
	case proto.KindJoin:
		if err := rt.registry.Join(sig.RoomID, s); err != nil {
			rt.sendError(s, sig.RoomID, CodeOf(err), err.Error())
		}
	case proto.KindLeave:
		if err := rt.registry.Leave(sig.RoomID, s.ID); err != nil {
			rt.sendError(s, sig.RoomID, CodeOf(err), err.Error())
		}
	case proto.KindOffer, proto.KindAnswer, proto.KindICECandidate:
		if s.RoomID() != sig.RoomID {
			rt.sendError(s, sig.RoomID, ErrCodeValidation, "join the room before signaling")
			return
		}
		if err := rt.registry.Relay(sig.RoomID, sig.To, &sig); err != nil {
			rt.sendError(s, sig.RoomID, CodeOf(err), err.Error())
		}
	}
}

func validate(sig *proto.Signal) *SignalError {
	if !sig.Type.Known() {
		return &SignalError{Code: ErrCodeValidation, Message: "unknown message type"}
	}
	if sig.Type.ServerOnly() {
		return &SignalError{Code: ErrCodeValidation, Message: "reserved message type"}
	}
	if sig.RoomID == "" {
		return &SignalError{Code: ErrCodeValidation, Message: "roomId is required"}
	}
	if sig.Type.NeedsTarget() {
		if sig.To == "" {
			return &SignalError{Code: ErrCodeValidation, Message: "target participant is required"}
		}
		if len(sig.Payload) == 0 {
			return &SignalError{Code: ErrCodeValidation, Message: "payload is required"}
		}
	}
	if len(sig.Payload) > proto.MaxPayloadBytes {
		return &SignalError{Code: ErrCodeValidation, Message: "payload too large"}
	}
	return nil
}

func (rt *Router) sendError(s *Session, roomID, code, msg string) {
	rt.log.Debug().Str("participant", s.ID).Str("code", code).Msg("rejected inbound signal")
	if !s.Send(proto.ErrorSignal(roomID, code, msg)) {
		rt.log.Debug().Str("participant", s.ID).Msg("error signal dropped, session closed")
	}
}
