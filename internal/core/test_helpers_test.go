package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/peermeet/signal-server/internal/proto"
)

func mustSignal(t *testing.T, s *Session, kind proto.Kind) *proto.Signal {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case sig := <-s.Out:
			if sig.Type == kind {
				return sig
			}
		case <-deadline:
			t.Fatalf("expected signal kind %q not received", kind)
			return nil
		}
	}
}

func presenceOf(t *testing.T, sig *proto.Signal) proto.Presence {
	t.Helper()

	var p proto.Presence
	if err := json.Unmarshal(sig.Payload, &p); err != nil {
		t.Fatalf("unmarshal presence payload: %v", err)
	}
	return p
}

func drain(s *Session) {
	for {
		select {
		case <-s.Out:
		default:
			return
		}
	}
}

type recordedEvent struct {
	kind          string
	roomID        string
	participantID string
	peak          int
}

// fakeRecorder collects lifecycle events for assertions.
type fakeRecorder struct {
	events []recordedEvent
}

func (f *fakeRecorder) RoomCreated(roomID, name string) {
	f.events = append(f.events, recordedEvent{kind: "room_created", roomID: roomID})
}

func (f *fakeRecorder) ParticipantJoined(roomID, participantID, name string) {
	f.events = append(f.events, recordedEvent{kind: "joined", roomID: roomID, participantID: participantID})
}

func (f *fakeRecorder) ParticipantLeft(roomID, participantID string) {
	f.events = append(f.events, recordedEvent{kind: "left", roomID: roomID, participantID: participantID})
}

func (f *fakeRecorder) RoomClosed(roomID string, peakParticipants int, createdAt time.Time) {
	f.events = append(f.events, recordedEvent{kind: "room_closed", roomID: roomID, peak: peakParticipants})
}

func (f *fakeRecorder) count(kind string) int {
	n := 0
	for _, ev := range f.events {
		if ev.kind == kind {
			n++
		}
	}
	return n
}
