package persist

import (
	"context"
	"errors"
	"time"
)

// Room is the durable mirror of a signaling room.
type Room struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}

// Participant is the durable mirror of a room membership.
type Participant struct {
	ID       string
	RoomID   string
	Name     string
	JoinedAt time.Time
	LeftAt   *time.Time
}

// CallStat is an append-only summary written on room teardown. It is
// never read back by the signaling path.
type CallStat struct {
	RoomID           string
	PeakParticipants int
	Duration         time.Duration
	EndedAt          time.Time
}

var (
	// ErrRoomNotFound means the store is reachable and the room does
	// not exist. Distinct from ErrUnavailable on purpose.
	ErrRoomNotFound = errors.New("room not found")
	// ErrUnavailable means the durable store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// RoomStore handles durable room records.
type RoomStore interface {
	// UpsertRoom creates or refreshes a room record.
	UpsertRoom(ctx context.Context, room *Room) error

	// GetRoom retrieves a room by id. Returns ErrRoomNotFound when absent.
	GetRoom(ctx context.Context, id string) (*Room, error)
}

// ParticipantStore handles durable membership records.
type ParticipantStore interface {
	// UpsertParticipant records a join; a re-join clears left_at.
	UpsertParticipant(ctx context.Context, p *Participant) error

	// MarkParticipantLeft stamps the departure time.
	MarkParticipantLeft(ctx context.Context, roomID, participantID string, at time.Time) error

	// ListParticipants lists memberships for a room, active first.
	ListParticipants(ctx context.Context, roomID string) ([]*Participant, error)
}

// StatStore appends call summaries.
type StatStore interface {
	AppendCallStat(ctx context.Context, stat *CallStat) error
}

// Store aggregates all durable-store interfaces.
type Store interface {
	RoomStore
	ParticipantStore
	StatStore

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
