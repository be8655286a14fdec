package persist

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Availability is the gateway's view of the durable store.
type Availability int32

const (
	AvailabilityUnknown Availability = iota
	AvailabilityConnected
	AvailabilityDisconnected
)

func (a Availability) String() string {
	switch a {
	case AvailabilityConnected:
		return "connected"
	case AvailabilityDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

type eventKind int

const (
	evRoomCreated eventKind = iota
	evParticipantJoined
	evParticipantLeft
	evRoomClosed
)

type event struct {
	kind          eventKind
	room          Room
	participant   Participant
	roomID        string
	participantID string
	at            time.Time
	stat          CallStat
}

const (
	eventBuffer    = 256
	writeTimeout   = 5 * time.Second
	defaultBackoff = 10 * time.Second
)

// Gateway mirrors room lifecycle events to the durable store without
// ever blocking signaling. Every write goes through a buffered channel
// drained by a single worker; when the buffer is full or the store is
// down, events are dropped and logged (at-most-once, best effort).
// Signaling always treats the in-memory registry as source of truth.
type Gateway struct {
	store  Store
	log    zerolog.Logger
	retry  time.Duration
	events chan event
	state  atomic.Int32
}

// NewGateway wraps a store. store may be nil, in which case the
// gateway is permanently disconnected and every call is a no-op.
func NewGateway(store Store, retry time.Duration, logger *zerolog.Logger) *Gateway {
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	if retry <= 0 {
		retry = defaultBackoff
	}
	g := &Gateway{
		store:  store,
		log:    lg,
		retry:  retry,
		events: make(chan event, eventBuffer),
	}
	if store == nil {
		g.state.Store(int32(AvailabilityDisconnected))
	}
	return g
}

// Availability reports the gateway's current view of the store.
func (g *Gateway) Availability() Availability {
	return Availability(g.state.Load())
}

// Run drains the event queue until ctx is cancelled, pinging the
// store on a backoff ticker while it is unreachable. Transitions
// never pause signaling traffic.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.retry)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-g.events:
			g.apply(ctx, ev)
		case <-ticker.C:
			g.reconnect(ctx)
		}
	}
}

// Close closes the underlying store, if any.
func (g *Gateway) Close() error {
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}

// RoomCreated mirrors a room creation. Fire-and-forget.
func (g *Gateway) RoomCreated(roomID, name string) {
	g.publish(event{kind: evRoomCreated, room: Room{ID: roomID, Name: name, CreatedAt: time.Now()}})
}

// ParticipantJoined mirrors a join. Fire-and-forget.
func (g *Gateway) ParticipantJoined(roomID, participantID, name string) {
	g.publish(event{kind: evParticipantJoined, participant: Participant{
		ID:       participantID,
		RoomID:   roomID,
		Name:     name,
		JoinedAt: time.Now(),
	}})
}

// ParticipantLeft mirrors a departure. Fire-and-forget.
func (g *Gateway) ParticipantLeft(roomID, participantID string) {
	g.publish(event{kind: evParticipantLeft, roomID: roomID, participantID: participantID, at: time.Now()})
}

// RoomClosed appends a call summary on room teardown. Fire-and-forget.
func (g *Gateway) RoomClosed(roomID string, peakParticipants int, createdAt time.Time) {
	now := time.Now()
	g.publish(event{kind: evRoomClosed, stat: CallStat{
		RoomID:           roomID,
		PeakParticipants: peakParticipants,
		Duration:         now.Sub(createdAt),
		EndedAt:          now,
	}})
}

// CreateRoom is the synchronous best-effort write behind the REST
// room-creation endpoint. Failures flip availability but are expected
// to be swallowed by the caller.
func (g *Gateway) CreateRoom(ctx context.Context, room *Room) error {
	if g.store == nil {
		return ErrUnavailable
	}
	if err := g.store.UpsertRoom(ctx, room); err != nil {
		g.markDown(err)
		return ErrUnavailable
	}
	g.markUp()
	return nil
}

// GetRoom reads a room record for the REST lookup path. ErrRoomNotFound
// and ErrUnavailable are distinct outcomes.
func (g *Gateway) GetRoom(ctx context.Context, id string) (*Room, error) {
	if g.store == nil {
		return nil, ErrUnavailable
	}
	room, err := g.store.GetRoom(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			g.markUp()
			return nil, ErrRoomNotFound
		}
		g.markDown(err)
		return nil, ErrUnavailable
	}
	g.markUp()
	return room, nil
}

// ListParticipants reads membership records for the REST lookup path.
func (g *Gateway) ListParticipants(ctx context.Context, roomID string) ([]*Participant, error) {
	if g.store == nil {
		return nil, ErrUnavailable
	}
	participants, err := g.store.ListParticipants(ctx, roomID)
	if err != nil {
		g.markDown(err)
		return nil, ErrUnavailable
	}
	g.markUp()
	return participants, nil
}

func (g *Gateway) publish(ev event) {
	select {
	case g.events <- ev:
	default:
		g.log.Warn().Int("kind", int(ev.kind)).Msg("persistence queue full, event dropped")
	}
}

func (g *Gateway) apply(ctx context.Context, ev event) {
	if g.store == nil {
		return
	}
	if g.Availability() == AvailabilityDisconnected {
		g.log.Debug().Int("kind", int(ev.kind)).Msg("store down, event dropped")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	var err error
	switch ev.kind {
	case evRoomCreated:
		err = g.store.UpsertRoom(opCtx, &ev.room)
	case evParticipantJoined:
		err = g.store.UpsertParticipant(opCtx, &ev.participant)
	case evParticipantLeft:
		err = g.store.MarkParticipantLeft(opCtx, ev.roomID, ev.participantID, ev.at)
	case evRoomClosed:
		err = g.store.AppendCallStat(opCtx, &ev.stat)
	}
	if err != nil {
		g.markDown(err)
		return
	}
	g.markUp()
}

func (g *Gateway) reconnect(ctx context.Context) {
	if g.store == nil || g.Availability() == AvailabilityConnected {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := g.store.Ping(pingCtx); err != nil {
		g.log.Debug().Err(err).Msg("store still unreachable")
		return
	}
	g.markUp()
	g.log.Info().Msg("store connection restored")
}

func (g *Gateway) markDown(err error) {
	if Availability(g.state.Swap(int32(AvailabilityDisconnected))) != AvailabilityDisconnected {
		g.log.Warn().Err(err).Msg("durable store unavailable, continuing in-memory")
	}
}

func (g *Gateway) markUp() {
	g.state.Store(int32(AvailabilityConnected))
}
