package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peermeet/signal-server/internal/persist"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoomRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	room := &persist.Room{
		ID:        "r1",
		Name:      "standup",
		CreatedBy: "alice",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.UpsertRoom(ctx, room); err != nil {
		t.Fatalf("upsert room: %v", err)
	}

	got, err := s.GetRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if got.Name != "standup" || got.CreatedBy != "alice" {
		t.Fatalf("unexpected room: %+v", got)
	}

	// Upsert with the same id refreshes the name instead of failing.
	room.Name = "retro"
	if err := s.UpsertRoom(ctx, room); err != nil {
		t.Fatalf("re-upsert room: %v", err)
	}
	got, err = s.GetRoom(ctx, "r1")
	if err != nil {
		t.Fatalf("get room after upsert: %v", err)
	}
	if got.Name != "retro" {
		t.Fatalf("expected refreshed name, got %q", got.Name)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRoom(context.Background(), "ghost")
	if !errors.Is(err, persist.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestParticipantLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for _, p := range []*persist.Participant{
		{ID: "a", RoomID: "r1", Name: "alice", JoinedAt: now},
		{ID: "b", RoomID: "r1", Name: "bob", JoinedAt: now.Add(time.Second)},
	} {
		if err := s.UpsertParticipant(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}

	if err := s.MarkParticipantLeft(ctx, "r1", "a", now.Add(time.Minute)); err != nil {
		t.Fatalf("mark left: %v", err)
	}

	participants, err := s.ListParticipants(ctx, "r1")
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	// Active memberships sort first.
	if participants[0].ID != "b" || participants[0].LeftAt != nil {
		t.Fatalf("expected active bob first, got %+v", participants[0])
	}
	if participants[1].ID != "a" || participants[1].LeftAt == nil {
		t.Fatalf("expected departed alice last, got %+v", participants[1])
	}

	// Re-join clears the departure stamp.
	if err := s.UpsertParticipant(ctx, &persist.Participant{ID: "a", RoomID: "r1", Name: "alice", JoinedAt: now.Add(2 * time.Minute)}); err != nil {
		t.Fatalf("re-join: %v", err)
	}
	participants, err = s.ListParticipants(ctx, "r1")
	if err != nil {
		t.Fatalf("list after re-join: %v", err)
	}
	for _, p := range participants {
		if p.LeftAt != nil {
			t.Fatalf("expected no departed participants after re-join, got %+v", p)
		}
	}
}

func TestAppendCallStat(t *testing.T) {
	s := newTestStore(t)

	stat := &persist.CallStat{
		RoomID:           "r1",
		PeakParticipants: 4,
		Duration:         42 * time.Minute,
		EndedAt:          time.Now().UTC(),
	}
	if err := s.AppendCallStat(context.Background(), stat); err != nil {
		t.Fatalf("append call stat: %v", err)
	}
	if err := s.AppendCallStat(context.Background(), stat); err != nil {
		t.Fatalf("append-only table rejected a second row: %v", err)
	}
}
