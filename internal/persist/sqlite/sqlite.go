package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/peermeet/signal-server/internal/persist"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS participants (
	id        TEXT NOT NULL,
	room_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	left_at   DATETIME,
	PRIMARY KEY (room_id, id)
);

CREATE TABLE IF NOT EXISTS call_stats (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id           TEXT NOT NULL,
	peak_participants INTEGER NOT NULL,
	duration_seconds  INTEGER NOT NULL,
	ended_at          DATETIME NOT NULL
);
`

// SQLiteStore implements persist.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertRoom creates or refreshes a room record.
func (s *SQLiteStore) UpsertRoom(ctx context.Context, room *persist.Room) error {
	query := `
		INSERT INTO rooms (id, name, created_by, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	if _, err := s.db.ExecContext(ctx, query, room.ID, room.Name, room.CreatedBy, room.CreatedAt); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, id string) (*persist.Room, error) {
	query := `
		SELECT id, name, created_by, created_at
		FROM rooms
		WHERE id = ?
	`
	var room persist.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.CreatedBy,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persist.ErrRoomNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// UpsertParticipant records a join; a re-join clears left_at.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, p *persist.Participant) error {
	query := `
		INSERT INTO participants (id, room_id, name, joined_at, left_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(room_id, id) DO UPDATE SET joined_at = excluded.joined_at, left_at = NULL
	`
	if _, err := s.db.ExecContext(ctx, query, p.ID, p.RoomID, p.Name, p.JoinedAt); err != nil {
		return fmt.Errorf("upsert participant: %w", err)
	}
	return nil
}

// MarkParticipantLeft stamps the departure time.
func (s *SQLiteStore) MarkParticipantLeft(ctx context.Context, roomID, participantID string, at time.Time) error {
	query := `
		UPDATE participants SET left_at = ?
		WHERE room_id = ? AND id = ? AND left_at IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, at, roomID, participantID); err != nil {
		return fmt.Errorf("mark participant left: %w", err)
	}
	return nil
}

// ListParticipants lists memberships for a room, active first.
func (s *SQLiteStore) ListParticipants(ctx context.Context, roomID string) ([]*persist.Participant, error) {
	query := `
		SELECT id, room_id, name, joined_at, left_at
		FROM participants
		WHERE room_id = ?
		ORDER BY left_at IS NOT NULL, joined_at
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []*persist.Participant
	for rows.Next() {
		var p persist.Participant
		var leftAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.RoomID, &p.Name, &p.JoinedAt, &leftAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if leftAt.Valid {
			t := leftAt.Time
			p.LeftAt = &t
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

// AppendCallStat appends a call summary row.
func (s *SQLiteStore) AppendCallStat(ctx context.Context, stat *persist.CallStat) error {
	query := `
		INSERT INTO call_stats (room_id, peak_participants, duration_seconds, ended_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, stat.RoomID, stat.PeakParticipants, int64(stat.Duration.Seconds()), stat.EndedAt); err != nil {
		return fmt.Errorf("append call stat: %w", err)
	}
	return nil
}
