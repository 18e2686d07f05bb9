package store

import (
	"database/sql"
	"time"
)

// VolumeEvent is one applied volume level.
type VolumeEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Level     int       `json:"level"`
	Distance  int       `json:"distance"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository provides access to volume events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record inserts e and fills in its ID and CreatedAt.
func (r *EventRepository) Record(e *VolumeEvent) error {
	e.CreatedAt = time.Now().UTC()

	result, err := r.db.Exec(
		`INSERT INTO volume_events (session_id, level, distance, created_at) VALUES (?, ?, ?, ?)`,
		e.SessionID, e.Level, e.Distance, e.CreatedAt,
	)
	if err != nil {
		return err
	}

	e.ID, err = result.LastInsertId()
	return err
}

// History returns up to limit events, newest first.
func (r *EventRepository) History(limit int) ([]VolumeEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, level, distance, created_at
		 FROM volume_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []VolumeEvent{}
	for rows.Next() {
		var e VolumeEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Level, &e.Distance, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountBySession returns the number of events recorded in a session.
func (r *EventRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM volume_events WHERE session_id = ?`, sessionID,
	).Scan(&n)
	return n, err
}
