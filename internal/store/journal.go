package store

import (
	"fmt"
	"sync"
)

// Journal records the levels applied during one session, skipping repeats.
type Journal struct {
	store   *Store
	session *Session
	last    int
	mu      sync.Mutex
}

// Begin starts a session for the given camera and volume backend.
func (s *Store) Begin(camera int, backend string) (*Journal, error) {
	sess, err := s.Sessions().Start(camera, backend)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &Journal{store: s, session: sess, last: -1}, nil
}

// Session returns the journal's session.
func (j *Journal) Session() *Session { return j.session }

// Record stores level unless it equals the previously recorded one.
func (j *Journal) Record(level, distance int) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if level == j.last {
		return nil
	}
	e := &VolumeEvent{SessionID: j.session.ID, Level: level, Distance: distance}
	if err := j.store.Events().Record(e); err != nil {
		return fmt.Errorf("record volume %d: %w", level, err)
	}
	j.last = level
	return nil
}

// Close ends the session. The store stays open.
func (j *Journal) Close() error {
	return j.store.Sessions().End(j.session.ID)
}
