package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// One row per controller run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			camera INTEGER NOT NULL,
			backend TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Applied volume levels, recorded when the level changes
		`CREATE TABLE IF NOT EXISTS volume_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			level INTEGER NOT NULL CHECK(level BETWEEN 0 AND 100),
			distance INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_volume_events_session_id ON volume_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_volume_events_created_at ON volume_events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
