package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Named tuning profiles
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			gaze_smoothing REAL CHECK(gaze_smoothing IS NULL OR (gaze_smoothing > 0 AND gaze_smoothing <= 1)),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Per-bone overrides for a profile
		`CREATE TABLE IF NOT EXISTS profile_bones (
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			bone TEXT NOT NULL,
			dampener REAL NOT NULL CHECK(dampener >= 0),
			lerp REAL NOT NULL CHECK(lerp >= 0 AND lerp <= 1),
			PRIMARY KEY (profile_id, bone)
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profile_bones_profile_id ON profile_bones(profile_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
