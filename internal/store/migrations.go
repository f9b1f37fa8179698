package store

// migration is a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create sessions and messages",
		SQL: `
			CREATE TABLE sessions (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				state       TEXT NOT NULL DEFAULT 'ACTIVE',
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_sessions_user ON sessions (user_id, state, updated_at);

			-- Insertion order within a session rides on the implicit rowid.
			CREATE TABLE messages (
				id          TEXT PRIMARY KEY,
				session_id  TEXT NOT NULL REFERENCES sessions(id),
				user_id     TEXT NOT NULL,
				role        TEXT NOT NULL,
				content     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_messages_session ON messages (session_id);
		`,
	},
}
