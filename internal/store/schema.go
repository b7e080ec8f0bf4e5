package store

const schemaVersion = "1"

// Table bootstrap, run in table-then-index order. This store has exactly
// one schema generation (no migrations package is needed yet); the
// meta.schema_version gate exists so a future version bump has somewhere
// to hook without re-running DDL.
var coreTables = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS memories (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		project       TEXT NOT NULL,
		session_id    TEXT NOT NULL,
		category      TEXT NOT NULL,
		content       TEXT NOT NULL,
		keywords      TEXT NOT NULL DEFAULT '',
		score         REAL NOT NULL,
		created_at    DATETIME NOT NULL,
		last_accessed DATETIME NOT NULL,
		access_count  INTEGER NOT NULL DEFAULT 0,
		source_hash   TEXT,
		metadata      TEXT,
		UNIQUE(source_hash)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_memories_project ON memories(project);`,
	`CREATE INDEX IF NOT EXISTS idx_memories_project_score ON memories(project, score DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_memories_source_hash ON memories(source_hash);`,

	`CREATE TABLE IF NOT EXISTS checkpoints (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id       TEXT NOT NULL,
		transcript_path  TEXT NOT NULL,
		last_line_number INTEGER NOT NULL,
		created_at       DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id);`,

	`CREATE TABLE IF NOT EXISTS sessions (
		session_id       TEXT PRIMARY KEY,
		project          TEXT NOT NULL,
		started_at       DATETIME NOT NULL,
		ended_at         DATETIME,
		memories_created INTEGER NOT NULL DEFAULT 0,
		compactions      INTEGER NOT NULL DEFAULT 0
	);`,

	// External-content FTS5 index: memories_fts mirrors memories(content,
	// keywords) keyed by rowid == memories.id. Triggers below keep the two
	// in lockstep on insert/update/delete.
	`CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		content, keywords,
		content='memories', content_rowid='id'
	);`,

	`CREATE TRIGGER IF NOT EXISTS memories_fts_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, content, keywords) VALUES (new.id, new.content, new.keywords);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS memories_fts_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content, keywords) VALUES ('delete', old.id, old.content, old.keywords);
	END;`,
	`CREATE TRIGGER IF NOT EXISTS memories_fts_au AFTER UPDATE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content, keywords) VALUES ('delete', old.id, old.content, old.keywords);
		INSERT INTO memories_fts(rowid, content, keywords) VALUES (new.id, new.content, new.keywords);
	END;`,
}
