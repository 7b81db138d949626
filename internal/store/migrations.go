package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "chunks: retrieval units with bucket metadata",
		SQL: `
CREATE TABLE chunks (
    id           INTEGER PRIMARY KEY,
    chunk_text   TEXT NOT NULL,
    bucket_date  TEXT NOT NULL,
    newest_ts    REAL NOT NULL,
    oldest_ts    REAL NOT NULL,
    doc_count    INTEGER NOT NULL CHECK (doc_count > 0),
    created_at   INTEGER NOT NULL
);

CREATE INDEX idx_chunks_bucket ON chunks(bucket_date);
CREATE INDEX idx_chunks_newest ON chunks(newest_ts DESC);
`,
	},
	{
		Version:     2,
		Description: "chunk_vectors: embedding per chunk",
		SQL: `
CREATE TABLE chunk_vectors (
    chunk_id   INTEGER PRIMARY KEY,
    embedding  BLOB NOT NULL,
    model      TEXT NOT NULL,
    dimensions INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (chunk_id) REFERENCES chunks(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     3,
		Description: "bucket_index: date to chunk lookup for accounting",
		SQL: `
CREATE TABLE bucket_index (
    bucket_date  TEXT NOT NULL,
    chunk_id     INTEGER NOT NULL,
    doc_count    INTEGER NOT NULL,
    recorded_at  INTEGER NOT NULL,
    PRIMARY KEY (bucket_date, chunk_id),
    FOREIGN KEY (chunk_id) REFERENCES chunks(id) ON DELETE CASCADE
);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
