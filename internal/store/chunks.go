package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/inboxlens/inboxlens/internal/chunker"
	"github.com/inboxlens/inboxlens/internal/retention"
)

// ChunkRecord is a stored chunk row. The id is durable and monotonically
// increasing; metadata is keyed by it, never by insertion position.
type ChunkRecord struct {
	ID         int64
	Text       string
	BucketDate string
	NewestTS   float64
	OldestTS   float64
	DocCount   int
}

// ChunkWithVector pairs a chunk row with its embedding.
type ChunkWithVector struct {
	ChunkRecord
	Embedding []float64
}

// AddChunks appends chunks and their embeddings in a single transaction.
// vectors[i] must be the embedding of chunks[i]; mismatched lengths are an
// error and nothing is written. Bucket index rows are recorded only for
// chunks whose bucket date is inside the retention window at now, checked
// here independently of the caller.
func (db *DB) AddChunks(chunks []chunker.Chunk, vectors [][]float64, model string, now time.Time) ([]int64, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("add chunks: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add chunks: %w", err)
	}
	defer tx.Rollback()

	win := retention.At(now)
	nowMillis := now.UnixMilli()
	ids := make([]int64, 0, len(chunks))

	for i, c := range chunks {
		res, err := tx.Exec(`
			INSERT INTO chunks (chunk_text, bucket_date, newest_ts, oldest_ts, doc_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.Text, c.BucketDate, c.NewestTS, c.OldestTS, c.DocCount, nowMillis)
		if err != nil {
			return nil, fmt.Errorf("insert chunk: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("chunk id: %w", err)
		}

		if _, err := tx.Exec(`
			INSERT INTO chunk_vectors (chunk_id, embedding, model, dimensions, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, encodeVector(vectors[i]), model, len(vectors[i]), nowMillis); err != nil {
			return nil, fmt.Errorf("insert vector: %w", err)
		}

		if win.Contains(c.BucketDate) {
			if _, err := tx.Exec(`
				INSERT INTO bucket_index (bucket_date, chunk_id, doc_count, recorded_at)
				VALUES (?, ?, ?, ?)
			`, c.BucketDate, id, c.DocCount, nowMillis); err != nil {
				return nil, fmt.Errorf("insert bucket index: %w", err)
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add chunks: %w", err)
	}
	return ids, nil
}

// ChunksForDates returns chunk rows with embeddings for the given bucket
// dates, newest first. Dates with no chunks contribute nothing.
func (db *DB) ChunksForDates(dates []string) ([]ChunkWithVector, error) {
	if len(dates) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(dates)), ",")
	args := make([]any, len(dates))
	for i, d := range dates {
		args[i] = d
	}

	rows, err := db.Query(`
		SELECT c.id, c.chunk_text, c.bucket_date, c.newest_ts, c.oldest_ts, c.doc_count, v.embedding
		FROM chunks c
		JOIN chunk_vectors v ON v.chunk_id = c.id
		WHERE c.bucket_date IN (`+placeholders+`)
		ORDER BY c.newest_ts DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("chunks for dates: %w", err)
	}
	defer rows.Close()

	var records []ChunkWithVector
	for rows.Next() {
		var r ChunkWithVector
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Text, &r.BucketDate, &r.NewestTS, &r.OldestTS, &r.DocCount, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		r.Embedding = decodeVector(blob)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ChunkIDsForDate returns the bucket index entries for a date.
func (db *DB) ChunkIDsForDate(date string) ([]int64, error) {
	rows, err := db.Query(`
		SELECT chunk_id FROM bucket_index WHERE bucket_date = ? ORDER BY chunk_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("chunk ids for date: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountChunks returns the total number of stored chunks.
func (db *DB) CountChunks() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

// CountVectors returns the total number of stored embeddings. Always equal
// to CountChunks after any committed batch.
func (db *DB) CountVectors() (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM chunk_vectors").Scan(&n)
	return n, err
}

// ClearChunks removes every chunk, vector, and bucket index entry. This is
// the only eviction mechanism; it is invoked explicitly, never by age.
func (db *DB) ClearChunks() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	// chunk_vectors and bucket_index cascade from chunks.
	if _, err := tx.Exec("DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}
