package store

import (
	"fmt"

	"github.com/inboxlens/inboxlens/internal/retention"
)

// Status holds per-bucket document counts for the current retention
// window. Recomputed from the stored set on every call, so it always
// agrees with what retrieval can see.
type Status struct {
	TodayDocs     int
	YesterdayDocs int
	TotalDocs     int
	TotalChunks   int
}

func (s Status) String() string {
	return fmt.Sprintf("today: %d, yesterday: %d (%d emails in %d chunks)",
		s.TodayDocs, s.YesterdayDocs, s.TotalDocs, s.TotalChunks)
}

// StatusCounts derives retained document counts for the given window.
func (db *DB) StatusCounts(win retention.Window) (Status, error) {
	var s Status

	count := func(date string) (int, error) {
		var n int
		err := db.QueryRow(`
			SELECT COALESCE(SUM(doc_count), 0) FROM chunks WHERE bucket_date = ?
		`, date).Scan(&n)
		return n, err
	}

	var err error
	if s.TodayDocs, err = count(win.Today); err != nil {
		return Status{}, fmt.Errorf("count today: %w", err)
	}
	if s.YesterdayDocs, err = count(win.Yesterday); err != nil {
		return Status{}, fmt.Errorf("count yesterday: %w", err)
	}
	s.TotalDocs = s.TodayDocs + s.YesterdayDocs

	err = db.QueryRow(`
		SELECT COUNT(*) FROM chunks WHERE bucket_date IN (?, ?)
	`, win.Today, win.Yesterday).Scan(&s.TotalChunks)
	if err != nil {
		return Status{}, fmt.Errorf("count chunks: %w", err)
	}

	return s, nil
}
