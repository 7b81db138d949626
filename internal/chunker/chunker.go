// Package chunker groups raw email documents into retrieval units.
//
// Documents are filtered through the retention window, grouped by calendar
// date, and concatenated newest-first into chunks bounded by a target
// character size. Every retained document lands in exactly one chunk.
package chunker

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/inboxlens/inboxlens/internal/retention"
)

// DefaultChunkSize is the target chunk size in characters. It keeps the
// text handed to the embedder and the downstream model within practical
// limits; it does not split individual documents.
const DefaultChunkSize = 3000

// Document is a single raw email message as supplied by the mail source.
type Document struct {
	Sender    string  `json:"sender"`
	Subject   string  `json:"subject"`
	Body      string  `json:"body"`
	Timestamp float64 `json:"timestamp"` // unix seconds
}

// Chunk is the atomic retrieval unit: one or more same-bucket documents
// rendered into a single text. The store assigns the durable id.
type Chunk struct {
	Text       string
	BucketDate string // retention.DateFormat
	NewestTS   float64
	OldestTS   float64
	DocCount   int
}

// BucketDate returns the calendar date of a unix timestamp.
func BucketDate(ts float64) string {
	return time.Unix(int64(ts), 0).Format(retention.DateFormat)
}

// Render produces the fixed per-document template used inside chunk text.
func Render(d Document) string {
	t := time.Unix(int64(d.Timestamp), 0)
	return fmt.Sprintf("Subject: %s\nFrom: %s\nDate: %s\nBody:\n%s\n---\n",
		d.Subject, d.Sender, t.Format(time.RFC1123), d.Body)
}

// Build filters docs through the retention window at now, groups survivors
// by bucket date (newest bucket first, newest document first within a
// bucket) and emits size-bounded chunks. Documents with a missing or
// unparsable timestamp are treated as arriving now rather than dropped.
func Build(docs []Document, targetSize int, now time.Time) []Chunk {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}

	buckets := make(map[string][]Document)
	for _, d := range docs {
		if d.Timestamp <= 0 {
			d.Timestamp = float64(now.Unix())
		}
		if !retention.IsRetained(d.Timestamp, now) {
			continue
		}
		date := BucketDate(d.Timestamp)
		buckets[date] = append(buckets[date], d)
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	var chunks []Chunk
	for _, date := range dates {
		group := buckets[date]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Timestamp > group[j].Timestamp
		})
		chunks = append(chunks, packBucket(date, group, targetSize)...)
	}
	return chunks
}

// packBucket concatenates rendered documents into chunks of at most
// targetSize characters. A single document longer than the target still
// gets a chunk of its own.
func packBucket(date string, docs []Document, targetSize int) []Chunk {
	var chunks []Chunk
	var text strings.Builder
	var newest, oldest float64
	count := 0

	flush := func() {
		if count == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:       text.String(),
			BucketDate: date,
			NewestTS:   newest,
			OldestTS:   oldest,
			DocCount:   count,
		})
		text.Reset()
		count = 0
	}

	for _, d := range docs {
		rendered := Render(d)
		if count > 0 && text.Len()+len(rendered) > targetSize {
			flush()
		}
		text.WriteString(rendered)
		if count == 0 {
			newest, oldest = d.Timestamp, d.Timestamp
		} else {
			if d.Timestamp > newest {
				newest = d.Timestamp
			}
			if d.Timestamp < oldest {
				oldest = d.Timestamp
			}
		}
		count++
	}
	flush()
	return chunks
}
