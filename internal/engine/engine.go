// Package engine implements the time-aware retrieval core: ingestion of
// email documents into embedded chunks, and query-time ranking that blends
// semantic similarity with time-decayed recency.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/inboxlens/inboxlens/internal/chunker"
	"github.com/inboxlens/inboxlens/internal/retention"
	"github.com/inboxlens/inboxlens/internal/store"
)

// Engine orchestrates chunking, embedding, storage, and retrieval.
type Engine struct {
	DB       *store.DB
	Embedder Embedder

	chunkSize int

	// mu serializes mutations. It is held for the whole of an ingest
	// (embedding included) so a concurrent reader never observes the
	// collections out of lockstep.
	mu sync.Mutex
}

// New creates an Engine over the given store and embedder.
func New(db *store.DB, embedder Embedder) *Engine {
	return &Engine{
		DB:        db,
		Embedder:  embedder,
		chunkSize: chunker.DefaultChunkSize,
	}
}

// SetChunkSize overrides the target chunk size in characters.
func (e *Engine) SetChunkSize(n int) {
	if n > 0 {
		e.chunkSize = n
	}
}

// Ingest filters documents through the retention window, groups them into
// chunks, embeds all chunk texts in one batch, and appends the results
// atomically. Returns the number of documents stored. An embedding failure
// aborts the whole batch with the store untouched.
func (e *Engine) Ingest(ctx context.Context, docs []chunker.Document) (int, error) {
	if e.Embedder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	chunks := chunker.Build(docs, e.chunkSize, now)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := e.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	for i, v := range vectors {
		if len(v) != e.Embedder.Dimensions() {
			return 0, fmt.Errorf("embed chunks: vector %d has %d dimensions, want %d",
				i, len(v), e.Embedder.Dimensions())
		}
	}

	if _, err := e.DB.AddChunks(chunks, vectors, e.Embedder.Model(), now); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	stored := 0
	for _, c := range chunks {
		stored += c.DocCount
	}
	log.Printf("ingest: stored %d documents in %d chunks", stored, len(chunks))
	return stored, nil
}

// Clear drops the whole store. This is the only eviction mechanism.
func (e *Engine) Clear() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.DB.ClearChunks()
}

// Status recomputes retained document counts from the stored set.
func (e *Engine) Status() (store.Status, error) {
	return e.DB.StatusCounts(retention.At(time.Now()))
}
