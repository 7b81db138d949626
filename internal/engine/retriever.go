package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/inboxlens/inboxlens/internal/retention"
	"github.com/inboxlens/inboxlens/internal/store"
)

// DefaultTopK is the number of chunks returned when the caller passes 0.
const DefaultTopK = 3

// decayScaleDays controls the exponential time decay: a chunk a week old
// scores about 37% of a brand-new one on the time axis.
const decayScaleDays = 7.0

const secondsPerDay = 86400.0

// Result is a scored retrieval candidate.
type Result struct {
	Chunk    store.ChunkRecord
	Distance float64
	Semantic float64
	Time     float64
	Score    float64
}

// Retrieve answers a query against the retained window. It returns up to
// topK chunk texts, best first, each prefixed with a provenance header. An
// empty window or no surviving candidates yields an empty slice, not an
// error.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	results, err := e.RetrieveScored(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = formatChunk(r.Chunk)
	}
	return out, nil
}

// RetrieveScored is Retrieve with score details, for diagnostics and the
// HTTP surface.
func (e *Engine) RetrieveScored(ctx context.Context, query string, topK int) ([]Result, error) {
	if e.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	now := time.Now()
	candidates, err := e.DB.ChunksForDates(retention.At(now).Dates())
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryVec, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	for _, c := range candidates {
		if len(c.Embedding) != len(queryVec) {
			return nil, fmt.Errorf("chunk %d has %d dimensions, query has %d",
				c.ID, len(c.Embedding), len(queryVec))
		}
	}

	// Oversample so the re-ranker has material beyond the final cut.
	nearest := nearestByL2(queryVec, candidates, 2*topK)

	intent := ClassifyIntent(query)
	timeWeight, semWeight := intent.Weights()

	var results []Result
	for _, n := range nearest {
		ageDays := (float64(now.Unix()) - n.rec.NewestTS) / secondsPerDay
		if intent.HorizonDays > 0 && ageDays > float64(intent.HorizonDays) {
			continue
		}
		sem := semanticScore(n.dist)
		ts := timeScore(ageDays)
		results = append(results, Result{
			Chunk:    n.rec.ChunkRecord,
			Distance: n.dist,
			Semantic: sem,
			Time:     ts,
			Score:    timeWeight*ts + semWeight*sem,
		})
	}

	// Stable sort keeps nearest-neighbor order on exact score ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// semanticScore maps an L2 distance into (0, 1], decreasing in distance.
func semanticScore(dist float64) float64 {
	return 1 / (1 + dist)
}

// timeScore applies exponential decay to chunk age in days.
func timeScore(ageDays float64) float64 {
	return math.Exp(-ageDays / decayScaleDays)
}

type neighbor struct {
	rec  store.ChunkWithVector
	dist float64
}

// nearestByL2 returns the k nearest candidates by Euclidean distance,
// closest first. Brute force over the candidate set; the window holds at
// most two days of chunks.
func nearestByL2(queryVec []float64, candidates []store.ChunkWithVector, k int) []neighbor {
	neighbors := make([]neighbor, 0, len(candidates))
	for _, c := range candidates {
		neighbors = append(neighbors, neighbor{rec: c, dist: l2Distance(queryVec, c.Embedding)})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].dist < neighbors[j].dist
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// formatChunk renders a chunk with its provenance header.
func formatChunk(c store.ChunkRecord) string {
	oldest := time.Unix(int64(c.OldestTS), 0).Format("Mon Jan 2 15:04")
	newest := time.Unix(int64(c.NewestTS), 0).Format("Mon Jan 2 15:04")
	noun := "documents"
	if c.DocCount == 1 {
		noun = "document"
	}
	return fmt.Sprintf("[chunk covering %d %s from %s to %s]\n%s",
		c.DocCount, noun, oldest, newest, c.Text)
}
