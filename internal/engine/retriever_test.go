package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/inboxlens/inboxlens/internal/chunker"
)

func TestRetrieveRanksBySimilarity(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()

	docs := []chunker.Document{
		testDoc("database migration plan", "postgres schema migration rollout plan for the billing database", now.Add(-10*time.Minute)),
		testDoc("team lunch", "pizza order for friday team lunch in the office kitchen", now.Add(-12*time.Minute)),
	}
	if _, err := e.Ingest(ctx, docs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := e.Retrieve(ctx, "postgres schema migration for billing", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !strings.Contains(results[0], "database migration plan") {
		t.Errorf("top result should be the migration email, got:\n%s", results[0])
	}
}

func TestRetrieveRecencyWinsOnEqualContent(t *testing.T) {
	// Scenario: two chunks with near-identical content, one fresh and one
	// ~20 hours old; a recency query must rank the fresh one first.
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()
	body := strings.Repeat("deployment status update for the payments service rollout ", 5)

	older := now.Add(-20 * time.Hour)
	if _, err := e.Ingest(ctx, []chunker.Document{testDoc("update marker-old", body, older)}); err != nil {
		t.Fatalf("Ingest old: %v", err)
	}
	if _, err := e.Ingest(ctx, []chunker.Document{testDoc("update marker-new", body, now.Add(-10*time.Minute))}); err != nil {
		t.Fatalf("Ingest new: %v", err)
	}

	results, err := e.Retrieve(ctx, "latest updates on the payments rollout", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if !strings.Contains(results[0], "marker-new") {
		t.Errorf("fresh chunk should rank first for a recency query, got:\n%s", results[0])
	}
}

func TestRetrieveHorizonFilter(t *testing.T) {
	// "today" maps to a 1-day horizon: a chunk older than a day is
	// dropped outright even though it is still inside the window.
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()
	yesterday := now.Add(-30 * time.Hour)
	if chunker.BucketDate(float64(yesterday.Unix())) == chunker.BucketDate(float64(now.Unix())) {
		t.Skip("30 hours ago falls on today's date at this wall-clock time")
	}

	docs := []chunker.Document{
		testDoc("fresh report", "quarterly metrics report for the platform team", now.Add(-time.Hour)),
		testDoc("old report", "quarterly metrics report for the platform team", yesterday),
	}
	if _, err := e.Ingest(ctx, docs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := e.Retrieve(ctx, "metrics report from today", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for _, r := range results {
		if strings.Contains(r, "old report") {
			t.Errorf("chunk beyond the 1-day horizon leaked into results:\n%s", r)
		}
	}
	if len(results) == 0 {
		t.Error("the fresh chunk should survive the horizon filter")
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	e := testEngine(t)
	results, err := e.Retrieve(context.Background(), "anything at all", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if results != nil {
		t.Errorf("got %v, want nil for empty store", results)
	}
}

func TestRetrieveDefaultTopK(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()

	var docs []chunker.Document
	subjects := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	for i, s := range subjects {
		// Oversized bodies force one chunk per document.
		docs = append(docs, testDoc(s, strings.Repeat(s+" report content ", 200), now.Add(-time.Duration(i)*time.Minute)))
	}
	if _, err := e.Ingest(ctx, docs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := e.Retrieve(ctx, "report content", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != DefaultTopK {
		t.Errorf("got %d results with topK=0, want %d", len(results), DefaultTopK)
	}
}

func TestProvenanceHeader(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()

	if _, err := e.Ingest(ctx, []chunker.Document{testDoc("solo", "a single email body", time.Now())}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := e.Retrieve(ctx, "single email", 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if !strings.HasPrefix(results[0], "[chunk covering 1 document from ") {
		t.Errorf("missing provenance header:\n%s", results[0])
	}
}

func TestMonotonicRecencyBias(t *testing.T) {
	// Equal semantic distance, different ages: with recency weights the
	// newer chunk must score at least as high.
	tw, sw := Intent{Kind: RecencyBias, HorizonDays: 2}.Weights()
	dist := 0.4
	newer := tw*timeScore(0.01) + sw*semanticScore(dist)
	older := tw*timeScore(0.8) + sw*semanticScore(dist)
	if newer < older {
		t.Errorf("newer score %f < older score %f", newer, older)
	}
}

func TestSemanticScoreBounds(t *testing.T) {
	if got := semanticScore(0); got != 1 {
		t.Errorf("semanticScore(0) = %f, want 1", got)
	}
	if got := semanticScore(9); got <= 0 || got >= 1 {
		t.Errorf("semanticScore(9) = %f, want in (0, 1)", got)
	}
	if semanticScore(1) <= semanticScore(2) {
		t.Error("semanticScore must decrease with distance")
	}
}

func TestTimeScoreDecay(t *testing.T) {
	if got := timeScore(0); got != 1 {
		t.Errorf("timeScore(0) = %f, want 1", got)
	}
	if timeScore(1) <= timeScore(2) {
		t.Error("timeScore must decrease with age")
	}
}

func TestNearestByL2(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()

	docs := []chunker.Document{
		testDoc("kubernetes upgrade", strings.Repeat("cluster node pool upgrade to kubernetes ", 100), now),
		testDoc("holiday party", strings.Repeat("annual holiday party venue and catering ", 100), now),
		testDoc("cluster alerts", strings.Repeat("kubernetes cluster alert noise reduction ", 100), now),
	}
	if _, err := e.Ingest(ctx, docs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := e.Retrieve(ctx, "kubernetes cluster", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, r := range results {
		if strings.Contains(r, "holiday party") {
			t.Errorf("unrelated chunk ranked in top 2:\n%s", r)
		}
	}
}
