package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/inboxlens/inboxlens/internal/chunker"
)

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Status{Today: 3, Yesterday: 2, Documents: 5, Chunks: 2, Summary: "today: 3, yesterday: 2 (5 emails in 2 chunks)"})
	}))
	defer srv.Close()

	st, err := NewClientURL(srv.URL).Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Documents != 5 || st.Today != 3 {
		t.Errorf("status = %+v", st)
	}
}

func TestClientAskEscapesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "what's new & urgent?" {
			t.Errorf("q = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"answer": "nothing urgent"})
	}))
	defer srv.Close()

	answer, err := NewClientURL(srv.URL).Ask("what's new & urgent?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "nothing urgent" {
		t.Errorf("answer = %q", answer)
	}
}

func TestClientIngest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Documents []chunker.Document `json:"documents"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Documents) != 1 || req.Documents[0].Subject != "report" {
			t.Errorf("documents = %+v", req.Documents)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]int{"stored": 1})
	}))
	defer srv.Close()

	stored, err := NewClientURL(srv.URL).Ingest([]chunker.Document{
		{Sender: "a@example.com", Subject: "report", Body: "text", Timestamp: float64(time.Now().Unix())},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stored != 1 {
		t.Errorf("stored = %d, want 1", stored)
	}
}

func TestClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClientURL(srv.URL).Status(); err == nil {
		t.Error("expected error for 500 response")
	}
	if err := NewClientURL(srv.URL).Clear(); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestClientHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if !NewClientURL(srv.URL).Healthy() {
		t.Error("Healthy() = false against a live server")
	}
	srv.Close()
	if NewClientURL(srv.URL).Healthy() {
		t.Error("Healthy() = true against a closed server")
	}
}
