// Package mailbox fetches recent messages from an IMAP inbox and turns
// them into documents ready for ingestion.
package mailbox

import (
	"context"

	"github.com/inboxlens/inboxlens/internal/chunker"
)

// Source produces recent mail as ingestable documents.
type Source interface {
	FetchRecent(ctx context.Context, max int) ([]chunker.Document, error)
}

// MockSource is a test double for the Source interface.
type MockSource struct {
	Docs  []chunker.Document
	Err   error
	Calls int
}

func (m *MockSource) FetchRecent(ctx context.Context, max int) ([]chunker.Document, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if max > 0 && len(m.Docs) > max {
		return m.Docs[len(m.Docs)-max:], nil
	}
	return m.Docs, nil
}
