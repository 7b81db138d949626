// Package server exposes the retrieval engine over HTTP: a JSON API for
// the CLI and a Twilio webhook for the WhatsApp conversation loop.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inboxlens/inboxlens/internal/compose"
	"github.com/inboxlens/inboxlens/internal/engine"
	"github.com/inboxlens/inboxlens/internal/llm"
	"github.com/inboxlens/inboxlens/internal/mailbox"
)

// historyLimit caps per-sender conversation history carried into prompts.
const historyLimit = 4000

// Deps holds the optional collaborators of the Server. Any of them may be
// nil; the affected routes then degrade (503) instead of failing at startup.
type Deps struct {
	LLM      llm.Client
	Composer *compose.Composer
	Sender   MessageSender
	Source   mailbox.Source
	MaxFetch int
	TopK     int
}

// Server is the inboxlens HTTP server.
type Server struct {
	engine   *engine.Engine
	llm      llm.Client
	composer *compose.Composer
	sender   MessageSender
	source   mailbox.Source
	maxFetch int
	topK     int

	router  chi.Router
	version string
	started time.Time

	mu            sync.Mutex
	conversations map[string]string // sender -> rolling Q/A history
	composing     map[string]string // sender -> active draft id
}

// New creates a new Server around the engine.
func New(eng *engine.Engine, deps Deps, version string) *Server {
	s := &Server{
		engine:        eng,
		llm:           deps.LLM,
		composer:      deps.Composer,
		sender:        deps.Sender,
		source:        deps.Source,
		maxFetch:      deps.MaxFetch,
		topK:          deps.TopK,
		version:       version,
		started:       time.Now(),
		conversations: make(map[string]string),
		composing:     make(map[string]string),
	}
	if s.maxFetch <= 0 {
		s.maxFetch = 20
	}
	if s.topK <= 0 {
		s.topK = engine.DefaultTopK
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
