package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/inboxlens/inboxlens/internal/llm"
)

// emptyTwiML acknowledges a Twilio webhook without an inline reply; the
// actual response goes out through the REST API so it can be split and
// rate limited.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// handleWebhook processes an inbound Twilio message. Replies are sent
// asynchronously of the TwiML acknowledgement via the configured sender.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	body := strings.TrimSpace(r.FormValue("Body"))
	sender := r.FormValue("From")

	w.Header().Set("Content-Type", "text/xml")
	if sender == "" || body == "" {
		log.Printf("webhook: missing sender or body")
		fmt.Fprint(w, emptyTwiML)
		return
	}
	log.Printf("webhook: message from %s", sender)

	reply := s.dispatch(r.Context(), sender, body)
	if reply != "" && s.sender != nil {
		if err := s.sender.Send(r.Context(), sender, reply); err != nil {
			log.Printf("webhook: send to %s: %v", sender, err)
		}
	}

	fmt.Fprint(w, emptyTwiML)
}

// dispatch routes one inbound message: composition flow first, then
// keyword commands, then the retrieval-backed question path.
func (s *Server) dispatch(ctx context.Context, sender, body string) string {
	command := strings.ToLower(body)

	s.mu.Lock()
	draftID, inCompose := s.composing[sender]
	s.mu.Unlock()

	if inCompose {
		return s.advanceCompose(ctx, sender, draftID, body)
	}

	switch command {
	case "refresh":
		if s.source == nil {
			return "No mail source configured."
		}
		stored, err := s.refresh(ctx)
		if err != nil {
			log.Printf("webhook: refresh: %v", err)
			return "Refresh failed: " + err.Error()
		}
		if stored == 0 {
			return "No recent emails found to refresh."
		}
		return fmt.Sprintf("Database refreshed. Loaded %d recent emails.", stored)

	case "clear":
		if err := s.engine.Clear(); err != nil {
			log.Printf("webhook: clear: %v", err)
			return "Clear failed: " + err.Error()
		}
		s.mu.Lock()
		delete(s.conversations, sender)
		s.mu.Unlock()
		return "Database and conversation history cleared."

	case "status":
		st, err := s.engine.Status()
		if err != nil {
			log.Printf("webhook: status: %v", err)
			return "Status failed: " + err.Error()
		}
		return st.String()

	case "compose":
		if s.composer == nil {
			return "Composition is not configured."
		}
		prompt, draftID := s.composer.Start()
		s.mu.Lock()
		s.composing[sender] = draftID
		s.mu.Unlock()
		return prompt
	}

	if s.llm == nil {
		return "No LLM configured; try 'status', 'refresh', or 'clear'."
	}

	s.mu.Lock()
	history := s.conversations[sender]
	s.mu.Unlock()

	answer, err := s.answer(ctx, history, body)
	if err != nil {
		log.Printf("webhook: answer: %v", err)
		return "Sorry, I could not process that question."
	}

	s.appendHistory(sender, body, answer)

	return answer
}

func (s *Server) advanceCompose(ctx context.Context, sender, draftID, body string) string {
	reply, nextID, err := s.composer.Advance(ctx, draftID, body)

	s.mu.Lock()
	if nextID == "" {
		delete(s.composing, sender)
	} else {
		s.composing[sender] = nextID
	}
	s.mu.Unlock()

	// The draft stays active on failure so the sender can retry.
	if err != nil {
		log.Printf("webhook: compose for %s: %v", sender, err)
		return "Composition step failed: " + err.Error()
	}
	return reply
}

// appendHistory records one Q/A exchange. It appends to the map's current
// value rather than a snapshot, so concurrent questions from the same
// sender never drop each other's exchange.
func (s *Server) appendHistory(sender, question, answer string) {
	s.mu.Lock()
	s.conversations[sender] = trimHistory(s.conversations[sender] +
		"\nUser: " + question + "\nAssistant: " + answer)
	s.mu.Unlock()
}

// refresh drops the current window and reloads it from the mail source.
func (s *Server) refresh(ctx context.Context) (int, error) {
	docs, err := s.source.FetchRecent(ctx, s.maxFetch)
	if err != nil {
		return 0, fmt.Errorf("fetch mail: %w", err)
	}
	if err := s.engine.Clear(); err != nil {
		return 0, fmt.Errorf("clear store: %w", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	return s.engine.Ingest(ctx, docs)
}

// answer runs retrieval for the question and asks the LLM over the result.
func (s *Server) answer(ctx context.Context, history, question string) (string, error) {
	chunks, err := s.engine.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve: %w", err)
	}
	if len(chunks) == 0 {
		return "No relevant emails found in the current two-day window. Send 'refresh' to reload your inbox.", nil
	}

	resp, err := s.llm.Complete(ctx, llm.AnswerPrompt(history, chunks, question))
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// trimHistory keeps the newest tail of the rolling conversation history.
func trimHistory(h string) string {
	if len(h) <= historyLimit {
		return h
	}
	h = h[len(h)-historyLimit:]
	// Drop a partial first line left by the byte cut.
	if i := strings.IndexByte(h, '\n'); i >= 0 {
		h = h[i+1:]
	}
	return h
}
