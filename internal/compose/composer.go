// Package compose implements a guided email composition flow: collect
// recipient, subject, and context, draft the body with an LLM, then
// preview with send/regenerate/edit/cancel options.
package compose

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/inboxlens/inboxlens/internal/llm"
)

// State identifies where a draft is in the composition flow.
type State string

const (
	StateRecipient  State = "recipient"
	StateSubject    State = "subject"
	StateContext    State = "context"
	StatePreview    State = "preview"
	StateManualEdit State = "manual_edit"
)

// Draft is an in-progress outgoing email.
type Draft struct {
	ID      string
	To      string
	Subject string
	Body    string
	State   State

	// mu serializes Advance calls on this draft. Webhook providers retry
	// deliveries, so the same reply can arrive twice concurrently.
	mu sync.Mutex
}

// Composer drives the composition flow for concurrent conversations.
// The composer lock guards the draft map; each draft carries its own
// lock for the state transition itself.
type Composer struct {
	llm      llm.Client
	mailer   Mailer
	fromName string
	fromAddr string

	mu     sync.Mutex
	drafts map[string]*Draft
}

// New creates a Composer. fromName and fromAddr are used both for the
// generated signature and the SMTP envelope.
func New(client llm.Client, mailer Mailer, fromName, fromAddr string) *Composer {
	return &Composer{
		llm:      client,
		mailer:   mailer,
		fromName: fromName,
		fromAddr: fromAddr,
		drafts:   make(map[string]*Draft),
	}
}

// Start opens a new draft and returns the first prompt plus the draft id.
func (c *Composer) Start() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := &Draft{ID: uuid.NewString(), State: StateRecipient}
	c.drafts[d.ID] = d
	return "Who would you like to send the email to?", d.ID
}

// Advance feeds one user reply into the draft's state machine. It returns
// the next prompt and the draft id to carry forward; an empty id means the
// flow is finished (sent or cancelled).
func (c *Composer) Advance(ctx context.Context, draftID, input string) (string, string, error) {
	c.mu.Lock()
	d, ok := c.drafts[draftID]
	c.mu.Unlock()
	if !ok {
		return "", "", fmt.Errorf("unknown draft %s", draftID)
	}

	// Held across the whole transition, the blocking generate and send
	// calls included: a second delivery of the same reply waits rather
	// than racing on the draft fields.
	d.mu.Lock()
	defer d.mu.Unlock()

	input = strings.TrimSpace(input)

	switch d.State {
	case StateRecipient:
		if !strings.Contains(input, "@") || !strings.Contains(input, ".") {
			return "Please enter a valid email address.", draftID, nil
		}
		d.To = input
		d.State = StateSubject
		return "What's the subject of your email?", draftID, nil

	case StateSubject:
		d.Subject = input
		d.State = StateContext
		return "Any additional context or points to include?", draftID, nil

	case StateContext:
		body, err := c.generate(ctx, d.Subject, input)
		if err != nil {
			return "", draftID, err
		}
		d.Body = body
		d.State = StatePreview
		return c.preview(d), draftID, nil

	case StatePreview:
		switch input {
		case "1":
			if err := c.mailer.Send(ctx, d.To, d.Subject, d.Body); err != nil {
				return "", draftID, fmt.Errorf("send draft: %w", err)
			}
			c.drop(draftID)
			log.Printf("compose: sent draft to %s", d.To)
			return "Email sent.", "", nil
		case "2":
			d.State = StateContext
			return "Any additional context for regenerating the email?", draftID, nil
		case "3":
			d.State = StateManualEdit
			return "Enter your email content:", draftID, nil
		case "4":
			c.drop(draftID)
			return "Email composition cancelled.", "", nil
		default:
			return "Reply 1 to send, 2 to regenerate, 3 to edit, or 4 to cancel.", draftID, nil
		}

	case StateManualEdit:
		d.Body = input
		d.State = StatePreview
		return c.preview(d), draftID, nil
	}

	return "", draftID, fmt.Errorf("draft %s in unknown state %q", draftID, d.State)
}

// Cancel discards a draft if it exists.
func (c *Composer) Cancel(draftID string) {
	c.drop(draftID)
}

func (c *Composer) drop(draftID string) {
	c.mu.Lock()
	delete(c.drafts, draftID)
	c.mu.Unlock()
}

func (c *Composer) generate(ctx context.Context, subject, details string) (string, error) {
	resp, err := c.llm.Complete(ctx, llm.ComposePrompt(subject, details, c.fromName, c.fromAddr))
	if err != nil {
		return "", fmt.Errorf("generate draft: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func (c *Composer) preview(d *Draft) string {
	return fmt.Sprintf(`DRAFT EMAIL PREVIEW
====================
To: %s
Subject: %s

%s
====================

Options:
1. Send email
2. Regenerate email
3. Edit manually
4. Cancel`, d.To, d.Subject, d.Body)
}
