package mailbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/inboxlens/inboxlens/internal/chunker"
)

// IMAPSource fetches recent messages from an IMAP server over TLS.
type IMAPSource struct {
	Addr     string // host:port, e.g. imap.gmail.com:993
	User     string
	Password string
}

// NewIMAPSource creates an IMAP source for the given server and credentials.
func NewIMAPSource(addr, user, password string) *IMAPSource {
	return &IMAPSource{Addr: addr, User: user, Password: password}
}

// FetchRecent connects, logs in, and fetches the last max messages from
// INBOX. Messages that cannot be parsed are skipped, not fatal.
func (s *IMAPSource) FetchRecent(ctx context.Context, max int) ([]chunker.Document, error) {
	if max <= 0 {
		max = 20
	}

	c, err := client.DialTLS(s.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial imap %s: %w", s.Addr, err)
	}
	defer c.Logout()

	if err := c.Login(s.User, s.Password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	mbox, err := c.Select("INBOX", true)
	if err != nil {
		return nil, fmt.Errorf("select inbox: %w", err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(max) {
		from = mbox.Messages - uint32(max) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, max)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var docs []chunker.Document
	for msg := range messages {
		doc, err := documentFromMessage(msg, section)
		if err != nil {
			log.Printf("mailbox: skipping message: %v", err)
			continue
		}
		docs = append(docs, doc)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("imap fetch: %w", err)
	}

	log.Printf("mailbox: fetched %d messages from %s", len(docs), s.Addr)
	return docs, nil
}

func documentFromMessage(msg *imap.Message, section *imap.BodySectionName) (chunker.Document, error) {
	var doc chunker.Document

	if msg.Envelope != nil {
		doc.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			doc.Sender = msg.Envelope.From[0].Address()
		}
		if !msg.Envelope.Date.IsZero() {
			doc.Timestamp = float64(msg.Envelope.Date.Unix())
		}
	}
	if doc.Timestamp == 0 {
		doc.Timestamp = float64(time.Now().Unix())
	}

	r := msg.GetBody(section)
	if r == nil {
		return doc, fmt.Errorf("message has no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return doc, fmt.Errorf("parse message: %w", err)
	}

	var body strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return doc, fmt.Errorf("read part: %w", err)
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ctype, _, _ := header.ContentType()
		if ctype != "text/plain" {
			continue
		}
		text, err := io.ReadAll(part.Body)
		if err != nil {
			return doc, fmt.Errorf("read body: %w", err)
		}
		body.Write(text)
	}

	doc.Body = CleanBody(body.String())
	return doc, nil
}
