package compose

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/inboxlens/inboxlens/internal/llm"
)

type mockMailer struct {
	to, subject, body string
	err               error
	sends             int
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sends++
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func testComposer(body string) (*Composer, *mockMailer) {
	mock := &llm.MockClient{Response: &llm.Response{Content: body, Provider: "mock"}}
	mailer := &mockMailer{}
	return New(mock, mailer, "Ada Example", "ada@example.com"), mailer
}

func TestComposeFullFlow(t *testing.T) {
	c, mailer := testComposer("Hi Bob,\n\nThe report is ready.\n\nBest,\nAda")
	ctx := context.Background()

	prompt, id := c.Start()
	if !strings.Contains(prompt, "send the email to") {
		t.Errorf("start prompt = %q", prompt)
	}

	reply, id, err := c.Advance(ctx, id, "bob@example.com")
	if err != nil {
		t.Fatalf("recipient step: %v", err)
	}
	if !strings.Contains(reply, "subject") {
		t.Errorf("subject prompt = %q", reply)
	}

	reply, id, err = c.Advance(ctx, id, "Weekly report")
	if err != nil {
		t.Fatalf("subject step: %v", err)
	}
	if !strings.Contains(reply, "context") {
		t.Errorf("context prompt = %q", reply)
	}

	reply, id, err = c.Advance(ctx, id, "mention the Q3 numbers")
	if err != nil {
		t.Fatalf("context step: %v", err)
	}
	if !strings.Contains(reply, "DRAFT EMAIL PREVIEW") {
		t.Errorf("expected preview, got %q", reply)
	}
	if !strings.Contains(reply, "To: bob@example.com") || !strings.Contains(reply, "Subject: Weekly report") {
		t.Errorf("preview missing headers: %q", reply)
	}

	reply, id, err = c.Advance(ctx, id, "1")
	if err != nil {
		t.Fatalf("send step: %v", err)
	}
	if id != "" {
		t.Error("flow should be finished after send")
	}
	if mailer.sends != 1 || mailer.to != "bob@example.com" || mailer.subject != "Weekly report" {
		t.Errorf("mailer = %+v", mailer)
	}
	if !strings.Contains(mailer.body, "report is ready") {
		t.Errorf("body = %q", mailer.body)
	}
}

func TestComposeInvalidRecipient(t *testing.T) {
	c, _ := testComposer("body")
	_, id := c.Start()

	reply, id2, err := c.Advance(context.Background(), id, "not-an-address")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if id2 != id {
		t.Error("draft should stay active after invalid recipient")
	}
	if !strings.Contains(reply, "valid email address") {
		t.Errorf("reply = %q", reply)
	}
}

func TestComposeRegenerate(t *testing.T) {
	c, _ := testComposer("generated body")
	ctx := context.Background()

	_, id := c.Start()
	_, id, _ = c.Advance(ctx, id, "bob@example.com")
	_, id, _ = c.Advance(ctx, id, "Subject")
	_, id, _ = c.Advance(ctx, id, "context")

	reply, id, err := c.Advance(ctx, id, "2")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if !strings.Contains(reply, "regenerating") {
		t.Errorf("reply = %q", reply)
	}

	reply, _, err = c.Advance(ctx, id, "new context")
	if err != nil {
		t.Fatalf("re-context: %v", err)
	}
	if !strings.Contains(reply, "DRAFT EMAIL PREVIEW") {
		t.Errorf("expected preview after regenerate, got %q", reply)
	}
}

func TestComposeManualEdit(t *testing.T) {
	c, mailer := testComposer("generated body")
	ctx := context.Background()

	_, id := c.Start()
	_, id, _ = c.Advance(ctx, id, "bob@example.com")
	_, id, _ = c.Advance(ctx, id, "Subject")
	_, id, _ = c.Advance(ctx, id, "context")
	_, id, _ = c.Advance(ctx, id, "3")

	reply, id, err := c.Advance(ctx, id, "my hand-written body")
	if err != nil {
		t.Fatalf("manual edit: %v", err)
	}
	if !strings.Contains(reply, "my hand-written body") {
		t.Errorf("preview should show edited body: %q", reply)
	}

	_, _, err = c.Advance(ctx, id, "1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if mailer.body != "my hand-written body" {
		t.Errorf("sent body = %q", mailer.body)
	}
}

func TestComposeCancel(t *testing.T) {
	c, mailer := testComposer("body")
	ctx := context.Background()

	_, id := c.Start()
	_, id, _ = c.Advance(ctx, id, "bob@example.com")
	_, id, _ = c.Advance(ctx, id, "Subject")
	_, id, _ = c.Advance(ctx, id, "context")

	reply, id, err := c.Advance(ctx, id, "4")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if id != "" {
		t.Error("flow should be finished after cancel")
	}
	if !strings.Contains(reply, "cancelled") {
		t.Errorf("reply = %q", reply)
	}
	if mailer.sends != 0 {
		t.Error("cancel must not send")
	}

	// The draft is gone.
	if _, _, err := c.Advance(ctx, "stale-id", "1"); err == nil {
		t.Error("expected error for unknown draft")
	}
}

func TestComposeSendFailureKeepsDraft(t *testing.T) {
	mock := &llm.MockClient{Response: &llm.Response{Content: "body"}}
	mailer := &mockMailer{err: errors.New("smtp down")}
	c := New(mock, mailer, "Ada Example", "ada@example.com")
	ctx := context.Background()

	_, id := c.Start()
	_, id, _ = c.Advance(ctx, id, "bob@example.com")
	_, id, _ = c.Advance(ctx, id, "Subject")
	_, id, _ = c.Advance(ctx, id, "context")

	_, id2, err := c.Advance(ctx, id, "1")
	if err == nil {
		t.Fatal("expected send error")
	}
	if id2 != id {
		t.Error("draft should survive a failed send for retry")
	}
}

func TestComposeConcurrentAdvanceSerialized(t *testing.T) {
	c, mailer := testComposer("generated body")
	ctx := context.Background()

	_, id := c.Start()
	_, id, _ = c.Advance(ctx, id, "bob@example.com")

	// Duplicate delivery of the same reply: both goroutines feed the
	// subject-step input at once. Serialized, one lands as the subject
	// and the other as context, leaving the draft in preview.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.Advance(ctx, id, "Weekly report"); err != nil {
				t.Errorf("concurrent Advance: %v", err)
			}
		}()
	}
	wg.Wait()

	reply, id, err := c.Advance(ctx, id, "1")
	if err != nil {
		t.Fatalf("send after concurrent advances: %v", err)
	}
	if id != "" || !strings.Contains(reply, "sent") {
		t.Errorf("reply = %q, id = %q", reply, id)
	}
	if mailer.sends != 1 || mailer.subject != "Weekly report" {
		t.Errorf("mailer = %+v", mailer)
	}
}

func TestComposeLLMErrorPropagates(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("model offline")}
	c := New(mock, &mockMailer{}, "Ada Example", "ada@example.com")
	ctx := context.Background()

	_, id := c.Start()
	_, id, _ = c.Advance(ctx, id, "bob@example.com")
	_, id, _ = c.Advance(ctx, id, "Subject")

	_, id2, err := c.Advance(ctx, id, "context")
	if err == nil {
		t.Fatal("expected error from LLM failure")
	}
	if id2 != id {
		t.Error("draft should stay active after LLM failure")
	}
}
