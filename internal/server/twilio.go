package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// MessageSender delivers outbound messages to a conversation participant.
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioSender sends WhatsApp messages through the Twilio REST API.
// Long bodies are split to stay under the per-message limit, and sends
// are rate limited to stay inside Twilio's sandbox throughput.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	From       string // whatsapp:+14155238886

	client  *http.Client
	limiter *rate.Limiter
}

// NewTwilioSender creates a TwilioSender with a 1 msg/sec rate limit.
func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	return &TwilioSender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Send posts each piece of body to the Twilio Messages endpoint.
func (t *TwilioSender) Send(ctx context.Context, to, body string) error {
	for _, part := range SplitMessage(body, maxMessageLen) {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := t.sendOne(ctx, to, part); err != nil {
			return err
		}
	}
	return nil
}

func (t *TwilioSender) sendOne(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", t.AccountSID)

	form := url.Values{}
	form.Set("From", t.From)
	form.Set("To", to)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.AccountSID, t.AuthToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio api status %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// MockSender is a test double for MessageSender.
type MockSender struct {
	Messages []string
	To       []string
	Err      error
}

func (m *MockSender) Send(ctx context.Context, to, body string) error {
	m.To = append(m.To, to)
	m.Messages = append(m.Messages, body)
	return m.Err
}
