// Package gateway delivers messages through an external HTTP messaging
// gateway. One sender per channel, each with its own endpoint.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// SMSSender posts outbound text messages to an SMS gateway endpoint.
type SMSSender struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

func NewSMSSender(logger *slog.Logger, url, token string) *SMSSender {
	return &SMSSender{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.With("module", "sms_gateway"),
	}
}

func (s *SMSSender) SendSMS(ctx context.Context, to, body string) error {
	payload := map[string]string{"to": to, "body": body}

	if err := post(ctx, s.client, s.url, s.token, payload); err != nil {
		return fmt.Errorf("sms gateway request failed: %w", err)
	}

	s.logger.InfoContext(ctx, "SMS dispatched to gateway", "to", to)

	return nil
}

// EmailSender posts outbound email to an email gateway endpoint.
type EmailSender struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

func NewEmailSender(logger *slog.Logger, url, token string) *EmailSender {
	return &EmailSender{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger.With("module", "email_gateway"),
	}
}

func (s *EmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	payload := map[string]string{"to": to, "subject": subject, "body": body}

	if err := post(ctx, s.client, s.url, s.token, payload); err != nil {
		return fmt.Errorf("email gateway request failed: %w", err)
	}

	s.logger.InfoContext(ctx, "Email dispatched to gateway", "to", to)

	return nil
}

func post(ctx context.Context, client *http.Client, url, token string, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return nil
}
