// Package logsender is the development delivery backend: messages are
// logged instead of sent. Used when no gateway URLs are configured.
package logsender

import (
	"context"
	"log/slog"
)

type Sender struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sender {
	return &Sender{logger: logger.With("module", "log_sender")}
}

func (s *Sender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.InfoContext(ctx, "SMS (not sent, log sender active)", "to", to, "body", body)

	return nil
}

func (s *Sender) SendEmail(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "Email (not sent, log sender active)",
		"to", to, "subject", subject, "body", body)

	return nil
}
