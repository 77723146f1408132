package cmd

import (
	"log/slog"
	"os"

	"github.com/fieldline/automation/pkg/protocol"
	"github.com/fieldline/automation/pkg/providers/gateway"
	"github.com/fieldline/automation/pkg/providers/logsender"
)

// NewSenders builds the delivery backends from the environment. Without
// gateway URLs both channels fall back to the log sender.
//
// nolint:ireturn // Callers program against the protocol interfaces.
func NewSenders(logger *slog.Logger) (protocol.SMSSender, protocol.EmailSender) {
	fallback := logsender.New(logger)

	var (
		sms   protocol.SMSSender   = fallback
		email protocol.EmailSender = fallback
	)

	token := os.Getenv("GATEWAY_TOKEN")

	if url := os.Getenv("SMS_GATEWAY_URL"); url != "" {
		sms = gateway.NewSMSSender(logger, url, token)
	}

	if url := os.Getenv("EMAIL_GATEWAY_URL"); url != "" {
		email = gateway.NewEmailSender(logger, url, token)
	}

	return sms, email
}
