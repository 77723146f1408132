// Package protocol defines the outbound delivery contracts implemented by
// real providers in deployment and by mocks in tests.
package protocol

import "context"

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender delivers an email to an address.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}
