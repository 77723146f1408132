// Package mocks provides testify mocks for the delivery, persistence, and
// event bus contracts.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSMSSender is a mock implementation of protocol.SMSSender.
type MockSMSSender struct {
	mock.Mock
}

func (m *MockSMSSender) SendSMS(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)

	return args.Error(0)
}

// MockEmailSender is a mock implementation of protocol.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)

	return args.Error(0)
}
