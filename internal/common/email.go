package common

import "context"

// EmailMessage is the provider-agnostic shape of an outbound email.
type EmailMessage struct {
	To      []string
	Subject string
	Body    string
}

// SendResult reports the outcome of a send attempt.
type SendResult struct {
	Success   bool
	MessageID string
}

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) (SendResult, error)
}

// InMemoryEmail provides a test-friendly email sender that records messages.
type InMemoryEmail struct {
	Outbox []EmailMessage
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(_ context.Context, msg EmailMessage) (SendResult, error) {
	if m == nil {
		return SendResult{Success: true}, nil
	}
	m.Outbox = append(m.Outbox, msg)
	return SendResult{Success: true, MessageID: "in-memory"}, nil
}

// NopEmailSender implements EmailSender without performing any action.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(context.Context, EmailMessage) (SendResult, error) {
	return SendResult{Success: true}, nil
}
