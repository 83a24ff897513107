// Package notifications delivers messages to end users. The OTP flow only
// needs "send this to an address"; transports are interchangeable.
package notifications

import (
	"context"
	"log"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers a message or reports why it could not.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the process log instead of delivering them.
// It backs local development when no SMTP credentials are configured.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(_ context.Context, msg Message) error {
	log.Printf("[MOCK EMAIL] To: %s, Subject: %s, Body: %s", msg.To, msg.Subject, msg.HTMLBody)
	return nil
}
