// Package mailer sends account-facing notifications. Delivery is best-effort:
// a failed send never fails the request that triggered it.
package mailer

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Message is one outbound notification.
type Message struct {
	To      string // Recipient email address.
	Subject string // Subject line.
	Body    string // Plain-text body.
}

// Mailer delivers outbound messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer records messages to the application log instead of delivering
// them. Used until an SMTP transport is configured.
type LogMailer struct{}

// NewLogMailer constructs a LogMailer.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send implements Mailer.
func (LogMailer) Send(_ context.Context, msg Message) error {
	log.WithFields(log.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail sink: message logged, not delivered")
	return nil
}
