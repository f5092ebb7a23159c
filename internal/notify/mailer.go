package notify

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer delivers messages over plain SMTP. A dialer is built per
// send; gomail keeps no connection state worth pooling at this volume.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

func (c *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.HTMLBody)

	d := gomail.NewDialer(c.host, c.port, c.username, c.password)

	done := make(chan error, 1)
	go func() { done <- d.DialAndSend(msg) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type disabledMailer struct{ log *zap.Logger }

// Disabled returns a mailer that drops every message. Used when SMTP is
// not configured so the rest of the app doesn't have to care.
func Disabled(log *zap.Logger) Mailer {
	return disabledMailer{log: log}
}

func (d disabledMailer) Send(_ context.Context, m Message) error {
	d.log.Debug("email disabled, skipping",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}
