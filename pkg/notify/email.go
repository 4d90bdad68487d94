package notify

import (
	"context"
	"net/mail"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends state-change messages over SMTP.
type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailNotifier builds an EmailNotifier bound to one SMTP relay.
func NewEmailNotifier(host string, port int, username, password, from string) *EmailNotifier {
	return &EmailNotifier{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (n *EmailNotifier) VerifyTarget(target string) bool {
	_, err := mail.ParseAddress(target)
	return err == nil
}

func (n *EmailNotifier) Send(ctx context.Context, target, message string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", target)
	m.SetHeader("Subject", "Site status alert")
	m.SetBody("text/plain", message)

	return n.dialer.DialAndSend(m)
}
