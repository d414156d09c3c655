package mail

import (
	"context"
	"log"

	gomail "gopkg.in/gomail.v2"
)

// Receipt carries everything needed to render a payment receipt email.
type Receipt struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
}

// Mailer delivers receipt notifications. Delivery is best-effort: callers
// must never roll back an entitlement because a send failed.
type Mailer interface {
	SendReceipt(ctx context.Context, r Receipt) error
}

// SMTPMailer sends receipts through an SMTP relay (Gmail-style credentials).
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}
}

// SendReceipt renders and delivers the receipt.
func (m *SMTPMailer) SendReceipt(_ context.Context, r Receipt) error {
	html, err := renderReceipt(r)
	if err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", r.Email)
	msg.SetHeader("Subject", "Payment Receipt - Attendance Tracker Pro")
	msg.SetBody("text/html", html)
	return m.dialer.DialAndSend(msg)
}

// ConsoleMailer logs receipts instead of sending them; used in dev.
type ConsoleMailer struct{}

// SendReceipt logs the receipt fields.
func (ConsoleMailer) SendReceipt(_ context.Context, r Receipt) error {
	log.Printf("receipt (console): to=%s name=%s payment=%s amount=%s", r.Email, r.Name, r.PaymentID, r.Amount)
	return nil
}
