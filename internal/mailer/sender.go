package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"foodDeliveryManagement/internal/config"
)

// Sender delivers a templated message to a recipient.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender builds a sender from mail configuration.
func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{addr: cfg.SMTPAddr, from: cfg.From}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// compose renders the subject and body for an order event.
func compose(ev OrderEvent) (subject, body string) {
	switch ev.Type {
	case TypeOrderCreated:
		subject = fmt.Sprintf("Order %s received", ev.OrderCode)
		body = fmt.Sprintf("Hi %s,\n\nWe received your order %s totalling %.2f. Complete payment to place it.\n",
			ev.CustomerName, ev.OrderCode, ev.TotalPrice)
	case TypePaymentConfirmed:
		subject = fmt.Sprintf("Payment confirmed for order %s", ev.OrderCode)
		body = fmt.Sprintf("Hi %s,\n\nYour payment of %.2f was confirmed and order %s is now placed.\n",
			ev.CustomerName, ev.TotalPrice, ev.OrderCode)
	case TypeDeliveryStarted:
		subject = fmt.Sprintf("Order %s is on the way", ev.OrderCode)
		body = fmt.Sprintf("Hi %s,\n\nYour order %s is out for delivery.\n", ev.CustomerName, ev.OrderCode)
	case TypeOrderDelivered:
		subject = fmt.Sprintf("Order %s delivered", ev.OrderCode)
		body = fmt.Sprintf("Hi %s,\n\nYour order %s has been delivered. Enjoy!\n", ev.CustomerName, ev.OrderCode)
	case TypeOrderCancelled:
		subject = fmt.Sprintf("Order %s cancelled", ev.OrderCode)
		reason := ev.Reason
		if reason == "" {
			reason = "Order cancelled"
		}
		body = fmt.Sprintf("Hi %s,\n\nYour order %s was cancelled: %s\n", ev.CustomerName, ev.OrderCode, reason)
	default:
		subject = fmt.Sprintf("Update on order %s", ev.OrderCode)
		msg := ev.Message
		if msg == "" {
			msg = "Your order status is now " + ev.Status + "."
		}
		body = fmt.Sprintf("Hi %s,\n\n%s\n", ev.CustomerName, msg)
	}
	return subject, body
}
