// Package mailer sends attendee notifications over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/seminars/internal/config"
	"github.com/iliyamo/seminars/internal/queue"
)

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer renders and sends notification mails.  With an empty SMTP host
// it only logs what it would have sent.
type Mailer struct {
	cfg  config.MailConfig
	log  *zerolog.Logger
	send sendFunc
}

func New(cfg config.MailConfig, log *zerolog.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, send: smtp.SendMail}
}

// Compose returns subject and body for a notification.
func Compose(ev queue.RegistrationEvent) (subject, body string, err error) {
	greeting := "Hello"
	if ev.Name != "" {
		greeting += " " + ev.Name
	}
	when := ""
	if ev.EventBegin != nil {
		when = " on " + ev.EventBegin.UTC().Format("2006-01-02 15:04 MST")
	}

	switch ev.Kind {
	case queue.KindRegistrationCreated:
		subject = "Registration confirmed: " + ev.EventTitle
		body = fmt.Sprintf("%s,\n\nyou are registered for %q%s with %d seat(s).\nTotal price: %s.\n",
			greeting, ev.EventTitle, when, ev.Seats, FormatCents(ev.TotalPriceCents))
	case queue.KindRegistrationQueued:
		subject = "Waiting list: " + ev.EventTitle
		body = fmt.Sprintf("%s,\n\n%q%s is fully booked. You are on the waiting list with %d seat(s) and will be notified when a seat becomes free.\n",
			greeting, ev.EventTitle, when, ev.Seats)
	case queue.KindRegistrationPromoted:
		subject = "A seat became free: " + ev.EventTitle
		body = fmt.Sprintf("%s,\n\nyour registration for %q%s has moved from the waiting list to a regular registration.\n",
			greeting, ev.EventTitle, when)
	case queue.KindRegistrationCancelled:
		subject = "Registration cancelled: " + ev.EventTitle
		body = fmt.Sprintf("%s,\n\nyour registration for %q%s has been cancelled.\n", greeting, ev.EventTitle, when)
	case queue.KindEventConfirmed:
		subject = "Event takes place: " + ev.EventTitle
		body = fmt.Sprintf("%s,\n\n%q%s has enough participants and will take place as planned.\n", greeting, ev.EventTitle, when)
	case queue.KindEventCanceled:
		subject = "Event canceled: " + ev.EventTitle
		body = fmt.Sprintf("%s,\n\nunfortunately %q%s did not reach the minimum number of participants and has been canceled.\n",
			greeting, ev.EventTitle, when)
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", ev.Kind)
	}
	return subject, body, nil
}

// FormatCents renders an amount like 1250 as "12.50".
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Notify implements queue.Handler.  Messages without a recipient are
// acknowledged and skipped.
func (m *Mailer) Notify(_ context.Context, ev queue.RegistrationEvent) error {
	if ev.Email == "" {
		m.log.Debug().Str("kind", ev.Kind).Uint64("event_id", ev.EventID).Msg("notification without recipient skipped")
		return nil
	}
	subject, body, err := Compose(ev)
	if err != nil {
		return err
	}
	if m.cfg.Host == "" {
		m.log.Info().Str("to", ev.Email).Str("subject", subject).Msg("mail disabled, not sent")
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + ev.Email,
		"Subject: " + subject,
		"Date: " + time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, []string{ev.Email}, []byte(msg)); err != nil {
		m.log.Warn().Err(err).Str("to", ev.Email).Msg("send mail failed")
		return fmt.Errorf("send email: %w", err)
	}
	m.log.Info().Str("to", ev.Email).Str("kind", ev.Kind).Msg("notification mailed")
	return nil
}
