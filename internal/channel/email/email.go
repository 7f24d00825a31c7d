// Package email sends plain-text messages over SMTP.
package email

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/linnemanlabs/beacon/internal/channel"
)

// ErrNotConfigured is returned when no SMTP host was supplied.
var ErrNotConfigured = errors.New("email: transport not configured")

// Sender sends email through a single SMTP server.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

// New creates an email sender. With an empty host the sender is inert and
// Send fails with ErrNotConfigured.
func New(host string, port int, username, password, from string) *Sender {
	s := &Sender{from: from}
	if host != "" {
		s.dialer = gomail.NewPlainDialer(host, port, username, password)
	}
	return s
}

// Kind implements channel.Sender.
func (s *Sender) Kind() channel.Kind { return channel.KindEmail }

// Send delivers a plain-text message to the destination address. gomail has
// no context support; the fan-out's per-channel timeout bounds the caller.
func (s *Sender) Send(_ context.Context, msg channel.Message) error {
	if s.dialer == nil {
		return ErrNotConfigured
	}
	if msg.Destination == "" {
		return errors.New("email: empty destination address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.Destination)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send to %s: %w", msg.Destination, err)
	}
	return nil
}
