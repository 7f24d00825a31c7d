// Package sms sends text messages through the Twilio messaging API.
package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/linnemanlabs/beacon/internal/channel"
)

// ErrNotConfigured is returned when Twilio credentials were not supplied.
var ErrNotConfigured = errors.New("sms: transport not configured")

// Sender sends SMS messages from a fixed origin number.
type Sender struct {
	client *twilio.RestClient
	from   string
}

// New creates an SMS sender. With empty credentials the sender is inert and
// Send fails with ErrNotConfigured, so misconfiguration still shows up as a
// recorded outcome rather than a silent skip.
func New(accountSID, authToken, from string) *Sender {
	s := &Sender{from: from}
	if accountSID != "" && authToken != "" {
		s.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		})
	}
	return s
}

// Kind implements channel.Sender.
func (s *Sender) Kind() channel.Kind { return channel.KindSMS }

// Send delivers msg.Body to the destination phone number. The Twilio SDK does
// not take a context; the fan-out's per-channel timeout bounds the caller.
func (s *Sender) Send(_ context.Context, msg channel.Message) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	if msg.Destination == "" {
		return errors.New("sms: empty destination number")
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(msg.Destination)
	params.SetFrom(s.from)
	params.SetBody(msg.Body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sms: send to %s: %w", msg.Destination, err)
	}
	return nil
}
