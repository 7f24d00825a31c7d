package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/linnemanlabs/beacon/internal/channel"
)

func TestSend_NotConfigured(t *testing.T) {
	t.Parallel()

	s := New("", "", "")
	err := s.Send(context.Background(), channel.Message{Destination: "+15550001111", Body: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Send error = %v, want ErrNotConfigured", err)
	}
}

func TestSend_EmptyDestination(t *testing.T) {
	t.Parallel()

	s := New("AC123", "token", "+15559990000")
	err := s.Send(context.Background(), channel.Message{Body: "hi"})
	if err == nil {
		t.Fatal("expected error for empty destination")
	}
}

func TestKind(t *testing.T) {
	t.Parallel()

	if got := New("", "", "").Kind(); got != channel.KindSMS {
		t.Errorf("Kind() = %q, want %q", got, channel.KindSMS)
	}
}
