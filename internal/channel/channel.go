// Package channel defines the uniform send contract every notification
// transport implements. The set of channel kinds is closed: the
// emergency-services dispatch API, SMS, and email. Each sender wraps exactly
// one external transport and translates its errors into plain error returns
// so nothing transport-specific escapes the boundary. Senders do not retry;
// one trigger means one attempt per channel.
package channel

import "context"

// Kind identifies one of the fixed notification channel variants.
type Kind string

const (
	KindEmergencyServices Kind = "emergency_services"
	KindSMS               Kind = "sms"
	KindEmail             Kind = "email"
)

// Message is one formatted notification bound for a single destination.
// Body carries the human-readable text for SMS and email; Payload carries the
// structured document for the emergency-services dispatch API.
type Message struct {
	Destination string
	Subject     string
	Body        string
	Payload     map[string]any
}

// Sender sends one message through one external channel.
type Sender interface {
	Kind() Kind
	Send(ctx context.Context, msg Message) error
}
