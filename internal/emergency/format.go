package emergency

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/beacon/internal/channel"
)

const alertBanner = "\U0001f6a8 EMERGENCY ALERT \U0001f6a8"

// dispatchMessage builds the structured payload for the emergency-services
// dispatch API.
func dispatchMessage(sub *Subject, rec *Record) channel.Message {
	address := rec.Location.Address
	if address == "" {
		address = "Address not available"
	}

	return channel.Message{
		Destination: "dispatch",
		Payload: map[string]any{
			"alert_type": string(rec.Type),
			"location": map[string]any{
				"latitude":  rec.Location.Latitude,
				"longitude": rec.Location.Longitude,
				"address":   address,
				"maps_link": rec.Location.MapsLink(),
			},
			"user_info": map[string]any{
				"name":         sub.Name,
				"phone":        sub.Phone,
				"medical_info": sub.MedicalInfo,
			},
			"timestamp": rec.CreatedAt.UTC().Format(time.RFC3339),
			"message":   rec.Message,
		},
	}
}

// contactMessage builds the SMS sent to one emergency contact.
func contactMessage(sub *Subject, rec *Record, c Contact) channel.Message {
	address := rec.Location.Address
	if address == "" {
		address = "Unknown location"
	}

	body := fmt.Sprintf(`%s
Emergency alert for %s

Location: %s
Coordinates: %s
Google Maps: %s

Time: %s
Alert Type: %s

Emergency services have been notified.`,
		alertBanner,
		sub.Name,
		address,
		rec.Location.Coordinates(),
		rec.Location.MapsLink(),
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.Type,
	)

	return channel.Message{Destination: c.Phone, Body: body}
}

// confirmationBody is the "help is on the way" text sent back to the subject.
func confirmationBody(rec *Record) string {
	address := rec.Location.Address
	if address == "" {
		address = rec.Location.Coordinates()
	}

	return fmt.Sprintf(`Help is on the way!

Emergency services have been notified of your location:
%s

Your emergency contacts have been informed.

Stay calm and wait for assistance.`, address)
}

// confirmationSMS builds the confirmation SMS to the subject.
func confirmationSMS(sub *Subject, rec *Record) channel.Message {
	return channel.Message{Destination: sub.Phone, Body: confirmationBody(rec)}
}

// confirmationEmail builds the confirmation email to the subject.
func confirmationEmail(sub *Subject, rec *Record) channel.Message {
	return channel.Message{
		Destination: sub.Email,
		Subject:     "\U0001f6a8 EMERGENCY ALERT: Emergency Alert Confirmation",
		Body:        confirmationBody(rec),
	}
}

// cancellationSMS builds the best-effort notice sent when an alert is
// cancelled.
func cancellationSMS(sub *Subject, reason string) channel.Message {
	if reason == "" {
		reason = "cancelled by user"
	}
	return channel.Message{
		Destination: sub.Phone,
		Body:        fmt.Sprintf("Emergency alert has been cancelled. Reason: %s", reason),
	}
}
