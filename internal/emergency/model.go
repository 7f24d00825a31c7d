package emergency

import (
	"strings"
	"time"

	"github.com/linnemanlabs/beacon/internal/channel"
	"github.com/linnemanlabs/beacon/internal/geo"
)

// AlertType classifies an emergency episode.
type AlertType string

const (
	TypeMedical  AlertType = "medical"
	TypeAccident AlertType = "accident"
	TypeFire     AlertType = "fire"
	TypePolice   AlertType = "police"
	TypeOther    AlertType = "other"
)

// ParseAlertType normalizes a raw alert type string. An empty string maps to
// the medical default; anything unrecognized reports ok=false.
func ParseAlertType(s string) (AlertType, bool) {
	switch AlertType(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return TypeMedical, true
	case TypeMedical:
		return TypeMedical, true
	case TypeAccident:
		return TypeAccident, true
	case TypeFire:
		return TypeFire, true
	case TypePolice:
		return TypePolice, true
	case TypeOther:
		return TypeOther, true
	default:
		return "", false
	}
}

// Status tracks where an alert is in its lifecycle.
type Status string

const (
	// StatusActive means the alert was created and is not yet closed.
	StatusActive Status = "active"

	// StatusResolved means the emergency was explicitly marked handled. Terminal.
	StatusResolved Status = "resolved"

	// StatusCancelled means the alert was explicitly cancelled. Terminal.
	StatusCancelled Status = "cancelled"
)

// DefaultMessage is attached to triggers that carry no message of their own.
const DefaultMessage = "Emergency assistance needed"

// Contact is one emergency contact: a display name and a phone number.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ParseContact splits the free-text "Name: Phone" form used at registration.
// A bare phone number gets a generic display name. Empty input reports
// ok=false.
func ParseContact(s string) (Contact, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Contact{}, false
	}
	if name, phone, found := strings.Cut(s, ":"); found {
		return Contact{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone)}, true
	}
	return Contact{Name: "Emergency Contact", Phone: s}, true
}

// Subject is a registered person, keyed by phone number.
type Subject struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	Contacts    []Contact `json:"contacts,omitempty"`
	MedicalInfo string    `json:"medical_info,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record is one emergency episode. Once persisted it is owned by the Store;
// the service holds only a transient view during the workflow.
type Record struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	Type       AlertType `json:"alert_type"`
	Location   geo.Fix   `json:"location"`
	Message    string    `json:"message"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
	Report     *Report   `json:"report,omitempty"`
}

// Outcome is the result of one channel send attempt.
type Outcome struct {
	Channel     channel.Kind `json:"channel"`
	Destination string       `json:"destination,omitempty"`
	Attempted   bool         `json:"attempted"`
	Succeeded   bool         `json:"succeeded"`
	Error       string       `json:"error,omitempty"`
}

// Report aggregates the per-channel outcomes of one trigger. Outcomes keep
// dispatch order: emergency services first, then one SMS per contact, then
// the subject's confirmation SMS and optional confirmation email. Success is
// true iff the emergency-services outcome succeeded; everything else is
// informational.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	Success  bool      `json:"success"`
}

// TriggerResult is what the caller gets back from a completed trigger.
type TriggerResult struct {
	Success  bool    `json:"success"`
	AlertID  string  `json:"alert_id"`
	Location geo.Fix `json:"location"`
	Report   *Report `json:"report"`
}

// SubjectStatus is the current view of a subject for the status endpoint.
type SubjectStatus struct {
	Subject     *Subject `json:"subject"`
	LastFix     *geo.Fix `json:"last_location,omitempty"`
	ActiveAlert *Record  `json:"active_alert,omitempty"`
}
