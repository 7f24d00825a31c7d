package emergency

import (
	"context"
	"time"

	"github.com/linnemanlabs/beacon/internal/geo"
)

// Store is the persistence boundary for subjects, locations, and alerts.
// Implementations must be safe for concurrent use; alert status updates are
// compare-and-set on the active state so racing lifecycle transitions cannot
// both win.
type Store interface {
	// CreateSubject persists a new subject. Returns ErrSubjectExists when the
	// phone number is already registered.
	CreateSubject(ctx context.Context, s *Subject) error

	// GetSubjectByPhone looks a subject up by its identity key.
	GetSubjectByPhone(ctx context.Context, phone string) (*Subject, bool, error)

	// GetSubjectByID looks a subject up by its internal ID.
	GetSubjectByID(ctx context.Context, id string) (*Subject, bool, error)

	// PutLastLocation records the subject's most recent fix.
	PutLastLocation(ctx context.Context, subjectID string, fix geo.Fix) error

	// GetLastLocation returns the subject's most recent fix, if any.
	GetLastLocation(ctx context.Context, subjectID string) (geo.Fix, bool, error)

	// CreateAlert persists a new alert record.
	CreateAlert(ctx context.Context, r *Record) error

	// GetAlert retrieves an alert record, including any attached report.
	GetAlert(ctx context.Context, id string) (*Record, bool, error)

	// UpdateAlertStatus transitions an alert out of the active state. Returns
	// ErrAlertNotFound for unknown IDs and ErrStateConflict when the record is
	// already terminal; a conflicting update leaves the record unchanged.
	UpdateAlertStatus(ctx context.Context, id string, status Status, at time.Time) error

	// AttachReport stores the notification report for an alert.
	AttachReport(ctx context.Context, id string, report *Report) error

	// ListActiveAlerts returns all alerts still in the active state, oldest
	// first.
	ListActiveAlerts(ctx context.Context) ([]*Record, error)
}
