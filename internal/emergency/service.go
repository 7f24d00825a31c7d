package emergency

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/beacon/internal/channel"
	"github.com/linnemanlabs/beacon/internal/geo"
	"github.com/linnemanlabs/beacon/internal/location"
)

// maxContacts caps how many emergency contacts a registration may carry.
const maxContacts = 5

// cancelNoticeTimeout bounds the best-effort SMS sent after a cancellation.
const cancelNoticeTimeout = 10 * time.Second

// Service is the business boundary for the emergency workflow: it composes
// the location resolver, the notification fan-out, and the store into the
// trigger-to-confirmation sequence and owns the alert lifecycle.
type Service struct {
	store    Store
	resolver *location.Resolver
	fanout   *Fanout
	sms      channel.Sender
	logger   log.Logger
	metrics  *Metrics
	clock    clock.Clock
}

// NewService creates the workflow service. The sms sender is used for
// post-cancellation notices and may be nil; a nil clock falls back to the
// wall clock.
func NewService(store Store, resolver *location.Resolver, fanout *Fanout, sms channel.Sender, logger log.Logger, metrics *Metrics, clk clock.Clock) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		store:    store,
		resolver: resolver,
		fanout:   fanout,
		sms:      sms,
		logger:   logger,
		metrics:  metrics,
		clock:    clk,
	}
}

// RegisterSubject registers a new person keyed by phone number. Contacts are
// given in the free-text "Name: Phone" form.
func (s *Service) RegisterSubject(ctx context.Context, name, phone, email string, contacts []string, medicalInfo string) (*Subject, error) {
	if name == "" || phone == "" {
		return nil, fmt.Errorf("name and phone are required")
	}

	var parsed []Contact
	for _, raw := range contacts {
		if c, ok := ParseContact(raw); ok {
			parsed = append(parsed, c)
		}
	}
	if len(parsed) > maxContacts {
		parsed = parsed[:maxContacts]
	}

	sub := &Subject{
		ID:          ulid.Make().String(),
		Name:        name,
		Phone:       phone,
		Email:       email,
		Contacts:    parsed,
		MedicalInfo: medicalInfo,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.store.CreateSubject(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "subject registered", "subject_id", sub.ID, "contacts", len(parsed))
	return sub, nil
}

// UpdateLocation stores new coordinates as the subject's last known location,
// annotating them with a best-effort reverse-geocoded address.
func (s *Service) UpdateLocation(ctx context.Context, phone string, lat, lon float64) (geo.Fix, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return geo.Fix{}, fmt.Errorf("%w: %v, %v", geo.ErrInvalidCoordinates, lat, lon)
	}

	sub, ok, err := s.store.GetSubjectByPhone(ctx, phone)
	if err != nil {
		return geo.Fix{}, fmt.Errorf("subject lookup: %w", err)
	}
	if !ok {
		return geo.Fix{}, ErrSubjectNotFound
	}

	fix := geo.Fix{
		Latitude:  lat,
		Longitude: lon,
		Address:   s.resolver.Address(ctx, lat, lon),
		Source:    geo.SourceProvided,
		Timestamp: s.clock.Now(),
	}
	if err := s.store.PutLastLocation(ctx, sub.ID, fix); err != nil {
		return geo.Fix{}, fmt.Errorf("store location: %w", err)
	}
	return fix, nil
}

// TriggerQuick starts the emergency workflow with no coordinates and the
// default message. It is sugar over Trigger, not a separate code path.
func (s *Service) TriggerQuick(ctx context.Context, phone, alertType string) (*TriggerResult, error) {
	return s.Trigger(ctx, phone, alertType, "", nil, nil)
}

// Trigger runs the end-to-end workflow: subject lookup, location resolution,
// durable alert creation, notification fan-out, and report attachment. The
// alert record is persisted before any notification goes out and is never
// rolled back by notification failure. The returned result distinguishes
// exactly which channels succeeded; only hard failures (unknown subject,
// invalid coordinates, persistence) surface as errors.
func (s *Service) Trigger(ctx context.Context, phone, alertType, message string, lat, lon *float64) (*TriggerResult, error) {
	typ, ok := ParseAlertType(alertType)
	if !ok {
		s.countTrigger("invalid_type")
		return nil, fmt.Errorf("%w: %q", ErrInvalidAlertType, alertType)
	}

	// Malformed provided coordinates are rejected at entry, before any side
	// effect. This is distinct from "no coordinates provided", which enters
	// the fallback chain.
	if lat != nil || lon != nil {
		if lat == nil || lon == nil {
			s.countTrigger("invalid_coordinates")
			return nil, fmt.Errorf("%w: latitude and longitude must be provided together", geo.ErrInvalidCoordinates)
		}
		if !geo.ValidCoordinates(*lat, *lon) {
			s.countTrigger("invalid_coordinates")
			return nil, fmt.Errorf("%w: %v, %v", geo.ErrInvalidCoordinates, *lat, *lon)
		}
	}

	sub, found, err := s.store.GetSubjectByPhone(ctx, phone)
	if err != nil {
		s.countTrigger("lookup_error")
		return nil, fmt.Errorf("subject lookup: %w", err)
	}
	if !found {
		s.countTrigger("subject_not_found")
		return nil, ErrSubjectNotFound
	}

	fix := s.resolver.Resolve(ctx, sub.ID, lat, lon)
	if s.metrics != nil {
		s.metrics.ResolverSource.WithLabelValues(string(fix.Source)).Inc()
	}

	if message == "" {
		message = DefaultMessage
	}

	rec := &Record{
		ID:        ulid.Make().String(),
		SubjectID: sub.ID,
		Type:      typ,
		Location:  fix,
		Message:   message,
		Status:    StatusActive,
		CreatedAt: s.clock.Now(),
	}

	// Durability over notification success: an alert row must exist before
	// anything is sent. A persistence failure here aborts the workflow.
	if err := s.store.CreateAlert(ctx, rec); err != nil {
		s.countTrigger("persistence_error")
		return nil, fmt.Errorf("create alert: %w", err)
	}
	if s.metrics != nil {
		s.metrics.AlertsTotal.WithLabelValues(string(typ)).Inc()
	}

	// Freshly observed coordinates become the subject's last known location.
	if fix.Source == geo.SourceProvided || fix.Source == geo.SourceIPFallback {
		if err := s.store.PutLastLocation(ctx, sub.ID, fix); err != nil {
			s.logger.Warn(ctx, "failed to store last location", "subject_id", sub.ID, "error", err)
		}
	}

	L := s.logger.With("alert_id", rec.ID, "subject_id", sub.ID, "alert_type", string(typ))
	L.Info(ctx, "emergency alert triggered",
		"latitude", fix.Latitude,
		"longitude", fix.Longitude,
		"location_source", string(fix.Source),
	)

	report := s.fanout.Dispatch(ctx, sub, rec)

	// Attach failure does not undo the alert; the record stands on its own.
	if err := s.store.AttachReport(ctx, rec.ID, report); err != nil {
		L.Error(ctx, err, "failed to attach notification report")
	}
	rec.Report = report

	if report.Success {
		s.countTrigger("success")
	} else {
		s.countTrigger("dispatch_failed")
		L.Warn(ctx, "emergency services dispatch failed", "outcomes", len(report.Outcomes))
	}

	return &TriggerResult{
		Success:  report.Success,
		AlertID:  rec.ID,
		Location: fix,
		Report:   report,
	}, nil
}

// Cancel transitions an active alert to cancelled and sends the subject a
// best-effort notice. Cancelling a terminal alert fails with ErrStateConflict
// and changes nothing; notifications already sent are not recalled.
func (s *Service) Cancel(ctx context.Context, alertID, reason string) error {
	if err := s.transition(ctx, alertID, StatusCancelled); err != nil {
		return err
	}
	s.sendCancelNotice(ctx, alertID, reason)
	return nil
}

// Resolve marks an active alert as handled. Resolving a terminal alert fails
// with ErrStateConflict and changes nothing.
func (s *Service) Resolve(ctx context.Context, alertID string) error {
	return s.transition(ctx, alertID, StatusResolved)
}

func (s *Service) transition(ctx context.Context, alertID string, status Status) error {
	err := s.store.UpdateAlertStatus(ctx, alertID, status, s.clock.Now())
	if s.metrics != nil {
		switch {
		case err == nil:
			s.metrics.LifecycleTotal.WithLabelValues(string(status)).Inc()
		default:
			s.metrics.LifecycleTotal.WithLabelValues("conflict").Inc()
		}
	}
	if err != nil {
		return err
	}
	s.logger.Info(ctx, "alert lifecycle transition", "alert_id", alertID, "status", string(status))
	return nil
}

func (s *Service) sendCancelNotice(ctx context.Context, alertID, reason string) {
	if s.sms == nil {
		return
	}

	rec, ok, err := s.store.GetAlert(ctx, alertID)
	if err != nil || !ok {
		return
	}
	sub, ok, err := s.store.GetSubjectByID(ctx, rec.SubjectID)
	if err != nil || !ok {
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelNoticeTimeout)
	defer cancel()
	if err := s.sms.Send(cctx, cancellationSMS(sub, reason)); err != nil {
		s.logger.Warn(ctx, "cancellation notice failed", "alert_id", alertID, "error", err)
	}
}

// Alert retrieves one alert record with its attached report.
func (s *Service) Alert(ctx context.Context, id string) (*Record, bool, error) {
	return s.store.GetAlert(ctx, id)
}

// ActiveAlerts lists all alerts still in the active state.
func (s *Service) ActiveAlerts(ctx context.Context) ([]*Record, error) {
	return s.store.ListActiveAlerts(ctx)
}

// SubjectStatus returns the current view of a subject: profile, last known
// fix, and any active alert.
func (s *Service) SubjectStatus(ctx context.Context, phone string) (*SubjectStatus, error) {
	sub, ok, err := s.store.GetSubjectByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("subject lookup: %w", err)
	}
	if !ok {
		return nil, ErrSubjectNotFound
	}

	st := &SubjectStatus{Subject: sub}

	if fix, ok, err := s.store.GetLastLocation(ctx, sub.ID); err == nil && ok {
		st.LastFix = &fix
	}

	active, err := s.store.ListActiveAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	for _, rec := range active {
		if rec.SubjectID == sub.ID {
			st.ActiveAlert = rec
			break
		}
	}
	return st, nil
}

func (s *Service) countTrigger(outcome string) {
	if s.metrics != nil {
		s.metrics.TriggersTotal.WithLabelValues(outcome).Inc()
	}
}
