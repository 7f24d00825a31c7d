// Package memstore provides an in-memory implementation of emergency.Store.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/linnemanlabs/beacon/internal/emergency"
	"github.com/linnemanlabs/beacon/internal/geo"
)

// Store holds subjects, locations, and alerts in memory. Suitable for
// dev/testing.
type Store struct {
	mu         sync.RWMutex
	subjects   map[string]*emergency.Subject // subject ID -> subject
	byPhone    map[string]string             // phone -> subject ID
	lastFix    map[string]geo.Fix            // subject ID -> last known fix
	alerts     map[string]*emergency.Record  // alert ID -> record
	alertOrder []string                      // creation order for listing
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		subjects: make(map[string]*emergency.Subject),
		byPhone:  make(map[string]string),
		lastFix:  make(map[string]geo.Fix),
		alerts:   make(map[string]*emergency.Record),
	}
}

// CreateSubject stores a copy of the subject, rejecting duplicate phones.
func (s *Store) CreateSubject(_ context.Context, sub *emergency.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPhone[sub.Phone]; ok {
		return emergency.ErrSubjectExists
	}
	cp := *sub
	cp.Contacts = append([]emergency.Contact(nil), sub.Contacts...)
	s.subjects[sub.ID] = &cp
	s.byPhone[sub.Phone] = sub.ID
	return nil
}

// GetSubjectByPhone retrieves a subject by phone number. Returns a copy.
func (s *Store) GetSubjectByPhone(_ context.Context, phone string) (*emergency.Subject, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPhone[phone]
	if !ok {
		return nil, false, nil
	}
	return copySubject(s.subjects[id]), true, nil
}

// GetSubjectByID retrieves a subject by internal ID. Returns a copy.
func (s *Store) GetSubjectByID(_ context.Context, id string) (*emergency.Subject, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[id]
	if !ok {
		return nil, false, nil
	}
	return copySubject(sub), true, nil
}

// PutLastLocation records the subject's most recent fix.
func (s *Store) PutLastLocation(_ context.Context, subjectID string, fix geo.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFix[subjectID] = fix
	return nil
}

// GetLastLocation returns the subject's most recent fix, if any.
func (s *Store) GetLastLocation(_ context.Context, subjectID string) (geo.Fix, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fix, ok := s.lastFix[subjectID]
	return fix, ok, nil
}

// CreateAlert stores a copy of the alert record.
func (s *Store) CreateAlert(_ context.Context, r *emergency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.alerts[r.ID] = &cp
	s.alertOrder = append(s.alertOrder, r.ID)
	return nil
}

// GetAlert retrieves an alert record by ID. Returns a copy.
func (s *Store) GetAlert(_ context.Context, id string) (*emergency.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.alerts[id]
	if !ok {
		return nil, false, nil
	}
	return copyRecord(r), true, nil
}

// UpdateAlertStatus transitions an alert out of the active state. The check
// and the write happen under one lock so racing transitions cannot both win.
func (s *Store) UpdateAlertStatus(_ context.Context, id string, status emergency.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.alerts[id]
	if !ok {
		return emergency.ErrAlertNotFound
	}
	if r.Status != emergency.StatusActive {
		return emergency.ErrStateConflict
	}
	r.Status = status
	r.ResolvedAt = at
	return nil
}

// AttachReport stores the notification report for an alert.
func (s *Store) AttachReport(_ context.Context, id string, report *emergency.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.alerts[id]
	if !ok {
		return emergency.ErrAlertNotFound
	}
	cp := *report
	cp.Outcomes = append([]emergency.Outcome(nil), report.Outcomes...)
	r.Report = &cp
	return nil
}

// ListActiveAlerts returns all active alerts in creation order. Returns copies.
func (s *Store) ListActiveAlerts(_ context.Context) ([]*emergency.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*emergency.Record
	for _, id := range s.alertOrder {
		if r := s.alerts[id]; r.Status == emergency.StatusActive {
			out = append(out, copyRecord(r))
		}
	}
	return out, nil
}

func copySubject(sub *emergency.Subject) *emergency.Subject {
	cp := *sub
	cp.Contacts = append([]emergency.Contact(nil), sub.Contacts...)
	return &cp
}

func copyRecord(r *emergency.Record) *emergency.Record {
	cp := *r
	if r.Report != nil {
		rep := *r.Report
		rep.Outcomes = append([]emergency.Outcome(nil), r.Report.Outcomes...)
		cp.Report = &rep
	}
	return &cp
}
