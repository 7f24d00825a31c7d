package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/beacon/internal/emergency"
	"github.com/linnemanlabs/beacon/internal/geo"
)

// mockService implements EmergencyService with overridable hooks.
type mockService struct {
	registerFn     func(ctx context.Context, name, phone, email string, contacts []string, medicalInfo string) (*emergency.Subject, error)
	statusFn       func(ctx context.Context, phone string) (*emergency.SubjectStatus, error)
	updateFn       func(ctx context.Context, phone string, lat, lon float64) (geo.Fix, error)
	triggerFn      func(ctx context.Context, phone, alertType, message string, lat, lon *float64) (*emergency.TriggerResult, error)
	triggerQuickFn func(ctx context.Context, phone, alertType string) (*emergency.TriggerResult, error)
	cancelFn       func(ctx context.Context, alertID, reason string) error
	resolveFn      func(ctx context.Context, alertID string) error
	alertFn        func(ctx context.Context, id string) (*emergency.Record, bool, error)
	activeFn       func(ctx context.Context) ([]*emergency.Record, error)
}

func (m *mockService) RegisterSubject(ctx context.Context, name, phone, email string, contacts []string, medicalInfo string) (*emergency.Subject, error) {
	return m.registerFn(ctx, name, phone, email, contacts, medicalInfo)
}

func (m *mockService) SubjectStatus(ctx context.Context, phone string) (*emergency.SubjectStatus, error) {
	return m.statusFn(ctx, phone)
}

func (m *mockService) UpdateLocation(ctx context.Context, phone string, lat, lon float64) (geo.Fix, error) {
	return m.updateFn(ctx, phone, lat, lon)
}

func (m *mockService) Trigger(ctx context.Context, phone, alertType, message string, lat, lon *float64) (*emergency.TriggerResult, error) {
	return m.triggerFn(ctx, phone, alertType, message, lat, lon)
}

func (m *mockService) TriggerQuick(ctx context.Context, phone, alertType string) (*emergency.TriggerResult, error) {
	return m.triggerQuickFn(ctx, phone, alertType)
}

func (m *mockService) Cancel(ctx context.Context, alertID, reason string) error {
	return m.cancelFn(ctx, alertID, reason)
}

func (m *mockService) Resolve(ctx context.Context, alertID string) error {
	return m.resolveFn(ctx, alertID)
}

func (m *mockService) Alert(ctx context.Context, id string) (*emergency.Record, bool, error) {
	return m.alertFn(ctx, id)
}

func (m *mockService) ActiveAlerts(ctx context.Context) ([]*emergency.Record, error) {
	return m.activeFn(ctx)
}

func newTestRouter(t *testing.T, svc EmergencyService) chi.Router {
	t.Helper()
	api := New(nil, svc)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func doRequest(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New(nil, nil) did not panic; expected panic for nil service")
		}
	}()
	New(nil, nil)
}

func TestRegisterSubject(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		registerFn: func(_ context.Context, name, phone, email string, contacts []string, medicalInfo string) (*emergency.Subject, error) {
			return &emergency.Subject{
				ID:    "sub-1",
				Name:  name,
				Phone: phone,
				Email: email,
				Contacts: []emergency.Contact{
					{Name: "Charles", Phone: "+15550002222"},
				},
				MedicalInfo: medicalInfo,
				CreatedAt:   time.Now(),
			}, nil
		},
	}
	r := newTestRouter(t, svc)

	body := `{"name":"Ada","phone":"+15550001111","email":"ada@example.com","emergency_contacts":["Charles: +15550002222"],"medical_info":"none"}`
	rec := doRequest(t, r, http.MethodPost, "/api/v1/subjects", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var sub emergency.Subject
	if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if sub.ID != "sub-1" || sub.Name != "Ada" {
		t.Errorf("subject = %+v", sub)
	}
}

func TestRegisterSubject_Validation(t *testing.T) {
	t.Parallel()

	svc := &mockService{}
	r := newTestRouter(t, svc)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{bad`},
		{"missing name", `{"phone":"+15550001111"}`},
		{"missing phone", `{"name":"Ada"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doRequest(t, r, http.MethodPost, "/api/v1/subjects", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestRegisterSubject_Duplicate(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		registerFn: func(context.Context, string, string, string, []string, string) (*emergency.Subject, error) {
			return nil, emergency.ErrSubjectExists
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/subjects", `{"name":"Ada","phone":"+15550001111"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestSubjectStatus(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		statusFn: func(_ context.Context, phone string) (*emergency.SubjectStatus, error) {
			if phone != "+15550001111" {
				return nil, emergency.ErrSubjectNotFound
			}
			return &emergency.SubjectStatus{
				Subject: &emergency.Subject{ID: "sub-1", Phone: phone},
			}, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/subjects/+15550001111", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/subjects/+15559999999", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown subject status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdateLocation(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		updateFn: func(_ context.Context, _ string, lat, lon float64) (geo.Fix, error) {
			if !geo.ValidCoordinates(lat, lon) {
				return geo.Fix{}, geo.ErrInvalidCoordinates
			}
			return geo.Fix{Latitude: lat, Longitude: lon, Source: geo.SourceProvided}, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/locations", `{"phone":"+15550001111","latitude":40.7,"longitude":-74.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = doRequest(t, r, http.MethodPost, "/api/v1/locations", `{"phone":"+15550001111","latitude":200,"longitude":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	var gotLat, gotLon *float64
	svc := &mockService{
		triggerFn: func(_ context.Context, phone, alertType, message string, lat, lon *float64) (*emergency.TriggerResult, error) {
			gotLat, gotLon = lat, lon
			return &emergency.TriggerResult{
				Success: true,
				AlertID: "alert-1",
				Report:  &emergency.Report{Success: true},
			}, nil
		},
	}
	r := newTestRouter(t, svc)

	body := `{"phone":"+15550001111","alert_type":"medical","message":"help","latitude":40.7,"longitude":-74.0}`
	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotLat == nil || *gotLat != 40.7 || gotLon == nil || *gotLon != -74.0 {
		t.Errorf("coordinates = (%v, %v), want pointers to request values", gotLat, gotLon)
	}

	var res emergency.TriggerResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !res.Success || res.AlertID != "alert-1" {
		t.Errorf("result = %+v", res)
	}
}

func TestTrigger_OmittedCoordinatesAreNil(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		triggerFn: func(_ context.Context, _, _, _ string, lat, lon *float64) (*emergency.TriggerResult, error) {
			if lat != nil || lon != nil {
				t.Errorf("coordinates = (%v, %v), want nil for omitted fields", lat, lon)
			}
			return &emergency.TriggerResult{AlertID: "alert-1"}, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts", `{"phone":"+15550001111"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
}

func TestTrigger_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown subject", emergency.ErrSubjectNotFound, http.StatusNotFound},
		{"invalid coordinates", geo.ErrInvalidCoordinates, http.StatusBadRequest},
		{"invalid alert type", emergency.ErrInvalidAlertType, http.StatusBadRequest},
		{"store failure", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockService{
				triggerFn: func(context.Context, string, string, string, *float64, *float64) (*emergency.TriggerResult, error) {
					return nil, tt.err
				},
			}
			r := newTestRouter(t, svc)

			rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts", `{"phone":"+15550001111"}`)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestTriggerQuick(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		triggerQuickFn: func(_ context.Context, phone, alertType string) (*emergency.TriggerResult, error) {
			if alertType != "fire" {
				t.Errorf("alertType = %q, want fire", alertType)
			}
			return &emergency.TriggerResult{Success: true, AlertID: "alert-2"}, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/quick", `{"phone":"+15550001111","alert_type":"fire"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestGetAlert(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		alertFn: func(_ context.Context, id string) (*emergency.Record, bool, error) {
			if id != "alert-1" {
				return nil, false, nil
			}
			return &emergency.Record{ID: id, Status: emergency.StatusActive}, true, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts/alert-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doRequest(t, r, http.MethodGet, "/api/v1/alerts/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown alert status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestActiveAlerts_EmptyList(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		activeFn: func(context.Context) ([]*emergency.Record, error) {
			return nil, nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodGet, "/api/v1/alerts/active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Count  int               `json:"count"`
		Alerts []json.RawMessage `json:"alerts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Count != 0 || body.Alerts == nil {
		t.Errorf("body = %s, want empty array not null", rec.Body.String())
	}
}

func TestCancelAlert(t *testing.T) {
	t.Parallel()

	var gotReason string
	svc := &mockService{
		cancelFn: func(_ context.Context, alertID, reason string) error {
			if alertID != "alert-1" {
				return emergency.ErrAlertNotFound
			}
			gotReason = reason
			return nil
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/alert-1/cancel", `{"reason":"false alarm"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotReason != "false alarm" {
		t.Errorf("reason = %q, want false alarm", gotReason)
	}

	// Body is optional.
	rec = doRequest(t, r, http.MethodPost, "/api/v1/alerts/alert-1/cancel", "")
	if rec.Code != http.StatusOK {
		t.Errorf("bodyless cancel status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = doRequest(t, r, http.MethodPost, "/api/v1/alerts/nope/cancel", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown alert cancel status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCancelAlert_Conflict(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		cancelFn: func(context.Context, string, string) error {
			return emergency.ErrStateConflict
		},
	}
	r := newTestRouter(t, svc)

	rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/alert-1/cancel", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestResolveAlert(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		resolveFn: func(_ context.Context, alertID string) error {
			switch alertID {
			case "alert-1":
				return nil
			case "closed":
				return emergency.ErrStateConflict
			default:
				return emergency.ErrAlertNotFound
			}
		},
	}
	r := newTestRouter(t, svc)

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"active alert", "alert-1", http.StatusOK},
		{"already closed", "closed", http.StatusConflict},
		{"unknown", "nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doRequest(t, r, http.MethodPost, "/api/v1/alerts/"+tt.id+"/resolve", "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, &mockService{})

	rec := doRequest(t, r, http.MethodDelete, "/api/v1/alerts", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
