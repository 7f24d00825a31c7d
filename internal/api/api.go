// Package api exposes the emergency workflow over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/beacon/internal/emergency"
	"github.com/linnemanlabs/beacon/internal/geo"
)

// EmergencyService defines the business operations the API needs.
type EmergencyService interface {
	RegisterSubject(ctx context.Context, name, phone, email string, contacts []string, medicalInfo string) (*emergency.Subject, error)
	SubjectStatus(ctx context.Context, phone string) (*emergency.SubjectStatus, error)
	UpdateLocation(ctx context.Context, phone string, lat, lon float64) (geo.Fix, error)
	Trigger(ctx context.Context, phone, alertType, message string, lat, lon *float64) (*emergency.TriggerResult, error)
	TriggerQuick(ctx context.Context, phone, alertType string) (*emergency.TriggerResult, error)
	Cancel(ctx context.Context, alertID, reason string) error
	Resolve(ctx context.Context, alertID string) error
	Alert(ctx context.Context, id string) (*emergency.Record, bool, error)
	ActiveAlerts(ctx context.Context) ([]*emergency.Record, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    EmergencyService
}

// New creates a new API handler.
func New(logger log.Logger, svc EmergencyService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("emergency service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/subjects", a.handleRegisterSubject)
		r.Get("/subjects/{phone}", a.handleSubjectStatus)
		r.Post("/locations", a.handleUpdateLocation)

		r.Post("/alerts", a.handleTrigger)
		r.Post("/alerts/quick", a.handleTriggerQuick)
		r.Get("/alerts/active", a.handleActiveAlerts)
		r.Get("/alerts/{id}", a.handleGetAlert)
		r.Post("/alerts/{id}/cancel", a.handleCancelAlert)
		r.Post("/alerts/{id}/resolve", a.handleResolveAlert)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to HTTP statuses. Anything unmapped is
// an internal error and gets logged by the caller.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, emergency.ErrSubjectNotFound):
		writeError(w, http.StatusNotFound, "subject not found")
	case errors.Is(err, emergency.ErrAlertNotFound):
		writeError(w, http.StatusNotFound, "alert not found")
	case errors.Is(err, emergency.ErrSubjectExists):
		writeError(w, http.StatusConflict, "phone number already registered")
	case errors.Is(err, emergency.ErrStateConflict):
		writeError(w, http.StatusConflict, "alert is not active")
	case errors.Is(err, emergency.ErrInvalidAlertType):
		writeError(w, http.StatusBadRequest, "invalid alert type")
	case errors.Is(err, geo.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, "invalid coordinates")
	default:
		a.logger.Error(r.Context(), err, op)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
