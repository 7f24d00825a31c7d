package api

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/beacon/internal/emergency"
)

type triggerRequest struct {
	Phone     string   `json:"phone"`
	AlertType string   `json:"alert_type"`
	Message   string   `json:"message"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (a *API) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	res, err := a.svc.Trigger(r.Context(), req.Phone, req.AlertType, req.Message, req.Latitude, req.Longitude)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to trigger alert")
		return
	}

	a.annotateTrigger(r, res)
	writeJSON(w, http.StatusCreated, res)
}

type quickTriggerRequest struct {
	Phone     string `json:"phone"`
	AlertType string `json:"alert_type"`
}

func (a *API) handleTriggerQuick(w http.ResponseWriter, r *http.Request) {
	var req quickTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	res, err := a.svc.TriggerQuick(r.Context(), req.Phone, req.AlertType)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to trigger quick alert")
		return
	}

	a.annotateTrigger(r, res)
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) annotateTrigger(r *http.Request, res *emergency.TriggerResult) {
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("beacon.alert.id", res.AlertID),
		attribute.Bool("beacon.alert.dispatched", res.Success),
		attribute.String("beacon.alert.location_source", string(res.Location.Source)),
	)
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.alert.id", id))

	rec, ok, err := a.svc.Alert(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get alert", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	span.SetAttributes(attribute.String("beacon.alert.status", string(rec.Status)))
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := a.svc.ActiveAlerts(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list active alerts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if alerts == nil {
		alerts = []*emergency.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (a *API) handleCancelAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.alert.id", id))

	// The body is optional; an empty reason gets a default downstream.
	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := a.svc.Cancel(r.Context(), id, req.Reason); err != nil {
		a.writeServiceError(w, r, err, "failed to cancel alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(emergency.StatusCancelled)})
}

func (a *API) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.alert.id", id))

	if err := a.svc.Resolve(r.Context(), id); err != nil {
		a.writeServiceError(w, r, err, "failed to resolve alert")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(emergency.StatusResolved)})
}
