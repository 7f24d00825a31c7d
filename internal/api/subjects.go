package api

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
)

type registerRequest struct {
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	Email       string   `json:"email"`
	Contacts    []string `json:"emergency_contacts"`
	MedicalInfo string   `json:"medical_info"`
}

func (a *API) handleRegisterSubject(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}

	sub, err := a.svc.RegisterSubject(r.Context(), req.Name, req.Phone, req.Email, req.Contacts, req.MedicalInfo)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to register subject")
		return
	}

	a.logger.Info(r.Context(), "subject registered via api", "subject_id", sub.ID)
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) handleSubjectStatus(w http.ResponseWriter, r *http.Request) {
	phone := chi.URLParam(r, "phone")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.subject.phone", phone))

	st, err := a.svc.SubjectStatus(r.Context(), phone)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to get subject status")
		return
	}

	writeJSON(w, http.StatusOK, st)
}

type locationRequest struct {
	Phone     string  `json:"phone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (a *API) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}

	fix, err := a.svc.UpdateLocation(r.Context(), req.Phone, req.Latitude, req.Longitude)
	if err != nil {
		a.writeServiceError(w, r, err, "failed to update location")
		return
	}

	writeJSON(w, http.StatusOK, fix)
}
