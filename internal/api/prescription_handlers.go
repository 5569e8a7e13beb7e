package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinixsphere/clinic-backend/internal/prescription"
)

func createPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no actor in request context")
			return
		}

		var req CreatePrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		medicines := make([]prescription.Medicine, 0, len(req.Medicines))
		for _, m := range req.Medicines {
			medicines = append(medicines, prescription.Medicine{
				Name:         m.Name,
				Dosage:       m.Dosage,
				Duration:     m.Duration,
				Instructions: m.Instructions,
			})
		}

		p, err := svc.Issue(r.Context(), actor, prescription.IssueInput{
			AppointmentID:   appointmentID,
			Symptoms:        req.Symptoms,
			Diagnosis:       req.Diagnosis,
			Medicines:       medicines,
			AdditionalNotes: req.AdditionalNotes,
		})
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
	}
}

func listPrescriptionsHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no actor in request context")
			return
		}

		list, err := svc.List(r.Context(), actor)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		resp := make([]PrescriptionResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toPrescriptionDetailResponse(&list[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getPrescriptionHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no actor in request context")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_prescription_id", "id must be a valid UUID")
			return
		}

		d, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionDetailResponse(d))
	}
}

func getPrescriptionByAppointmentHandler(svc *prescription.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "no actor in request context")
			return
		}

		appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}

		d, err := svc.GetByAppointment(r.Context(), appointmentID, actor)
		if err != nil {
			handlePrescriptionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPrescriptionDetailResponse(d))
	}
}

func handlePrescriptionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prescription.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, prescription.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, prescription.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, prescription.ErrPrescriptionNotFound):
		writeError(w, http.StatusNotFound, "prescription_not_found", err.Error())
	case errors.Is(err, prescription.ErrAppointmentNotCompleted):
		writeError(w, http.StatusConflict, "appointment_not_completed", err.Error())
	case errors.Is(err, prescription.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "prescription_exists", err.Error())
	case errors.Is(err, prescription.ErrIssuanceLocked):
		writeError(w, http.StatusConflict, "prescription_being_issued", "prescription is currently being issued, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
