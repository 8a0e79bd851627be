package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/secondheart/scheduling/internal/schedule"
)

// Working intervals

func listWorkingIntervalsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		intervals, err := svc.ListWorkingIntervals(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]WorkingIntervalResponse, 0, len(intervals))
		for i := range intervals {
			resp = append(resp, toWorkingIntervalResponse(&intervals[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createWorkingIntervalHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		var req WorkingIntervalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		wi, err := svc.CreateWorkingInterval(r.Context(), providerID, req.DayOfWeek, schedule.Segment(req.Segment), req.StartTime, req.EndTime)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toWorkingIntervalResponse(wi))
	}
}

func updateWorkingIntervalHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req WorkingIntervalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		wi, err := svc.UpdateWorkingInterval(r.Context(), id, req.DayOfWeek, schedule.Segment(req.Segment), req.StartTime, req.EndTime)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toWorkingIntervalResponse(wi))
	}
}

func deleteWorkingIntervalHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.DeleteWorkingInterval(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Slots

func regenerateScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		var req RegenerateRequest
		if r.Body != nil && r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		res, err := svc.Regenerate(r.Context(), providerID, req.HorizonDays)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, RegenerateResponse{
			CreatedSlots: res.Created,
			RangeStart:   res.RangeStart.Format("2006-01-02"),
			RangeEnd:     res.RangeEnd.Format("2006-01-02"),
		})
	}
}

func bulkDeleteFreeSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		deleted, err := svc.DeleteFreeSlots(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BulkDeleteResponse{DeletedSlots: deleted})
	}
}

func listSlotsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		var filter schedule.SlotFilter
		if d := r.URL.Query().Get("date"); d != "" {
			parsed, err := time.Parse("2006-01-02", d)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			filter.Date = &parsed
		}
		if st := r.URL.Query().Get("status"); st != "" {
			status := schedule.SlotStatus(st)
			filter.Status = &status
		}

		slots, err := svc.ListSlots(r.Context(), providerID, filter)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for i := range slots {
			resp = append(resp, toSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Appointments

func claimSlotHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClaimRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		appt, err := svc.Claim(r.Context(), slotID, patientID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentDetailResponse(detail))
	}
}

func listAppointmentsHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		var (
			details []schedule.AppointmentDetail
			err     error
		)
		switch {
		case q.Get("patient_id") != "":
			patientID, perr := uuid.Parse(q.Get("patient_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			details, err = svc.ListAppointmentsByPatient(r.Context(), patientID, limit, offset)
		case q.Get("provider_id") != "":
			providerID, perr := uuid.Parse(q.Get("provider_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
				return
			}
			details, err = svc.ListAppointmentsByProvider(r.Context(), providerID, limit, offset)
		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "patient_id or provider_id is required")
			return
		}
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(details))
		for i := range details {
			resp = append(resp, toAppointmentDetailResponse(&details[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status := schedule.AppointmentStatus(req.Status)
		if status != schedule.AppointmentScheduled && status != schedule.AppointmentCompleted {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be scheduled or completed")
			return
		}

		appt, err := svc.SetAppointmentStatus(r.Context(), id, status)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func releaseAppointmentHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id")
		if !ok {
			return
		}

		if err := svc.Release(r.Context(), id); err != nil {
			handleScheduleError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Shared plumbing

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func handleScheduleError(w http.ResponseWriter, err error) {
	if ve, ok := schedule.AsValidationError(err); ok {
		status := http.StatusBadRequest
		if ve.Kind == schedule.IntervalConflict {
			status = http.StatusConflict
		}
		writeError(w, status, string(ve.Kind), ve.Error())
		return
	}

	switch {
	case errors.Is(err, schedule.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, schedule.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, schedule.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, schedule.ErrWorkingIntervalNotFound):
		writeError(w, http.StatusNotFound, "working_interval_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "slot is not free, pick another one")
	case errors.Is(err, schedule.ErrProviderMisconfigured):
		writeError(w, http.StatusConflict, "provider_misconfigured", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
