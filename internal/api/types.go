package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/secondheart/scheduling/internal/schedule"
	"github.com/secondheart/scheduling/internal/timeutil"
)

type WorkingIntervalRequest struct {
	DayOfWeek int                `json:"day_of_week"`
	Segment   string             `json:"segment"`
	StartTime timeutil.TimeOfDay `json:"start_time"`
	EndTime   timeutil.TimeOfDay `json:"end_time"`
}

type WorkingIntervalResponse struct {
	ID         uuid.UUID          `json:"id"`
	ProviderID uuid.UUID          `json:"provider_id"`
	DayOfWeek  int                `json:"day_of_week"`
	Segment    string             `json:"segment"`
	StartTime  timeutil.TimeOfDay `json:"start_time"`
	EndTime    timeutil.TimeOfDay `json:"end_time"`
}

func toWorkingIntervalResponse(wi *schedule.WorkingInterval) WorkingIntervalResponse {
	return WorkingIntervalResponse{
		ID:         wi.ID,
		ProviderID: wi.ProviderID,
		DayOfWeek:  wi.DayOfWeek,
		Segment:    string(wi.Segment),
		StartTime:  wi.StartTime,
		EndTime:    wi.EndTime,
	}
}

type RegenerateRequest struct {
	HorizonDays int `json:"horizon_days"`
}

type RegenerateResponse struct {
	CreatedSlots int    `json:"created_slots"`
	RangeStart   string `json:"range_start"`
	RangeEnd     string `json:"range_end"`
}

type BulkDeleteResponse struct {
	DeletedSlots int64 `json:"deleted_slots"`
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	Date       string    `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
}

func toSlotResponse(s *schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		Date:       s.Date.Format("2006-01-02"),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Status:     string(s.Status),
	}
}

type ClaimRequest struct {
	SlotID    string `json:"slot_id"`
	PatientID string `json:"patient_id"`
}

type UpdateAppointmentRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID        uuid.UUID     `json:"id"`
	SlotID    uuid.UUID     `json:"slot_id"`
	PatientID uuid.UUID     `json:"patient_id"`
	Status    string        `json:"status"`
	Slot      *SlotResponse `json:"slot,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func toAppointmentResponse(a *schedule.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		SlotID:    a.SlotID,
		PatientID: a.PatientID,
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
	}
}

func toAppointmentDetailResponse(d *schedule.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Slot != nil {
		slot := toSlotResponse(d.Slot)
		resp.Slot = &slot
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
