package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound        = errors.New("provider not found")
	ErrPatientNotFound         = errors.New("patient not found")
	ErrSlotNotFound            = errors.New("slot not found")
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrWorkingIntervalNotFound = errors.New("working interval not found")
)

// SlotFilter narrows ListSlots; nil fields match everything.
type SlotFilter struct {
	Date   *time.Time
	Status *SlotStatus
}

// Repository contains all DB interactions needed by the engine.
//
// InTx runs fn against a transaction-bound view of the repository; if fn
// returns an error the whole transaction is rolled back. Regeneration and
// claiming rely on this for their all-or-nothing guarantees.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error

	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	ListActiveProviders(ctx context.Context) ([]Provider, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// Recurring weekly availability
	GetWorkingIntervalByID(ctx context.Context, id uuid.UUID) (*WorkingInterval, error)
	ListWorkingIntervals(ctx context.Context, providerID uuid.UUID) ([]WorkingInterval, error)
	ListWorkingIntervalsForDay(ctx context.Context, providerID uuid.UUID, dayOfWeek int) ([]WorkingInterval, error)
	CreateWorkingInterval(ctx context.Context, wi *WorkingInterval) (*WorkingInterval, error)
	UpdateWorkingInterval(ctx context.Context, wi *WorkingInterval) (*WorkingInterval, error)
	DeleteWorkingInterval(ctx context.Context, id uuid.UUID) error

	// Slots
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	SlotExists(ctx context.Context, providerID uuid.UUID, date, start time.Time) (bool, error)
	CreateSlot(ctx context.Context, s *Slot) (*Slot, error)
	ListSlots(ctx context.Context, providerID uuid.UUID, filter SlotFilter) ([]Slot, error)
	// DeleteFreeSlotsInRange removes free slots with date in [from, to];
	// booked and completed slots are never touched.
	DeleteFreeSlotsInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int64, error)
	DeleteFreeSlots(ctx context.Context, providerID uuid.UUID) (int64, error)
	// UpdateSlotStatus transitions a slot from one status to another and
	// fails with ErrSlotNotFound if the slot is not currently in from.
	// This compare-and-set is what makes concurrent claims safe.
	UpdateSlotStatus(ctx context.Context, id uuid.UUID, from, to SlotStatus) (*Slot, error)
	SetSlotStatus(ctx context.Context, id uuid.UUID, to SlotStatus) (*Slot, error)

	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	GetAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, slotID, patientID uuid.UUID) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
	ListAppointmentsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]AppointmentDetail, error)
}
