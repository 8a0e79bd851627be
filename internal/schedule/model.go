package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/secondheart/scheduling/internal/timeutil"
)

type SlotStatus string

const (
	SlotFree      SlotStatus = "free"
	SlotBooked    SlotStatus = "booked"
	SlotCompleted SlotStatus = "completed"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Segment distinguishes the two daily working windows a provider may keep.
// At most one interval per provider, weekday and segment may exist.
type Segment string

const (
	SegmentBeforeBreak Segment = "before_break"
	SegmentAfterBreak  Segment = "after_break"
)

type Provider struct {
	ID                  uuid.UUID
	Name                string
	Specialty           *string
	AppointmentDuration int // minutes
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkingInterval is one recurring weekly availability window.
type WorkingInterval struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	DayOfWeek  int // ISO, Monday=1 .. Sunday=7
	Segment    Segment
	StartTime  timeutil.TimeOfDay
	EndTime    timeutil.TimeOfDay
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Slot is one discrete bookable unit derived from a WorkingInterval.
type Slot struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Date       time.Time // midnight of the slot's calendar day
	StartTime  time.Time
	EndTime    time.Time
	Status     SlotStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Appointment struct {
	ID        uuid.UUID
	SlotID    uuid.UUID
	PatientID uuid.UUID
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentDetail is an appointment hydrated with its slot and patient.
type AppointmentDetail struct {
	Appointment
	Slot    *Slot
	Patient *Patient
}

// RegenerationResult reports what a Regenerate or GenerateUpcoming run did.
type RegenerationResult struct {
	Created    int
	RangeStart time.Time
	RangeEnd   time.Time
}
