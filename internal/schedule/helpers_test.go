package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/secondheart/scheduling/internal/redis"
)

// Monday. Several scenario tests depend on this exact date.
var testToday = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

func newTestService(repo Repository) *Service {
	svc := NewService(repo, redisclient.NewNopLocker(), zerolog.Nop())
	return svc.WithClock(func() time.Time { return testToday })
}

func newTestProvider(repo *MemoryRepository, durationMinutes int) Provider {
	p := Provider{
		ID:                  uuid.New(),
		Name:                "Dr. Quinn",
		AppointmentDuration: durationMinutes,
		Active:              true,
	}
	repo.PutProvider(p)
	return p
}

func newTestPatient(repo *MemoryRepository) Patient {
	p := Patient{
		ID:   uuid.New(),
		Name: "John Doe",
	}
	repo.PutPatient(p)
	return p
}
