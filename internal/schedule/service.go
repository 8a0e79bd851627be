package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	redisclient "github.com/secondheart/scheduling/internal/redis"
)

const (
	// DefaultRegenerateHorizonDays is how far ahead a provider-triggered
	// regeneration materializes slots.
	DefaultRegenerateHorizonDays = 14
	// DefaultUpcomingHorizonDays is the batch worker's forward window.
	DefaultUpcomingHorizonDays = 7
)

var (
	ErrSlotUnavailable       = errors.New("slot is not free")
	ErrProviderMisconfigured = errors.New("provider appointment duration must be positive")
)

type ValidationKind string

const (
	InvalidInterval  ValidationKind = "invalid_interval"
	IntervalTooShort ValidationKind = "interval_too_short"
	IntervalConflict ValidationKind = "interval_conflict"
)

// ValidationError reports why a working interval was rejected. For
// IntervalConflict the offending existing interval is attached so callers
// can tell the provider which window is in the way.
type ValidationError struct {
	Kind     ValidationKind
	Detail   string
	Conflict *WorkingInterval
}

func (e *ValidationError) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("%s: %s (conflicts with %s %s-%s)",
			e.Kind, e.Detail, e.Conflict.Segment, e.Conflict.StartTime, e.Conflict.EndTime)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Service is the scheduling engine: working-interval validation, slot
// generation and the slot/appointment state machine. The HTTP layer and the
// batch worker are thin callers around it.
type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
