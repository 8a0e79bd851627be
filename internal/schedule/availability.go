package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/secondheart/scheduling/internal/timeutil"
)

// ValidateInterval checks a proposed working interval against the provider's
// configuration and existing intervals for the same weekday. excludingID,
// when non-nil, names a record being updated so it does not conflict with
// itself. The check mutates nothing.
func (s *Service) ValidateInterval(ctx context.Context, provider *Provider, dayOfWeek int, segment Segment, start, end timeutil.TimeOfDay, excludingID *uuid.UUID) error {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return &ValidationError{Kind: InvalidInterval, Detail: fmt.Sprintf("day_of_week %d is outside 1-7", dayOfWeek)}
	}
	if segment != SegmentBeforeBreak && segment != SegmentAfterBreak {
		return &ValidationError{Kind: InvalidInterval, Detail: fmt.Sprintf("unknown segment %q", segment)}
	}
	if !start.Valid() || !end.Valid() {
		return &ValidationError{Kind: InvalidInterval, Detail: "start and end must be within the day"}
	}
	if start >= end {
		return &ValidationError{Kind: InvalidInterval, Detail: fmt.Sprintf("start %s must be before end %s", start, end)}
	}
	if int(end-start) < provider.AppointmentDuration {
		return &ValidationError{
			Kind:   IntervalTooShort,
			Detail: fmt.Sprintf("interval %s-%s is shorter than one %d minute appointment", start, end, provider.AppointmentDuration),
		}
	}

	existing, err := s.repo.ListWorkingIntervalsForDay(ctx, provider.ID, dayOfWeek)
	if err != nil {
		return fmt.Errorf("list working intervals: %w", err)
	}
	for i := range existing {
		other := existing[i]
		if excludingID != nil && other.ID == *excludingID {
			continue
		}
		// At most one interval per provider, weekday and segment.
		if other.Segment == segment {
			return &ValidationError{
				Kind:     IntervalConflict,
				Detail:   fmt.Sprintf("a %s interval already exists on this day", segment),
				Conflict: &other,
			}
		}
		if timeutil.Overlaps(start, end, other.StartTime, other.EndTime) {
			return &ValidationError{
				Kind:     IntervalConflict,
				Detail:   fmt.Sprintf("interval %s-%s overlaps an existing window", start, end),
				Conflict: &other,
			}
		}
	}
	return nil
}

func (s *Service) CreateWorkingInterval(ctx context.Context, providerID uuid.UUID, dayOfWeek int, segment Segment, start, end timeutil.TimeOfDay) (*WorkingInterval, error) {
	provider, err := s.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateInterval(ctx, provider, dayOfWeek, segment, start, end, nil); err != nil {
		return nil, err
	}

	wi := &WorkingInterval{
		ID:         uuid.New(),
		ProviderID: provider.ID,
		DayOfWeek:  dayOfWeek,
		Segment:    segment,
		StartTime:  start,
		EndTime:    end,
	}
	created, err := s.repo.CreateWorkingInterval(ctx, wi)
	if err != nil {
		return nil, fmt.Errorf("create working interval: %w", err)
	}

	s.log.Info().
		Str("provider_id", provider.ID.String()).
		Int("day_of_week", dayOfWeek).
		Str("segment", string(segment)).
		Msgf("working interval added %s-%s", start, end)

	return created, nil
}

func (s *Service) UpdateWorkingInterval(ctx context.Context, id uuid.UUID, dayOfWeek int, segment Segment, start, end timeutil.TimeOfDay) (*WorkingInterval, error) {
	existing, err := s.repo.GetWorkingIntervalByID(ctx, id)
	if err != nil {
		return nil, err
	}
	provider, err := s.repo.GetProviderByID(ctx, existing.ProviderID)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateInterval(ctx, provider, dayOfWeek, segment, start, end, &existing.ID); err != nil {
		return nil, err
	}

	existing.DayOfWeek = dayOfWeek
	existing.Segment = segment
	existing.StartTime = start
	existing.EndTime = end

	updated, err := s.repo.UpdateWorkingInterval(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update working interval: %w", err)
	}
	return updated, nil
}

func (s *Service) DeleteWorkingInterval(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteWorkingInterval(ctx, id)
}

func (s *Service) ListWorkingIntervals(ctx context.Context, providerID uuid.UUID) ([]WorkingInterval, error) {
	return s.repo.ListWorkingIntervals(ctx, providerID)
}
