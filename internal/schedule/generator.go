package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/secondheart/scheduling/internal/timeutil"
)

// Regenerate rebuilds a provider's bookable slots for [today, today+horizonDays].
// Free slots in the window are discarded and re-derived from the current
// working intervals; booked and completed slots are never deleted, mutated or
// duplicated, so a schedule change can never silently cancel an appointment.
// The whole run happens in one transaction and is idempotent: a second run
// with unchanged availability creates nothing.
func (s *Service) Regenerate(ctx context.Context, providerID uuid.UUID, horizonDays int) (*RegenerationResult, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultRegenerateHorizonDays
	}

	provider, err := s.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider.AppointmentDuration <= 0 {
		return nil, ErrProviderMisconfigured
	}

	today := timeutil.StartOfDay(s.now())
	endDate := today.AddDate(0, 0, horizonDays)

	res := &RegenerationResult{RangeStart: today, RangeEnd: endDate}

	err = s.repo.InTx(ctx, func(ctx context.Context, tx Repository) error {
		deleted, err := tx.DeleteFreeSlotsInRange(ctx, provider.ID, today, endDate)
		if err != nil {
			return fmt.Errorf("delete free slots: %w", err)
		}

		created, err := fillSlots(ctx, tx, provider, today, endDate)
		if err != nil {
			return err
		}
		res.Created = created

		s.log.Info().
			Str("provider_id", provider.ID.String()).
			Int64("deleted_free", deleted).
			Int("created", created).
			Time("range_start", today).
			Time("range_end", endDate).
			Msg("schedule regenerated")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// GenerateUpcoming fills gaps in a provider's schedule for
// [tomorrow, tomorrow+horizonDays-1] without deleting anything. It is the
// batch variant used by the slot worker and produces slot boundaries
// identical to Regenerate for the same availability.
func (s *Service) GenerateUpcoming(ctx context.Context, providerID uuid.UUID, horizonDays int) (*RegenerationResult, error) {
	if horizonDays <= 0 {
		horizonDays = DefaultUpcomingHorizonDays
	}

	provider, err := s.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider.AppointmentDuration <= 0 {
		return nil, ErrProviderMisconfigured
	}

	startDate := timeutil.StartOfDay(s.now()).AddDate(0, 0, 1)
	endDate := startDate.AddDate(0, 0, horizonDays-1)

	created, err := fillSlots(ctx, s.repo, provider, startDate, endDate)
	if err != nil {
		return nil, err
	}

	return &RegenerationResult{Created: created, RangeStart: startDate, RangeEnd: endDate}, nil
}

// GenerateUpcomingAll runs GenerateUpcoming for every active provider,
// skipping misconfigured ones instead of aborting the batch.
func (s *Service) GenerateUpcomingAll(ctx context.Context, horizonDays int) (int, error) {
	providers, err := s.repo.ListActiveProviders(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active providers: %w", err)
	}

	total := 0
	for i := range providers {
		res, err := s.GenerateUpcoming(ctx, providers[i].ID, horizonDays)
		if err != nil {
			if errors.Is(err, ErrProviderMisconfigured) {
				s.log.Warn().
					Str("provider_id", providers[i].ID.String()).
					Msg("skipping provider with non-positive appointment duration")
				continue
			}
			return total, err
		}
		total += res.Created
	}
	return total, nil
}

// DeleteFreeSlots removes every free slot of a provider and reports the
// count. Booked and completed slots stay.
func (s *Service) DeleteFreeSlots(ctx context.Context, providerID uuid.UUID) (int64, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return 0, err
	}
	return s.repo.DeleteFreeSlots(ctx, providerID)
}

func (s *Service) ListSlots(ctx context.Context, providerID uuid.UUID, filter SlotFilter) ([]Slot, error) {
	return s.repo.ListSlots(ctx, providerID, filter)
}

// fillSlots walks each calendar date in [from, to] inclusive, slices every
// working interval for that weekday into appointment-sized sub-intervals and
// creates a free slot wherever none exists yet. Slots that survived a
// preceding delete-free pass are booked or completed and are left untouched.
func fillSlots(ctx context.Context, repo Repository, provider *Provider, from, to time.Time) (int, error) {
	duration := time.Duration(provider.AppointmentDuration) * time.Minute

	created := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		intervals, err := repo.ListWorkingIntervalsForDay(ctx, provider.ID, timeutil.ISOWeekday(d))
		if err != nil {
			return created, fmt.Errorf("list working intervals for %s: %w", d.Format("2006-01-02"), err)
		}
		if len(intervals) == 0 {
			continue
		}

		for _, wi := range intervals {
			parts := timeutil.Slice(timeutil.Combine(d, wi.StartTime), timeutil.Combine(d, wi.EndTime), duration)
			for _, p := range parts {
				exists, err := repo.SlotExists(ctx, provider.ID, d, p.Start)
				if err != nil {
					return created, fmt.Errorf("check slot existence: %w", err)
				}
				if exists {
					continue
				}

				_, err = repo.CreateSlot(ctx, &Slot{
					ID:         uuid.New(),
					ProviderID: provider.ID,
					Date:       d,
					StartTime:  p.Start,
					EndTime:    p.End,
					Status:     SlotFree,
				})
				if err != nil {
					return created, fmt.Errorf("create slot: %w", err)
				}
				created++
			}
		}
	}
	return created, nil
}
