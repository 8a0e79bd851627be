package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	redisclient "github.com/secondheart/scheduling/internal/redis"
)

// Claim books a free slot for a patient. The slot flips free→booked and the
// appointment row is created in the same transaction; a per-slot Redis lock
// narrows contention and the status compare-and-set guarantees that of any
// number of concurrent claims exactly one succeeds, the rest observing
// ErrSlotUnavailable.
func (s *Service) Claim(ctx context.Context, slotID, patientID uuid.UUID) (*Appointment, error) {
	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != SlotFree {
		return nil, ErrSlotUnavailable
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		return s.repo.InTx(lockCtx, func(txCtx context.Context, tx Repository) error {
			// The CAS re-checks the status inside the critical section: a
			// claim that lost the race sees the slot already booked here.
			if _, err := tx.UpdateSlotStatus(txCtx, slotID, SlotFree, SlotBooked); err != nil {
				if errors.Is(err, ErrSlotNotFound) {
					return ErrSlotUnavailable
				}
				return fmt.Errorf("book slot: %w", err)
			}

			appt, err := tx.CreateAppointment(txCtx, slotID, patientID)
			if err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
			created = appt
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}

	s.log.Info().
		Str("slot_id", slotID.String()).
		Str("patient_id", patientID.String()).
		Str("appointment_id", created.ID.String()).
		Msg("slot claimed")

	return created, nil
}

// Release cancels an appointment: the slot goes back to free and the
// appointment row is deleted, atomically. Deletion is the cancellation path;
// there is no cancelled state.
func (s *Service) Release(ctx context.Context, appointmentID uuid.UUID) error {
	err := s.repo.InTx(ctx, func(txCtx context.Context, tx Repository) error {
		appt, err := tx.GetAppointmentByID(txCtx, appointmentID)
		if err != nil {
			return err
		}
		if _, err := tx.SetSlotStatus(txCtx, appt.SlotID, SlotFree); err != nil {
			return fmt.Errorf("free slot: %w", err)
		}
		if err := tx.DeleteAppointment(txCtx, appt.ID); err != nil {
			return fmt.Errorf("delete appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("appointment_id", appointmentID.String()).Msg("appointment released")
	return nil
}

// SetAppointmentStatus updates an appointment and re-derives the bound
// slot's status from it. The mapping runs on every save, not only on
// creation, so the pair can never drift apart.
func (s *Service) SetAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	var updated *Appointment

	err := s.repo.InTx(ctx, func(txCtx context.Context, tx Repository) error {
		appt, err := tx.UpdateAppointmentStatus(txCtx, appointmentID, status)
		if err != nil {
			return err
		}
		if _, err := tx.SetSlotStatus(txCtx, appt.SlotID, slotStatusFor(status)); err != nil {
			return fmt.Errorf("sync slot status: %w", err)
		}
		updated = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// slotStatusFor maps an appointment status onto its slot:
// scheduled ⇒ booked, completed ⇒ completed, anything else ⇒ free.
func slotStatusFor(status AppointmentStatus) SlotStatus {
	switch status {
	case AppointmentScheduled:
		return SlotBooked
	case AppointmentCompleted:
		return SlotCompleted
	default:
		return SlotFree
	}
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListAppointmentsByProvider(ctx, providerID, limit, offset)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
