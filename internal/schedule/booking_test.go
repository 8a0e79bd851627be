package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookableSlots(t *testing.T, svc *Service, repo *MemoryRepository, provider Provider) []Slot {
	t.Helper()
	mondayMornings(t, svc, provider.ID)
	_, err := svc.Regenerate(context.Background(), provider.ID, 14)
	require.NoError(t, err)
	slots, err := repo.ListSlots(context.Background(), provider.ID, SlotFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	return slots
}

func TestClaimBooksFreeSlot(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	patient := newTestPatient(repo)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	appt, err := svc.Claim(ctx, slots[0].ID, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, slots[0].ID, appt.SlotID)
	assert.Equal(t, patient.ID, appt.PatientID)
	assert.Equal(t, AppointmentScheduled, appt.Status)

	slot, err := repo.GetSlotByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, slot.Status)

	stored, err := repo.GetAppointmentForSlot(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, stored.ID)
}

func TestClaimRejections(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	patient := newTestPatient(repo)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	_, err := svc.Claim(ctx, slots[0].ID, uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)

	_, err = svc.Claim(ctx, uuid.New(), patient.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = svc.Claim(ctx, slots[0].ID, patient.ID)
	require.NoError(t, err)
	_, err = svc.Claim(ctx, slots[0].ID, patient.ID)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestConcurrentClaimsHaveExactlyOneWinner(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	const contenders = 32
	patientIDs := make([]uuid.UUID, contenders)
	for i := range patientIDs {
		patientIDs[i] = newTestPatient(repo).ID
	}

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Claim(ctx, slots[0].ID, patientIDs[i])
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrSlotUnavailable):
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)

	slot, err := repo.GetSlotByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, slot.Status)

	_, err = repo.GetAppointmentForSlot(ctx, slots[0].ID)
	require.NoError(t, err)
}

func TestReleaseFreesSlotAndRemovesAppointment(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	patient := newTestPatient(repo)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	appt, err := svc.Claim(ctx, slots[0].ID, patient.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, appt.ID))

	slot, err := repo.GetSlotByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, SlotFree, slot.Status)

	_, err = repo.GetAppointmentByID(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	assert.ErrorIs(t, svc.Release(ctx, appt.ID), ErrAppointmentNotFound)

	// The slot can be claimed again after the release.
	_, err = svc.Claim(ctx, slots[0].ID, patient.ID)
	require.NoError(t, err)
}

func TestSetAppointmentStatusSyncsSlot(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	patient := newTestPatient(repo)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	appt, err := svc.Claim(ctx, slots[0].ID, patient.ID)
	require.NoError(t, err)

	updated, err := svc.SetAppointmentStatus(ctx, appt.ID, AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, AppointmentCompleted, updated.Status)

	slot, err := repo.GetSlotByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, SlotCompleted, slot.Status)

	// Reverting the appointment pulls the slot back to booked.
	_, err = svc.SetAppointmentStatus(ctx, appt.ID, AppointmentScheduled)
	require.NoError(t, err)
	slot, err = repo.GetSlotByID(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, slot.Status)

	_, err = svc.SetAppointmentStatus(ctx, uuid.New(), AppointmentCompleted)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestGetAppointmentReturnsHydratedDetail(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	patient := newTestPatient(repo)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	appt, err := svc.Claim(ctx, slots[0].ID, patient.ID)
	require.NoError(t, err)

	detail, err := svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, detail.ID)
	require.NotNil(t, detail.Slot)
	assert.Equal(t, slots[0].ID, detail.Slot.ID)
	require.NotNil(t, detail.Patient)
	assert.Equal(t, patient.ID, detail.Patient.ID)

	_, err = svc.GetAppointment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestListAppointmentsPagination(t *testing.T) {
	repo := NewMemoryRepository()
	svc := newTestService(repo)
	provider := newTestProvider(repo, 30)
	patient := newTestPatient(repo)
	slots := bookableSlots(t, svc, repo, provider)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Claim(ctx, slots[i].ID, patient.ID)
		require.NoError(t, err)
	}

	all, err := svc.ListAppointmentsByPatient(ctx, patient.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := svc.ListAppointmentsByPatient(ctx, patient.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := svc.ListAppointmentsByPatient(ctx, patient.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	byProvider, err := svc.ListAppointmentsByProvider(ctx, provider.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, byProvider, 3)

	empty, err := svc.ListAppointmentsByPatient(ctx, uuid.New(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
