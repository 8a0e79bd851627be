package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory Repository. It backs the
// test suite and the claim simulator, and mirrors the Postgres
// implementation's semantics: status compare-and-set, the unique
// (provider, date, start) slot key, one appointment per slot, and snapshot
// rollback for InTx.
type MemoryRepository struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]Provider
	patients     map[uuid.UUID]Patient
	intervals    map[uuid.UUID]WorkingInterval
	slots        map[uuid.UUID]Slot
	appointments map[uuid.UUID]Appointment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		providers:    make(map[uuid.UUID]Provider),
		patients:     make(map[uuid.UUID]Patient),
		intervals:    make(map[uuid.UUID]WorkingInterval),
		slots:        make(map[uuid.UUID]Slot),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

// PutProvider and PutPatient seed collaborator data the engine itself never
// creates.
func (r *MemoryRepository) PutProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = p
}

func (r *MemoryRepository) PutPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

type snapshot struct {
	intervals    map[uuid.UUID]WorkingInterval
	slots        map[uuid.UUID]Slot
	appointments map[uuid.UUID]Appointment
}

func (r *MemoryRepository) snapshot() snapshot {
	s := snapshot{
		intervals:    make(map[uuid.UUID]WorkingInterval, len(r.intervals)),
		slots:        make(map[uuid.UUID]Slot, len(r.slots)),
		appointments: make(map[uuid.UUID]Appointment, len(r.appointments)),
	}
	for k, v := range r.intervals {
		s.intervals[k] = v
	}
	for k, v := range r.slots {
		s.slots[k] = v
	}
	for k, v := range r.appointments {
		s.appointments[k] = v
	}
	return s
}

func (r *MemoryRepository) restore(s snapshot) {
	r.intervals = s.intervals
	r.slots = s.slots
	r.appointments = s.appointments
}

// InTx holds the repository lock for the whole transaction, which also gives
// the serialization the real store provides through row locking. On error
// the pre-transaction state is restored.
func (r *MemoryRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.snapshot()
	if err := fn(ctx, &memTx{r: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

// memTx is the transaction-bound view handed to InTx callbacks. The lock is
// already held, so it dispatches to the unlocked implementations.
type memTx struct {
	r *MemoryRepository
}

func (t *memTx) InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	return fn(ctx, t)
}

// Unlocked implementations

func (r *MemoryRepository) getProviderByID(id uuid.UUID) (*Provider, error) {
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) listActiveProviders() ([]Provider, error) {
	var out []Provider
	for _, p := range r.providers {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) getPatientByID(id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) getWorkingIntervalByID(id uuid.UUID) (*WorkingInterval, error) {
	wi, ok := r.intervals[id]
	if !ok {
		return nil, ErrWorkingIntervalNotFound
	}
	return &wi, nil
}

func (r *MemoryRepository) listWorkingIntervals(providerID uuid.UUID) ([]WorkingInterval, error) {
	var out []WorkingInterval
	for _, wi := range r.intervals {
		if wi.ProviderID == providerID {
			out = append(out, wi)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r *MemoryRepository) listWorkingIntervalsForDay(providerID uuid.UUID, dayOfWeek int) ([]WorkingInterval, error) {
	all, _ := r.listWorkingIntervals(providerID)
	var out []WorkingInterval
	for _, wi := range all {
		if wi.DayOfWeek == dayOfWeek {
			out = append(out, wi)
		}
	}
	return out, nil
}

func (r *MemoryRepository) createWorkingInterval(wi *WorkingInterval) (*WorkingInterval, error) {
	now := time.Now()
	stored := *wi
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.intervals[stored.ID] = stored
	return &stored, nil
}

func (r *MemoryRepository) updateWorkingInterval(wi *WorkingInterval) (*WorkingInterval, error) {
	existing, ok := r.intervals[wi.ID]
	if !ok {
		return nil, ErrWorkingIntervalNotFound
	}
	existing.DayOfWeek = wi.DayOfWeek
	existing.Segment = wi.Segment
	existing.StartTime = wi.StartTime
	existing.EndTime = wi.EndTime
	existing.UpdatedAt = time.Now()
	r.intervals[wi.ID] = existing
	return &existing, nil
}

func (r *MemoryRepository) deleteWorkingInterval(id uuid.UUID) error {
	if _, ok := r.intervals[id]; !ok {
		return ErrWorkingIntervalNotFound
	}
	delete(r.intervals, id)
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (r *MemoryRepository) getSlotByID(id uuid.UUID) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) slotExists(providerID uuid.UUID, date, start time.Time) (bool, error) {
	for _, s := range r.slots {
		if s.ProviderID == providerID && sameDate(s.Date, date) && s.StartTime.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) createSlot(s *Slot) (*Slot, error) {
	exists, _ := r.slotExists(s.ProviderID, s.Date, s.StartTime)
	if exists {
		return nil, fmt.Errorf("slot already exists at %s %s", s.Date.Format("2006-01-02"), s.StartTime.Format("15:04"))
	}
	now := time.Now()
	stored := *s
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.slots[stored.ID] = stored
	return &stored, nil
}

func (r *MemoryRepository) listSlots(providerID uuid.UUID, filter SlotFilter) ([]Slot, error) {
	var out []Slot
	for _, s := range r.slots {
		if s.ProviderID != providerID {
			continue
		}
		if filter.Date != nil && !sameDate(s.Date, *filter.Date) {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryRepository) deleteFreeSlotsInRange(providerID uuid.UUID, from, to time.Time) (int64, error) {
	var deleted int64
	for id, s := range r.slots {
		if s.ProviderID != providerID || s.Status != SlotFree {
			continue
		}
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		delete(r.slots, id)
		deleted++
	}
	return deleted, nil
}

func (r *MemoryRepository) deleteFreeSlots(providerID uuid.UUID) (int64, error) {
	var deleted int64
	for id, s := range r.slots {
		if s.ProviderID == providerID && s.Status == SlotFree {
			delete(r.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *MemoryRepository) updateSlotStatus(id uuid.UUID, from, to SlotStatus) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok || s.Status != from {
		return nil, ErrSlotNotFound
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	r.slots[id] = s
	return &s, nil
}

func (r *MemoryRepository) setSlotStatus(id uuid.UUID, to SlotStatus) (*Slot, error) {
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	r.slots[id] = s
	return &s, nil
}

func (r *MemoryRepository) getAppointmentByID(id uuid.UUID) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) getAppointmentForSlot(slotID uuid.UUID) (*Appointment, error) {
	for _, a := range r.appointments {
		if a.SlotID == slotID {
			copied := a
			return &copied, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemoryRepository) createAppointment(slotID, patientID uuid.UUID) (*Appointment, error) {
	for _, a := range r.appointments {
		if a.SlotID == slotID {
			return nil, fmt.Errorf("slot %s already has an appointment", slotID)
		}
	}
	now := time.Now()
	a := Appointment{
		ID:        uuid.New(),
		SlotID:    slotID,
		PatientID: patientID,
		Status:    AppointmentScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.appointments[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) updateAppointmentStatus(id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemoryRepository) deleteAppointment(id uuid.UUID) error {
	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *MemoryRepository) getAppointmentDetail(id uuid.UUID) (*AppointmentDetail, error) {
	a, err := r.getAppointmentByID(id)
	if err != nil {
		return nil, err
	}
	return r.hydrate(*a), nil
}

func (r *MemoryRepository) hydrate(a Appointment) *AppointmentDetail {
	d := AppointmentDetail{Appointment: a}
	if s, ok := r.slots[a.SlotID]; ok {
		d.Slot = &s
	}
	if p, ok := r.patients[a.PatientID]; ok {
		d.Patient = &p
	}
	return &d
}

func (r *MemoryRepository) listAppointmentsByPatient(patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for _, a := range r.appointments {
		if a.PatientID == patientID {
			out = append(out, *r.hydrate(a))
		}
	}
	return pageDetails(out, limit, offset), nil
}

func (r *MemoryRepository) listAppointmentsByProvider(providerID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	var out []AppointmentDetail
	for _, a := range r.appointments {
		s, ok := r.slots[a.SlotID]
		if ok && s.ProviderID == providerID {
			out = append(out, *r.hydrate(a))
		}
	}
	return pageDetails(out, limit, offset), nil
}

func pageDetails(details []AppointmentDetail, limit, offset int) []AppointmentDetail {
	sort.Slice(details, func(i, j int) bool {
		si, sj := details[i].Slot, details[j].Slot
		if si == nil || sj == nil {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return si.StartTime.After(sj.StartTime)
	})
	if offset >= len(details) {
		return nil
	}
	details = details[offset:]
	if limit > 0 && limit < len(details) {
		details = details[:limit]
	}
	return details
}

// Locked public wrappers

func (r *MemoryRepository) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getProviderByID(id)
}

func (r *MemoryRepository) ListActiveProviders(_ context.Context) ([]Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listActiveProviders()
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getPatientByID(id)
}

func (r *MemoryRepository) GetWorkingIntervalByID(_ context.Context, id uuid.UUID) (*WorkingInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getWorkingIntervalByID(id)
}

func (r *MemoryRepository) ListWorkingIntervals(_ context.Context, providerID uuid.UUID) ([]WorkingInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listWorkingIntervals(providerID)
}

func (r *MemoryRepository) ListWorkingIntervalsForDay(_ context.Context, providerID uuid.UUID, dayOfWeek int) ([]WorkingInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listWorkingIntervalsForDay(providerID, dayOfWeek)
}

func (r *MemoryRepository) CreateWorkingInterval(_ context.Context, wi *WorkingInterval) (*WorkingInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createWorkingInterval(wi)
}

func (r *MemoryRepository) UpdateWorkingInterval(_ context.Context, wi *WorkingInterval) (*WorkingInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateWorkingInterval(wi)
}

func (r *MemoryRepository) DeleteWorkingInterval(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteWorkingInterval(id)
}

func (r *MemoryRepository) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getSlotByID(id)
}

func (r *MemoryRepository) SlotExists(_ context.Context, providerID uuid.UUID, date, start time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotExists(providerID, date, start)
}

func (r *MemoryRepository) CreateSlot(_ context.Context, s *Slot) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createSlot(s)
}

func (r *MemoryRepository) ListSlots(_ context.Context, providerID uuid.UUID, filter SlotFilter) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listSlots(providerID, filter)
}

func (r *MemoryRepository) DeleteFreeSlotsInRange(_ context.Context, providerID uuid.UUID, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteFreeSlotsInRange(providerID, from, to)
}

func (r *MemoryRepository) DeleteFreeSlots(_ context.Context, providerID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteFreeSlots(providerID)
}

func (r *MemoryRepository) UpdateSlotStatus(_ context.Context, id uuid.UUID, from, to SlotStatus) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateSlotStatus(id, from, to)
}

func (r *MemoryRepository) SetSlotStatus(_ context.Context, id uuid.UUID, to SlotStatus) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setSlotStatus(id, to)
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getAppointmentByID(id)
}

func (r *MemoryRepository) GetAppointmentForSlot(_ context.Context, slotID uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getAppointmentForSlot(slotID)
}

func (r *MemoryRepository) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getAppointmentDetail(id)
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, slotID, patientID uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createAppointment(slotID, patientID)
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateAppointmentStatus(id, to)
}

func (r *MemoryRepository) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteAppointment(id)
}

func (r *MemoryRepository) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listAppointmentsByPatient(patientID, limit, offset)
}

func (r *MemoryRepository) ListAppointmentsByProvider(_ context.Context, providerID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listAppointmentsByProvider(providerID, limit, offset)
}

// memTx wrappers (lock already held by InTx)

func (t *memTx) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	return t.r.getProviderByID(id)
}

func (t *memTx) ListActiveProviders(_ context.Context) ([]Provider, error) {
	return t.r.listActiveProviders()
}

func (t *memTx) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	return t.r.getPatientByID(id)
}

func (t *memTx) GetWorkingIntervalByID(_ context.Context, id uuid.UUID) (*WorkingInterval, error) {
	return t.r.getWorkingIntervalByID(id)
}

func (t *memTx) ListWorkingIntervals(_ context.Context, providerID uuid.UUID) ([]WorkingInterval, error) {
	return t.r.listWorkingIntervals(providerID)
}

func (t *memTx) ListWorkingIntervalsForDay(_ context.Context, providerID uuid.UUID, dayOfWeek int) ([]WorkingInterval, error) {
	return t.r.listWorkingIntervalsForDay(providerID, dayOfWeek)
}

func (t *memTx) CreateWorkingInterval(_ context.Context, wi *WorkingInterval) (*WorkingInterval, error) {
	return t.r.createWorkingInterval(wi)
}

func (t *memTx) UpdateWorkingInterval(_ context.Context, wi *WorkingInterval) (*WorkingInterval, error) {
	return t.r.updateWorkingInterval(wi)
}

func (t *memTx) DeleteWorkingInterval(_ context.Context, id uuid.UUID) error {
	return t.r.deleteWorkingInterval(id)
}

func (t *memTx) GetSlotByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	return t.r.getSlotByID(id)
}

func (t *memTx) SlotExists(_ context.Context, providerID uuid.UUID, date, start time.Time) (bool, error) {
	return t.r.slotExists(providerID, date, start)
}

func (t *memTx) CreateSlot(_ context.Context, s *Slot) (*Slot, error) {
	return t.r.createSlot(s)
}

func (t *memTx) ListSlots(_ context.Context, providerID uuid.UUID, filter SlotFilter) ([]Slot, error) {
	return t.r.listSlots(providerID, filter)
}

func (t *memTx) DeleteFreeSlotsInRange(_ context.Context, providerID uuid.UUID, from, to time.Time) (int64, error) {
	return t.r.deleteFreeSlotsInRange(providerID, from, to)
}

func (t *memTx) DeleteFreeSlots(_ context.Context, providerID uuid.UUID) (int64, error) {
	return t.r.deleteFreeSlots(providerID)
}

func (t *memTx) UpdateSlotStatus(_ context.Context, id uuid.UUID, from, to SlotStatus) (*Slot, error) {
	return t.r.updateSlotStatus(id, from, to)
}

func (t *memTx) SetSlotStatus(_ context.Context, id uuid.UUID, to SlotStatus) (*Slot, error) {
	return t.r.setSlotStatus(id, to)
}

func (t *memTx) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	return t.r.getAppointmentByID(id)
}

func (t *memTx) GetAppointmentForSlot(_ context.Context, slotID uuid.UUID) (*Appointment, error) {
	return t.r.getAppointmentForSlot(slotID)
}

func (t *memTx) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	return t.r.getAppointmentDetail(id)
}

func (t *memTx) CreateAppointment(_ context.Context, slotID, patientID uuid.UUID) (*Appointment, error) {
	return t.r.createAppointment(slotID, patientID)
}

func (t *memTx) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	return t.r.updateAppointmentStatus(id, to)
}

func (t *memTx) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	return t.r.deleteAppointment(id)
}

func (t *memTx) ListAppointmentsByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	return t.r.listAppointmentsByPatient(patientID, limit, offset)
}

func (t *memTx) ListAppointmentsByProvider(_ context.Context, providerID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	return t.r.listAppointmentsByProvider(providerID, limit, offset)
}
