package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/secondheart/scheduling/internal/timeutil"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// repository code serves pooled and transaction-bound access.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, q: pool}
}

// InTx runs fn against a transaction-bound repository. A nested call from
// inside a transaction reuses the surrounding one.
func (r *PgRepository) InTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(ctx, &PgRepository{q: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.AppointmentDuration,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email, phone *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	p.Phone = phone
	return &p, nil
}

func scanWorkingInterval(row pgx.Row) (*WorkingInterval, error) {
	var wi WorkingInterval
	var startMinute, endMinute int

	err := row.Scan(
		&wi.ID,
		&wi.ProviderID,
		&wi.DayOfWeek,
		&wi.Segment,
		&startMinute,
		&endMinute,
		&wi.CreatedAt,
		&wi.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkingIntervalNotFound
		}
		return nil, err
	}

	wi.StartTime = timeutil.TimeOfDay(startMinute)
	wi.EndTime = timeutil.TimeOfDay(endMinute)
	return &wi, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.PatientID,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

// Providers and patients

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, specialty, appointment_duration, active, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) ListActiveProviders(ctx context.Context) ([]Provider, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, specialty, appointment_duration, active, created_at, updated_at
		FROM providers
		WHERE active
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

// Working intervals

const workingIntervalCols = `id, provider_id, day_of_week, segment, start_minute, end_minute, created_at, updated_at`

func (r *PgRepository) GetWorkingIntervalByID(ctx context.Context, id uuid.UUID) (*WorkingInterval, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+workingIntervalCols+`
		FROM working_intervals
		WHERE id = $1
	`, id)
	return scanWorkingInterval(row)
}

func (r *PgRepository) ListWorkingIntervals(ctx context.Context, providerID uuid.UUID) ([]WorkingInterval, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+workingIntervalCols+`
		FROM working_intervals
		WHERE provider_id = $1
		ORDER BY day_of_week, start_minute
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWorkingIntervals(rows)
}

func (r *PgRepository) ListWorkingIntervalsForDay(ctx context.Context, providerID uuid.UUID, dayOfWeek int) ([]WorkingInterval, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+workingIntervalCols+`
		FROM working_intervals
		WHERE provider_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`, providerID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectWorkingIntervals(rows)
}

func collectWorkingIntervals(rows pgx.Rows) ([]WorkingInterval, error) {
	var result []WorkingInterval
	for rows.Next() {
		wi, err := scanWorkingInterval(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *wi)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateWorkingInterval(ctx context.Context, wi *WorkingInterval) (*WorkingInterval, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO working_intervals (id, provider_id, day_of_week, segment, start_minute, end_minute, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+workingIntervalCols+`
	`, wi.ID, wi.ProviderID, wi.DayOfWeek, wi.Segment, int(wi.StartTime), int(wi.EndTime))
	return scanWorkingInterval(row)
}

func (r *PgRepository) UpdateWorkingInterval(ctx context.Context, wi *WorkingInterval) (*WorkingInterval, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE working_intervals
		SET day_of_week = $2,
		    segment = $3,
		    start_minute = $4,
		    end_minute = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+workingIntervalCols+`
	`, wi.ID, wi.DayOfWeek, wi.Segment, int(wi.StartTime), int(wi.EndTime))
	return scanWorkingInterval(row)
}

func (r *PgRepository) DeleteWorkingInterval(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM working_intervals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkingIntervalNotFound
	}
	return nil
}

// Slots

const slotCols = `id, provider_id, date, start_time, end_time, status, created_at, updated_at`

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+slotCols+`
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) SlotExists(ctx context.Context, providerID uuid.UUID, date, start time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slots
			WHERE provider_id = $1 AND date = $2 AND start_time = $3
		)
	`, providerID, date, start).Scan(&exists)
	return exists, err
}

func (r *PgRepository) CreateSlot(ctx context.Context, s *Slot) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO slots (id, provider_id, date, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+slotCols+`
	`, s.ID, s.ProviderID, s.Date, s.StartTime, s.EndTime, s.Status)
	return scanSlot(row)
}

func (r *PgRepository) ListSlots(ctx context.Context, providerID uuid.UUID, filter SlotFilter) ([]Slot, error) {
	sql := `
		SELECT ` + slotCols + `
		FROM slots
		WHERE provider_id = $1`
	args := []any{providerID}

	if filter.Date != nil {
		args = append(args, *filter.Date)
		sql += fmt.Sprintf(" AND date = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		sql += fmt.Sprintf(" AND status = $%d", len(args))
	}
	sql += " ORDER BY date, start_time"

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) DeleteFreeSlotsInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM slots
		WHERE provider_id = $1
		  AND date BETWEEN $2 AND $3
		  AND status = 'free'
	`, providerID, from, to)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) DeleteFreeSlots(ctx context.Context, providerID uuid.UUID) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM slots
		WHERE provider_id = $1 AND status = 'free'
	`, providerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) UpdateSlotStatus(ctx context.Context, id uuid.UUID, from, to SlotStatus) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE slots
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+slotCols+`
	`, id, to, from)
	return scanSlot(row)
}

func (r *PgRepository) SetSlotStatus(ctx context.Context, id uuid.UUID, to SlotStatus) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE slots
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotCols+`
	`, id, to)
	return scanSlot(row)
}

// Appointments

const appointmentCols = `id, slot_id, patient_id, status, created_at, updated_at`

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentForSlot(ctx context.Context, slotID uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+appointmentCols+`
		FROM appointments
		WHERE slot_id = $1
	`, slotID)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, slotID, patientID uuid.UUID) (*Appointment, error) {
	id := uuid.New()

	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, patient_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'scheduled', now(), now())
		RETURNING `+appointmentCols+`
	`, id, slotID, patientID)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentCols+`
	`, id, to)
	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

const appointmentDetailQuery = `
	SELECT a.id, a.slot_id, a.patient_id, a.status, a.created_at, a.updated_at,
	       s.id, s.provider_id, s.date, s.start_time, s.end_time, s.status, s.created_at, s.updated_at,
	       p.id, p.name, p.email, p.phone, p.created_at, p.updated_at
	FROM appointments a
	JOIN slots s ON s.id = a.slot_id
	JOIN patients p ON p.id = a.patient_id
`

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var d AppointmentDetail
	var slot Slot
	var patient Patient
	var email, phone *string

	err := row.Scan(
		&d.ID, &d.SlotID, &d.PatientID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&slot.ID, &slot.ProviderID, &slot.Date, &slot.StartTime, &slot.EndTime, &slot.Status, &slot.CreatedAt, &slot.UpdatedAt,
		&patient.ID, &patient.Name, &email, &phone, &patient.CreatedAt, &patient.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	patient.Email = email
	patient.Phone = phone
	d.Slot = &slot
	d.Patient = &patient
	return &d, nil
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.q.QueryRow(ctx, appointmentDetailQuery+` WHERE a.id = $1`, id)
	return scanAppointmentDetail(row)
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.q.Query(ctx, appointmentDetailQuery+`
		WHERE a.patient_id = $1
		ORDER BY s.date DESC, s.start_time DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointmentDetails(rows)
}

func (r *PgRepository) ListAppointmentsByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]AppointmentDetail, error) {
	rows, err := r.q.Query(ctx, appointmentDetailQuery+`
		WHERE s.provider_id = $1
		ORDER BY s.date DESC, s.start_time DESC
		LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointmentDetails(rows)
}

func collectAppointmentDetails(rows pgx.Rows) ([]AppointmentDetail, error) {
	var result []AppointmentDetail
	for rows.Next() {
		d, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}
