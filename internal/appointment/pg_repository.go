package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var prescriptionID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Date,
		&a.TimeSlot,
		&a.Reason,
		&a.Notes,
		&a.Status,
		&prescriptionID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.PrescriptionID = prescriptionID
	return &a, nil
}

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var prescriptionID *uuid.UUID
	var patient, doctor Participant
	var doctorSpecialization *string

	err := row.Scan(
		&d.ID,
		&d.PatientID,
		&d.DoctorID,
		&d.Date,
		&d.TimeSlot,
		&d.Reason,
		&d.Notes,
		&d.Status,
		&prescriptionID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&patient.Name,
		&patient.Email,
		&doctor.Name,
		&doctor.Email,
		&doctorSpecialization,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.PrescriptionID = prescriptionID
	patient.ID = d.PatientID
	doctor.ID = d.DoctorID
	doctor.Specialization = doctorSpecialization
	d.Patient = &patient
	d.Doctor = &doctor
	return &d, nil
}

const apptColumns = `a.id, a.patient_id, a.doctor_id, a.appointment_date, a.time_slot,
	a.reason, a.notes, a.status, a.prescription_id, a.created_at, a.updated_at`

const detailQuery = `
	SELECT ` + apptColumns + `,
		p.name, p.email,
		d.name, d.email, d.specialization
	FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users d ON d.id = a.doctor_id
`

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, time_slot,
			reason, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'scheduled', now(), now())
		RETURNING id, patient_id, doctor_id, appointment_date, time_slot,
			reason, notes, status, prescription_id, created_at, updated_at
	`, id, a.PatientID, a.DoctorID, a.Date, a.TimeSlot, a.Reason, a.Notes)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments a
		WHERE a.id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) GetLiveBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments a
		WHERE a.doctor_id = $1
		  AND a.appointment_date = $2
		  AND a.time_slot = $3
		  AND a.status <> 'cancelled'
	`, doctorID, date, timeSlot)
	return scanAppointment(row)
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments a
		SET status = $2,
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = $3
		RETURNING id, patient_id, doctor_id, appointment_date, time_slot,
			reason, notes, status, prescription_id, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.appointment_date ASC, a.time_slot ASC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.doctor_id = $1
		ORDER BY a.appointment_date ASC, a.time_slot ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
