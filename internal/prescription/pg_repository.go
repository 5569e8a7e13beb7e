package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinixsphere/clinic-backend/internal/appointment"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var medicines []byte

	err := row.Scan(
		&d.ID,
		&d.AppointmentID,
		&d.PatientID,
		&d.DoctorID,
		&d.Symptoms,
		&d.Diagnosis,
		&medicines,
		&d.AdditionalNotes,
		&d.PrescriptionDate,
		&d.CreatedAt,
		&d.PatientName,
		&d.DoctorName,
		&d.DoctorSpecialization,
		&d.Appointment.Date,
		&d.Appointment.TimeSlot,
		&d.Appointment.Reason,
		&d.Appointment.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrescriptionNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(medicines, &d.Medicines); err != nil {
		return nil, fmt.Errorf("decode medicines: %w", err)
	}

	return &d, nil
}

const detailQuery = `
	SELECT rx.id, rx.appointment_id, rx.patient_id, rx.doctor_id,
		rx.symptoms, rx.diagnosis, rx.medicines, rx.additional_notes,
		rx.prescription_date, rx.created_at,
		p.name, d.name, d.specialization,
		a.appointment_date, a.time_slot, a.reason, a.status
	FROM prescriptions rx
	JOIN users p ON p.id = rx.patient_id
	JOIN users d ON d.id = rx.doctor_id
	JOIN appointments a ON a.id = rx.appointment_id
`

// Interface methods

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	var prescriptionID *uuid.UUID

	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, appointment_date, time_slot,
			reason, notes, status, prescription_id, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(
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
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, err
	}

	a.PrescriptionID = prescriptionID
	return &a, nil
}

func (r *PgRepository) Create(ctx context.Context, p *Prescription) (*Prescription, error) {
	medicines, err := json.Marshal(p.Medicines)
	if err != nil {
		return nil, fmt.Errorf("encode medicines: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	id := uuid.New()

	row := tx.QueryRow(ctx, `
		INSERT INTO prescriptions (id, appointment_id, patient_id, doctor_id,
			symptoms, diagnosis, medicines, additional_notes, prescription_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id, appointment_id, patient_id, doctor_id,
			symptoms, diagnosis, additional_notes, prescription_date, created_at
	`, id, p.AppointmentID, p.PatientID, p.DoctorID,
		p.Symptoms, p.Diagnosis, medicines, p.AdditionalNotes)

	var created Prescription
	err = row.Scan(
		&created.ID,
		&created.AppointmentID,
		&created.PatientID,
		&created.DoctorID,
		&created.Symptoms,
		&created.Diagnosis,
		&created.AdditionalNotes,
		&created.PrescriptionDate,
		&created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert prescription: %w", err)
	}
	created.Medicines = p.Medicines

	// Bind the appointment side inside the same transaction. The guard on
	// prescription_id keeps the back reference write-once.
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET prescription_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND prescription_id IS NULL
	`, p.AppointmentID, created.ID)
	if err != nil {
		return nil, fmt.Errorf("set prescription reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyExists
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE rx.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE rx.appointment_id = $1`, appointmentID)
	return scanDetail(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE rx.patient_id = $1
		ORDER BY rx.prescription_date DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE rx.doctor_id = $1
		ORDER BY rx.prescription_date DESC
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
