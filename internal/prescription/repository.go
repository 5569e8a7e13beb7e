package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinixsphere/clinic-backend/internal/appointment"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrAlreadyExists        = errors.New("prescription already exists for this appointment")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// GetAppointment loads the appointment a prescription would bind to.
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)

	// Create persists the prescription and sets the appointment's back
	// reference in a single transaction. The unique constraint on
	// appointment_id turns a lost race into ErrAlreadyExists.
	Create(ctx context.Context, p *Prescription) (*Prescription, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Detail, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Detail, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error)
}
