package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("time slot is already booked")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// Create persists a new scheduled appointment. It returns ErrSlotTaken
	// when a live appointment already holds the same booking key; the
	// partial unique index makes this atomic with respect to concurrent
	// inserts.
	Create(ctx context.Context, a *Appointment) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)

	// GetLiveBySlot returns the non-cancelled appointment holding the
	// booking key, or ErrAppointmentNotFound.
	GetLiveBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (*Appointment, error)

	// UpdateStatus is a compare-and-swap: the row is updated only when its
	// current status equals from. A miss surfaces as ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
