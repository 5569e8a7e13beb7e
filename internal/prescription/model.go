package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinixsphere/clinic-backend/internal/appointment"
)

// Medicine is a line item owned by exactly one prescription. Stored as jsonb
// alongside the prescription row.
type Medicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

type Prescription struct {
	ID               uuid.UUID
	AppointmentID    uuid.UUID
	PatientID        uuid.UUID // copied from the appointment, never updated
	DoctorID         uuid.UUID // copied from the appointment, never updated
	Symptoms         string
	Diagnosis        string
	Medicines        []Medicine
	AdditionalNotes  string
	PrescriptionDate time.Time
	CreatedAt        time.Time
}

// AppointmentSummary is the slice of the bound appointment shown alongside a
// prescription.
type AppointmentSummary struct {
	Date     time.Time
	TimeSlot string
	Reason   string
	Status   appointment.Status
}

type Detail struct {
	Prescription
	PatientName          string
	DoctorName           string
	DoctorSpecialization *string
	Appointment          AppointmentSummary
}
