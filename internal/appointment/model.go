package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Appointment struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           time.Time // calendar date, time-of-day is always midnight UTC
	TimeSlot       string    // opaque label, e.g. "09:00 AM"
	Reason         string
	Notes          string
	Status         Status
	PrescriptionID *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingKey identifies the slot this appointment occupies. At most one
// non-cancelled appointment may hold a given key.
func (a *Appointment) BookingKey() string {
	return BookingKey(a.DoctorID, a.Date, a.TimeSlot)
}

func BookingKey(doctorID uuid.UUID, date time.Time, timeSlot string) string {
	return fmt.Sprintf("slot:%s:%s:%s", doctorID, date.Format(time.DateOnly), timeSlot)
}

// Participant carries the display attributes of a bound patient or doctor.
type Participant struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Specialization *string
}

type Detail struct {
	Appointment
	Patient *Participant
	Doctor  *Participant
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
