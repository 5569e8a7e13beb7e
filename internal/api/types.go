package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinixsphere/clinic-backend/internal/appointment"
	"github.com/clinixsphere/clinic-backend/internal/prescription"
	"github.com/clinixsphere/clinic-backend/internal/user"
)

type RegisterRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	Specialization string `json:"specialization,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	Specialization *string   `json:"specialization,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type BookAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"` // YYYY-MM-DD
	TimeSlot string `json:"time_slot"`
	Reason   string `json:"reason"`
	Notes    string `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ParticipantResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Specialization *string   `json:"specialization,omitempty"`
}

type AppointmentResponse struct {
	ID             uuid.UUID            `json:"id"`
	PatientID      uuid.UUID            `json:"patient_id"`
	DoctorID       uuid.UUID            `json:"doctor_id"`
	Date           string               `json:"date"`
	TimeSlot       string               `json:"time_slot"`
	Reason         string               `json:"reason"`
	Notes          string               `json:"notes,omitempty"`
	Status         string               `json:"status"`
	PrescriptionID *uuid.UUID           `json:"prescription_id,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	Patient        *ParticipantResponse `json:"patient,omitempty"`
	Doctor         *ParticipantResponse `json:"doctor,omitempty"`
}

type MedicineRequest struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

type CreatePrescriptionRequest struct {
	AppointmentID   string            `json:"appointment_id"`
	Symptoms        string            `json:"symptoms"`
	Diagnosis       string            `json:"diagnosis"`
	Medicines       []MedicineRequest `json:"medicines"`
	AdditionalNotes string            `json:"additional_notes,omitempty"`
}

type PrescriptionAppointmentResponse struct {
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	Reason   string `json:"reason"`
	Status   string `json:"status"`
}

type PrescriptionResponse struct {
	ID                   uuid.UUID                        `json:"id"`
	AppointmentID        uuid.UUID                        `json:"appointment_id"`
	PatientID            uuid.UUID                        `json:"patient_id"`
	DoctorID             uuid.UUID                        `json:"doctor_id"`
	Symptoms             string                           `json:"symptoms"`
	Diagnosis            string                           `json:"diagnosis"`
	Medicines            []prescription.Medicine          `json:"medicines"`
	AdditionalNotes      string                           `json:"additional_notes,omitempty"`
	PrescriptionDate     time.Time                        `json:"prescription_date"`
	PatientName          string                           `json:"patient_name,omitempty"`
	DoctorName           string                           `json:"doctor_name,omitempty"`
	DoctorSpecialization *string                          `json:"doctor_specialization,omitempty"`
	Appointment          *PrescriptionAppointmentResponse `json:"appointment,omitempty"`
}

// Mapping helpers

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           string(u.Role),
		Specialization: u.Specialization,
		Phone:          u.Phone,
	}
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:             a.ID,
		PatientID:      a.PatientID,
		DoctorID:       a.DoctorID,
		Date:           a.Date.Format(time.DateOnly),
		TimeSlot:       a.TimeSlot,
		Reason:         a.Reason,
		Notes:          a.Notes,
		Status:         string(a.Status),
		PrescriptionID: a.PrescriptionID,
		CreatedAt:      a.CreatedAt,
	}
}

func toAppointmentDetailResponse(d *appointment.Detail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Patient != nil {
		resp.Patient = &ParticipantResponse{
			ID:    d.Patient.ID,
			Name:  d.Patient.Name,
			Email: d.Patient.Email,
		}
	}
	if d.Doctor != nil {
		resp.Doctor = &ParticipantResponse{
			ID:             d.Doctor.ID,
			Name:           d.Doctor.Name,
			Email:          d.Doctor.Email,
			Specialization: d.Doctor.Specialization,
		}
	}
	return resp
}

func toPrescriptionResponse(p *prescription.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:               p.ID,
		AppointmentID:    p.AppointmentID,
		PatientID:        p.PatientID,
		DoctorID:         p.DoctorID,
		Symptoms:         p.Symptoms,
		Diagnosis:        p.Diagnosis,
		Medicines:        p.Medicines,
		AdditionalNotes:  p.AdditionalNotes,
		PrescriptionDate: p.PrescriptionDate,
	}
}

func toPrescriptionDetailResponse(d *prescription.Detail) PrescriptionResponse {
	resp := toPrescriptionResponse(&d.Prescription)
	resp.PatientName = d.PatientName
	resp.DoctorName = d.DoctorName
	resp.DoctorSpecialization = d.DoctorSpecialization
	resp.Appointment = &PrescriptionAppointmentResponse{
		Date:     d.Appointment.Date.Format(time.DateOnly),
		TimeSlot: d.Appointment.TimeSlot,
		Reason:   d.Appointment.Reason,
		Status:   string(d.Appointment.Status),
	}
	return resp
}
