package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinixsphere/clinic-backend/internal/auth"
	redisclient "github.com/clinixsphere/clinic-backend/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

var (
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrSlotLocked        = errors.New("slot is currently being booked, please retry")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("action not allowed for this role")
)

// Directory resolves booking targets. Backed by the user service.
type Directory interface {
	IsActiveDoctor(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo      Repository
	directory Directory
	locker    redisclient.Locker
	log       zerolog.Logger
}

func NewService(repo Repository, directory Directory, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		locker:    locker,
		log:       log,
	}
}

type BookingInput struct {
	DoctorID uuid.UUID
	Date     string // YYYY-MM-DD
	TimeSlot string
	Reason   string
	Notes    string
}

// Book reserves a (doctor, date, slot) key for the calling patient. A per key
// lock serializes concurrent requests for the same slot; the partial unique
// index on the appointments table backstops the check should the lock ever
// be bypassed.
func (s *Service) Book(ctx context.Context, actor auth.Actor, in BookingInput) (*Appointment, error) {
	if actor.Role != auth.RolePatient {
		return nil, ErrForbidden
	}

	date, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)
	}
	in.TimeSlot = strings.TrimSpace(in.TimeSlot)
	in.Reason = strings.TrimSpace(in.Reason)
	if in.TimeSlot == "" {
		return nil, fmt.Errorf("%w: time slot is required", ErrInvalidInput)
	}
	if in.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}

	ok, err := s.directory.IsActiveDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}
	if !ok {
		return nil, ErrDoctorNotFound
	}

	var created *Appointment

	key := BookingKey(in.DoctorID, date, in.TimeSlot)
	err = s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		// Inside the critical section re-check for a live appointment on this key
		existing, err := s.repo.GetLiveBySlot(lockCtx, in.DoctorID, date, in.TimeSlot)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check booking key: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.Create(lockCtx, &Appointment{
			PatientID: actor.ID,
			DoctorID:  in.DoctorID,
			Date:      date,
			TimeSlot:  in.TimeSlot,
			Reason:    in.Reason,
			Notes:     in.Notes,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"patient_id": actor.ID.String(),
			"doctor_id":  in.DoctorID.String(),
			"date":       in.Date,
			"time_slot":  in.TimeSlot,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotLocked
		}
		return nil, err
	}

	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("doctor_id", in.DoctorID.String()).
		Str("date", in.Date).
		Str("time_slot", in.TimeSlot).
		Msg("appointment booked")

	return created, nil
}

// SetStatus moves an appointment out of scheduled. Only the bound doctor may
// call it, and only completed or cancelled are accepted as targets; completed
// and cancelled are terminal.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, actor auth.Actor, target Status) (*Appointment, error) {
	if actor.Role != auth.RoleDoctor {
		return nil, ErrForbidden
	}

	if target != StatusCompleted && target != StatusCancelled {
		return nil, fmt.Errorf("%w: status must be completed or cancelled", ErrInvalidInput)
	}

	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	// Non-participants must not learn the appointment exists.
	if appt.DoctorID != actor.ID {
		return nil, ErrAppointmentNotFound
	}

	if appt.Status != StatusScheduled {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusScheduled, target)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the race against another transition.
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	event := EventAppointmentCompleted
	if target == StatusCancelled {
		event = EventAppointmentCancelled
	}
	s.logEvent(ctx, updated.ID, event, map[string]any{
		"doctor_id": actor.ID.String(),
	})

	s.log.Info().
		Str("appointment_id", updated.ID.String()).
		Str("status", string(updated.Status)).
		Msg("appointment status updated")

	return updated, nil
}

// List returns the actor's own appointments, ordered by date ascending.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Detail, error) {
	var (
		result []Detail
		err    error
	)

	switch actor.Role {
	case auth.RoleDoctor:
		result, err = s.repo.ListByDoctor(ctx, actor.ID)
	default:
		result, err = s.repo.ListByPatient(ctx, actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return result, nil
}

// Get returns the appointment only when the actor is a bound participant.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	if d.PatientID != actor.ID && d.DoctorID != actor.ID {
		return nil, ErrAppointmentNotFound
	}

	return d, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
