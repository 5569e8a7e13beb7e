package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinixsphere/clinic-backend/internal/appointment"
	"github.com/clinixsphere/clinic-backend/internal/auth"
	redisclient "github.com/clinixsphere/clinic-backend/internal/redis"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrAppointmentNotCompleted = errors.New("appointment is not completed")
	ErrIssuanceLocked          = errors.New("prescription is currently being issued, please retry")
	ErrInvalidInput            = errors.New("invalid input")
	ErrForbidden               = errors.New("action not allowed for this role")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

type IssueInput struct {
	AppointmentID   uuid.UUID
	Symptoms        string
	Diagnosis       string
	Medicines       []Medicine
	AdditionalNotes string
}

// Issue creates the one prescription an appointment may ever have. It is
// gated on the appointment being completed and owned by the calling doctor.
// A per appointment lock serializes concurrent issuance attempts; the unique
// constraint on appointment_id backstops the check.
func (s *Service) Issue(ctx context.Context, actor auth.Actor, in IssueInput) (*Prescription, error) {
	if actor.Role != auth.RoleDoctor {
		return nil, ErrForbidden
	}

	if err := validateIssueInput(in); err != nil {
		return nil, err
	}

	var created *Prescription

	key := fmt.Sprintf("rx:%s", in.AppointmentID)
	err := s.locker.WithLock(ctx, key, func(lockCtx context.Context) error {
		appt, err := s.repo.GetAppointment(lockCtx, in.AppointmentID)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				return ErrAppointmentNotFound
			}
			return fmt.Errorf("load appointment: %w", err)
		}

		// Non-participants must not learn the appointment exists.
		if appt.DoctorID != actor.ID {
			return ErrAppointmentNotFound
		}

		if appt.Status != appointment.StatusCompleted {
			return ErrAppointmentNotCompleted
		}

		if appt.PrescriptionID != nil {
			return ErrAlreadyExists
		}

		p, err := s.repo.Create(lockCtx, &Prescription{
			AppointmentID:   in.AppointmentID,
			PatientID:       appt.PatientID,
			DoctorID:        appt.DoctorID,
			Symptoms:        in.Symptoms,
			Diagnosis:       in.Diagnosis,
			Medicines:       in.Medicines,
			AdditionalNotes: in.AdditionalNotes,
		})
		if err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				return err
			}
			return fmt.Errorf("create prescription: %w", err)
		}

		created = p
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrIssuanceLocked
		}
		return nil, err
	}

	s.log.Info().
		Str("prescription_id", created.ID.String()).
		Str("appointment_id", in.AppointmentID.String()).
		Str("doctor_id", actor.ID.String()).
		Msg("prescription issued")

	return created, nil
}

func validateIssueInput(in IssueInput) error {
	if strings.TrimSpace(in.Symptoms) == "" {
		return fmt.Errorf("%w: symptoms are required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return fmt.Errorf("%w: diagnosis is required", ErrInvalidInput)
	}
	if len(in.Medicines) == 0 {
		return fmt.Errorf("%w: at least one medicine is required", ErrInvalidInput)
	}
	for i, m := range in.Medicines {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: medicine %d: name is required", ErrInvalidInput, i+1)
		}
		if strings.TrimSpace(m.Dosage) == "" {
			return fmt.Errorf("%w: medicine %d: dosage is required", ErrInvalidInput, i+1)
		}
		if strings.TrimSpace(m.Duration) == "" {
			return fmt.Errorf("%w: medicine %d: duration is required", ErrInvalidInput, i+1)
		}
	}
	return nil
}

// List returns the actor's own prescriptions, newest first.
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
		return nil, fmt.Errorf("list prescriptions: %w", err)
	}

	return result, nil
}

// Get returns the prescription only when the actor is a bound participant.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Actor) (*Detail, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get prescription: %w", err)
	}

	if d.PatientID != actor.ID && d.DoctorID != actor.ID {
		return nil, ErrPrescriptionNotFound
	}

	return d, nil
}

// GetByAppointment returns the prescription bound to an appointment, scoped
// the same way as Get.
func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID, actor auth.Actor) (*Detail, error) {
	d, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get prescription by appointment: %w", err)
	}

	if d.PatientID != actor.ID && d.DoctorID != actor.ID {
		return nil, ErrPrescriptionNotFound
	}

	return d, nil
}
