package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinixsphere/clinic-backend/internal/auth"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Service struct {
	repo   Repository
	tokens *auth.Manager
	log    zerolog.Logger
}

func NewService(repo Repository, tokens *auth.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		log:    log,
	}
}

type RegisterInput struct {
	Name           string
	Email          string
	Password       string
	Role           auth.Role
	Specialization string
	Phone          string
}

// Register creates an account and returns it together with a session token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	switch {
	case in.Name == "":
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return nil, "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	case len(in.Password) < 6:
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	case !in.Role.Valid():
		return nil, "", fmt.Errorf("%w: role must be patient or doctor", ErrInvalidInput)
	case in.Role == auth.RoleDoctor && strings.TrimSpace(in.Specialization) == "":
		return nil, "", fmt.Errorf("%w: specialization is required for doctors", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if in.Role == auth.RoleDoctor {
		spec := strings.TrimSpace(in.Specialization)
		u.Specialization = &spec
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		u.Phone = &phone
	}

	created, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(created.ID, created.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.Info().
		Str("user_id", created.ID.String()).
		Str("role", string(created.Role)).
		Msg("user registered")

	return created, token, nil
}

// Login verifies credentials and returns the account with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("load user: %w", err)
	}

	if !u.IsActive {
		return nil, "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	return u, token, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListActiveDoctors returns bookable doctors sorted by name.
func (s *Service) ListActiveDoctors(ctx context.Context) ([]User, error) {
	doctors, err := s.repo.ListActiveDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// IsActiveDoctor reports whether id denotes an active doctor account. The
// booking service uses it to validate reservation targets.
func (s *Service) IsActiveDoctor(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load doctor: %w", err)
	}
	return u.Role == auth.RoleDoctor && u.IsActive, nil
}
