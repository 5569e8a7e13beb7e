package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinixsphere/clinic-backend/internal/auth"
)

type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	PasswordHash   string
	Role           auth.Role
	Specialization *string
	Phone          *string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
