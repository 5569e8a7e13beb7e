package user

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinixsphere/clinic-backend/internal/auth"
)

type memRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[uuid.UUID]*User)}
}

func (m *memRepo) Create(ctx context.Context, u *User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, ErrEmailTaken
		}
	}

	created := *u
	created.ID = uuid.New()
	created.IsActive = true
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.users[created.ID] = &created

	out := created
	return &out, nil
}

func (m *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *memRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memRepo) ListActiveDoctors(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []User
	for _, u := range m.users {
		if u.Role == auth.RoleDoctor && u.IsActive {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memRepo) deactivate(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsActive = false
}

func setupService() (*Service, *memRepo) {
	repo := newMemRepo()
	tokens := auth.NewManager("test-secret", time.Hour)
	return NewService(repo, tokens, zerolog.Nop()), repo
}

func doctorInput(name, email string) RegisterInput {
	return RegisterInput{
		Name:           name,
		Email:          email,
		Password:       "password123",
		Role:           auth.RoleDoctor,
		Specialization: "Cardiology",
	}
}

func TestRegister_Patient(t *testing.T) {
	svc, _ := setupService()

	u, token, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Jane Roe",
		Email:    "Jane@Example.com",
		Password: "password123",
		Role:     auth.RolePatient,
	})

	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, auth.RolePatient, u.Role)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "password123", u.PasswordHash)

	// The issued token resolves back to this account.
	actor, err := auth.NewManager("test-secret", time.Hour).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.ID)
	assert.Equal(t, auth.RolePatient, actor.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := setupService()

	_, _, err := svc.Register(context.Background(), doctorInput("Dr. A", "doc@example.com"))
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), doctorInput("Dr. B", "doc@example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := setupService()

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.com", Password: "password123", Role: auth.RolePatient}},
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "password123", Role: auth.RolePatient}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.com", Password: "123", Role: auth.RolePatient}},
		{"bad role", RegisterInput{Name: "A", Email: "a@b.com", Password: "password123", Role: "admin"}},
		{"doctor without specialization", RegisterInput{Name: "A", Email: "a@b.com", Password: "password123", Role: auth.RoleDoctor}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), tc.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _ := setupService()

	registered, _, err := svc.Register(context.Background(), doctorInput("Dr. A", "doc@example.com"))
	require.NoError(t, err)

	u, token, err := svc.Login(context.Background(), "DOC@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), "doc@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, repo := setupService()

	u, _, err := svc.Register(context.Background(), doctorInput("Dr. A", "doc@example.com"))
	require.NoError(t, err)
	repo.deactivate(u.ID)

	_, _, err = svc.Login(context.Background(), "doc@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIsActiveDoctor(t *testing.T) {
	svc, repo := setupService()

	doctor, _, err := svc.Register(context.Background(), doctorInput("Dr. A", "doc@example.com"))
	require.NoError(t, err)

	patient, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "P", Email: "p@example.com", Password: "password123", Role: auth.RolePatient,
	})
	require.NoError(t, err)

	ok, err := svc.IsActiveDoctor(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsActiveDoctor(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown ids are not an error, just not a doctor.
	ok, err = svc.IsActiveDoctor(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	repo.deactivate(doctor.ID)
	ok, err = svc.IsActiveDoctor(context.Background(), doctor.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListActiveDoctors_SortedByName(t *testing.T) {
	svc, repo := setupService()

	_, _, err := svc.Register(context.Background(), doctorInput("Dr. Zed", "zed@example.com"))
	require.NoError(t, err)
	_, _, err = svc.Register(context.Background(), doctorInput("Dr. Abel", "abel@example.com"))
	require.NoError(t, err)
	inactive, _, err := svc.Register(context.Background(), doctorInput("Dr. Gone", "gone@example.com"))
	require.NoError(t, err)
	repo.deactivate(inactive.ID)

	doctors, err := svc.ListActiveDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Dr. Abel", doctors[0].Name)
	assert.Equal(t, "Dr. Zed", doctors[1].Name)
}
