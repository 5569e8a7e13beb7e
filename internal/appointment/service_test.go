package appointment

import (
	"context"
	"errors"
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

// memRepo is an in-memory Repository with the same conflict semantics as the
// Postgres implementation: at most one live appointment per booking key,
// enforced atomically under a mutex.
type memRepo struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]*Appointment
	events []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *memRepo) Create(ctx context.Context, a *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.appts {
		if existing.Status != StatusCancelled && existing.BookingKey() == a.BookingKey() {
			return nil, ErrSlotTaken
		}
	}

	created := *a
	created.ID = uuid.New()
	created.Status = StatusScheduled
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.appts[created.ID] = &created

	out := created
	return &out, nil
}

func (m *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *a
	return &out, nil
}

func (m *memRepo) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Appointment: *a,
		Patient:     &Participant{ID: a.PatientID},
		Doctor:      &Participant{ID: a.DoctorID},
	}, nil
}

func (m *memRepo) GetLiveBySlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := BookingKey(doctorID, date, timeSlot)
	for _, a := range m.appts {
		if a.Status != StatusCancelled && a.BookingKey() == key {
			out := *a
			return &out, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *memRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()

	out := *a
	return &out, nil
}

func (m *memRepo) listWhere(match func(*Appointment) bool) []Detail {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Detail
	for _, a := range m.appts {
		if match(a) {
			result = append(result, Detail{
				Appointment: *a,
				Patient:     &Participant{ID: a.PatientID},
				Doctor:      &Participant{ID: a.DoctorID},
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

func (m *memRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	return m.listWhere(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *memRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	return m.listWhere(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (m *memRepo) InsertEvent(ctx context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) liveCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.appts {
		if a.Status != StatusCancelled && a.BookingKey() == key {
			n++
		}
	}
	return n
}

// keyLocker serializes callers per key, mirroring the Redis locker without
// the network.
type keyLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *keyLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	km, ok := l.locks[key]
	if !ok {
		km = &sync.Mutex{}
		l.locks[key] = km
	}
	l.mu.Unlock()

	km.Lock()
	defer km.Unlock()
	return fn(ctx)
}

type memDirectory struct {
	doctors map[uuid.UUID]bool
}

func (d *memDirectory) IsActiveDoctor(ctx context.Context, id uuid.UUID) (bool, error) {
	return d.doctors[id], nil
}

func setupService(doctorIDs ...uuid.UUID) (*Service, *memRepo) {
	repo := newMemRepo()
	doctors := make(map[uuid.UUID]bool, len(doctorIDs))
	for _, id := range doctorIDs {
		doctors[id] = true
	}
	svc := NewService(repo, &memDirectory{doctors: doctors}, &keyLocker{}, zerolog.Nop())
	return svc, repo
}

func patientActor() auth.Actor {
	return auth.Actor{ID: uuid.New(), Role: auth.RolePatient}
}

func doctorActor(id uuid.UUID) auth.Actor {
	return auth.Actor{ID: id, Role: auth.RoleDoctor}
}

func TestBook_Success(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	patient := patientActor()

	appt, err := svc.Book(context.Background(), patient, BookingInput{
		DoctorID: doctorID,
		Date:     "2024-03-01",
		TimeSlot: "09:00 AM",
		Reason:   "checkup",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, patient.ID, appt.PatientID)
	assert.Equal(t, doctorID, appt.DoctorID)
	assert.Equal(t, "09:00 AM", appt.TimeSlot)
	assert.NotEqual(t, uuid.Nil, appt.ID)
}

func TestBook_DoctorNotFound(t *testing.T) {
	svc, _ := setupService() // empty directory

	_, err := svc.Book(context.Background(), patientActor(), BookingInput{
		DoctorID: uuid.New(),
		Date:     "2024-03-01",
		TimeSlot: "09:00 AM",
		Reason:   "checkup",
	})

	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestBook_Validation(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	patient := patientActor()

	cases := []struct {
		name string
		in   BookingInput
	}{
		{"malformed date", BookingInput{DoctorID: doctorID, Date: "03/01/2024", TimeSlot: "09:00 AM", Reason: "checkup"}},
		{"empty time slot", BookingInput{DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "  ", Reason: "checkup"}},
		{"empty reason", BookingInput{DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(context.Background(), patient, tc.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestBook_DoctorRoleRejected(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)

	_, err := svc.Book(context.Background(), doctorActor(doctorID), BookingInput{
		DoctorID: doctorID,
		Date:     "2024-03-01",
		TimeSlot: "09:00 AM",
		Reason:   "checkup",
	})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBook_SlotConflict(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)

	patientA := patientActor()
	patientB := patientActor()

	_, err := svc.Book(context.Background(), patientA, BookingInput{
		DoctorID: doctorID, Date: "2024-03-02", TimeSlot: "10:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	// Same doctor/date/slot from another patient conflicts.
	_, err = svc.Book(context.Background(), patientB, BookingInput{
		DoctorID: doctorID, Date: "2024-03-02", TimeSlot: "10:00 AM", Reason: "checkup",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different slot on the same day is free.
	_, err = svc.Book(context.Background(), patientB, BookingInput{
		DoctorID: doctorID, Date: "2024-03-02", TimeSlot: "10:30 AM", Reason: "checkup",
	})
	assert.NoError(t, err)
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	doctorID := uuid.New()
	svc, repo := setupService(doctorID)

	const workers = 50

	var wg sync.WaitGroup
	results := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.Book(context.Background(), patientActor(), BookingInput{
				DoctorID: doctorID,
				Date:     "2024-04-01",
				TimeSlot: "11:00 AM",
				Reason:   "checkup",
			})
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)

	date, _ := time.Parse(time.DateOnly, "2024-04-01")
	assert.Equal(t, 1, repo.liveCount(BookingKey(doctorID, date, "11:00 AM")))
}

func TestCancellationFreesSlot(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	patient := patientActor()

	appt, err := svc.Book(context.Background(), patient, BookingInput{
		DoctorID: doctorID, Date: "2024-01-15", TimeSlot: "10:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, doctorActor(doctorID), StatusCancelled)
	require.NoError(t, err)

	// The booking key is free again.
	rebooked, err := svc.Book(context.Background(), patient, BookingInput{
		DoctorID: doctorID, Date: "2024-01-15", TimeSlot: "10:00 AM", Reason: "follow-up",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, rebooked.Status)
}

func TestSetStatus_Complete(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)

	appt, err := svc.Book(context.Background(), patientActor(), BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	updated, err := svc.SetStatus(context.Background(), appt.ID, doctorActor(doctorID), StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
}

func TestSetStatus_PatientForbidden(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	patient := patientActor()

	appt, err := svc.Book(context.Background(), patient, BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, patient, StatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetStatus_NonOwnerDoctorGetsNotFound(t *testing.T) {
	doctorID := uuid.New()
	otherDoctor := uuid.New()
	svc, _ := setupService(doctorID, otherDoctor)

	appt, err := svc.Book(context.Background(), patientActor(), BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, doctorActor(otherDoctor), StatusCompleted)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestSetStatus_ScheduledTargetRejected(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)

	appt, err := svc.Book(context.Background(), patientActor(), BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), appt.ID, doctorActor(doctorID), StatusScheduled)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetStatus_TerminalStates(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	doctor := doctorActor(doctorID)

	completed, err := svc.Book(context.Background(), patientActor(), BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), completed.ID, doctor, StatusCompleted)
	require.NoError(t, err)

	cancelled, err := svc.Book(context.Background(), patientActor(), BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "02:00 PM", Reason: "checkup",
	})
	require.NoError(t, err)
	_, err = svc.SetStatus(context.Background(), cancelled.ID, doctor, StatusCancelled)
	require.NoError(t, err)

	// No transition is defined out of completed or cancelled.
	_, err = svc.SetStatus(context.Background(), completed.ID, doctor, StatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.SetStatus(context.Background(), cancelled.ID, doctor, StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGet_NonParticipantGetsNotFound(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	owner := patientActor()

	appt, err := svc.Book(context.Background(), owner, BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "checkup",
	})
	require.NoError(t, err)

	// The owner and the bound doctor can read it.
	_, err = svc.Get(context.Background(), appt.ID, owner)
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), appt.ID, doctorActor(doctorID))
	assert.NoError(t, err)

	// Any other patient gets not-found, never forbidden.
	_, err = svc.Get(context.Background(), appt.ID, patientActor())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestList_ScopedAndOrdered(t *testing.T) {
	doctorID := uuid.New()
	svc, _ := setupService(doctorID)
	patientA := patientActor()
	patientB := patientActor()

	_, err := svc.Book(context.Background(), patientA, BookingInput{
		DoctorID: doctorID, Date: "2024-03-05", TimeSlot: "09:00 AM", Reason: "later",
	})
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), patientA, BookingInput{
		DoctorID: doctorID, Date: "2024-03-01", TimeSlot: "09:00 AM", Reason: "earlier",
	})
	require.NoError(t, err)
	_, err = svc.Book(context.Background(), patientB, BookingInput{
		DoctorID: doctorID, Date: "2024-03-02", TimeSlot: "09:00 AM", Reason: "other patient",
	})
	require.NoError(t, err)

	listA, err := svc.List(context.Background(), patientA)
	require.NoError(t, err)
	require.Len(t, listA, 2)
	assert.True(t, listA[0].Date.Before(listA[1].Date))
	for _, d := range listA {
		assert.Equal(t, patientA.ID, d.PatientID)
	}

	listDoc, err := svc.List(context.Background(), doctorActor(doctorID))
	require.NoError(t, err)
	assert.Len(t, listDoc, 3)
}
