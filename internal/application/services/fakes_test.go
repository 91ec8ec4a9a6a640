package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/domain/repositories"
	apperrors "github.com/hospiq/scheduling/pkg/errors"
)

// In-memory fakes for the repository and provider interfaces, kept next to
// the services that consume them.

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type memoryAppointments struct {
	mu    sync.Mutex
	items map[string]*entities.Appointment
}

func newMemoryAppointments() *memoryAppointments {
	return &memoryAppointments{items: map[string]*entities.Appointment{}}
}

func (m *memoryAppointments) Create(_ context.Context, appointment *entities.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[appointment.ID]; ok {
		return apperrors.NewInternalError("duplicate appointment id", nil)
	}
	cp := *appointment
	m.items[appointment.ID] = &cp
	return nil
}

func (m *memoryAppointments) GetByID(_ context.Context, id string) (*entities.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	cp := *stored
	return &cp, nil
}

func (m *memoryAppointments) Update(_ context.Context, appointment *entities.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[appointment.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", appointment.ID))
	}
	cp := *appointment
	m.items[appointment.ID] = &cp
	return nil
}

func (m *memoryAppointments) FindOverlapping(_ context.Context, q repositories.OverlapQuery) ([]*entities.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*entities.Appointment
	for _, a := range m.items {
		if a.ID == q.ExcludeID || a.Status.Terminal() {
			continue
		}
		if q.Kind == entities.ResourceKindDoctor {
			if a.DoctorID == nil || *a.DoctorID != q.ResourceID {
				continue
			}
		} else if a.PatientID != q.ResourceID {
			continue
		}
		if !a.Interval().Overlaps(q.Window) {
			continue
		}
		cp := *a
		matches = append(matches, &cp)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartTime.Before(matches[j].StartTime)
	})
	return matches, nil
}

func (m *memoryAppointments) ListByDoctor(_ context.Context, doctorID string, _ repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entities.Appointment
	for _, a := range m.items {
		if a.DoctorID != nil && *a.DoctorID == doctorID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryAppointments) ListByPatient(_ context.Context, patientID string, _ repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entities.Appointment
	for _, a := range m.items {
		if a.PatientID == patientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryAppointments) seed(appointment *entities.Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *appointment
	m.items[appointment.ID] = &cp
}

type memorySlots struct {
	mu    sync.Mutex
	items map[string]*entities.AvailabilitySlot
}

func newMemorySlots() *memorySlots {
	return &memorySlots{items: map[string]*entities.AvailabilitySlot{}}
}

func (m *memorySlots) Create(_ context.Context, slot *entities.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *slot
	m.items[slot.ID] = &cp
	return nil
}

func (m *memorySlots) GetByID(_ context.Context, id string) (*entities.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("availability slot with id %s not found", id))
	}
	cp := *stored
	return &cp, nil
}

func (m *memorySlots) Update(_ context.Context, slot *entities.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[slot.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("availability slot with id %s not found", slot.ID))
	}
	cp := *slot
	m.items[slot.ID] = &cp
	return nil
}

func (m *memorySlots) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("availability slot with id %s not found", id))
	}
	delete(m.items, id)
	return nil
}

func (m *memorySlots) ListActiveByDoctorDay(_ context.Context, doctorID string, day time.Weekday, date time.Time) ([]*entities.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entities.AvailabilitySlot
	for _, s := range m.items {
		if s.DoctorID != doctorID || !s.IsActive || s.DayOfWeek != day {
			continue
		}
		if s.SpecificDate != nil {
			sy, sm, sd := s.SpecificDate.Date()
			dy, dm, dd := date.Date()
			if sy != dy || sm != dm || sd != dd {
				continue
			}
		}
		cp := *s
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (m *memorySlots) ListActiveByDoctor(_ context.Context, doctorID string) ([]*entities.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*entities.AvailabilitySlot
	for _, s := range m.items {
		if s.DoctorID != doctorID || !s.IsActive {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

type memoryDoctors struct {
	mu   sync.Mutex
	list []*entities.Doctor
}

func (m *memoryDoctors) GetByID(_ context.Context, id string) (*entities.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.list {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor with id %s not found", id))
}

func (m *memoryDoctors) ListActive(_ context.Context) ([]*entities.Doctor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Doctor
	for _, d := range m.list {
		if d.IsActive {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryDoctors) add(d *entities.Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, d)
}

type memoryPatients struct {
	items map[string]*entities.Patient
}

func (m *memoryPatients) GetByID(_ context.Context, id string) (*entities.Patient, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient with id %s not found", id))
}

type memoryServices struct {
	items map[string]*entities.Service
}

func (m *memoryServices) GetByID(_ context.Context, id string) (*entities.Service, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
}

type memoryHistory struct {
	mu      sync.Mutex
	entries []*entities.AppointmentHistory
	failErr error
}

func (m *memoryHistory) Append(_ context.Context, entry *entities.AppointmentHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memoryHistory) ListByAppointment(_ context.Context, appointmentID string) ([]*entities.AppointmentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.AppointmentHistory
	for _, e := range m.entries {
		if e.AppointmentID == appointmentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryHistory) actions(appointmentID string) []entities.HistoryAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.HistoryAction
	for _, e := range m.entries {
		if e.AppointmentID == appointmentID {
			out = append(out, e.Action)
		}
	}
	return out
}

type nopLocker struct{}

func (nopLocker) Acquire(context.Context, []string, time.Duration) (func(), error) {
	return func() {}, nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, []string, time.Duration) (func(), error) {
	return nil, providers.ErrLockBusy
}

type memoryStore struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string][]byte{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok, nil
}

type captureBus struct {
	mu        sync.Mutex
	published []*entities.AppointmentHistory
	failErr   error
}

func (b *captureBus) Publish(_ context.Context, entry *entities.AppointmentHistory) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	cp := *entry
	b.published = append(b.published, &cp)
	return nil
}

func (b *captureBus) Subscribe(context.Context) (<-chan *entities.AppointmentHistory, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *entities.AppointmentHistory, len(b.published))
	for _, e := range b.published {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func (b *captureBus) Close() error { return nil }

// env wires a full scheduling stack over the in-memory fakes.
type env struct {
	clock        *fakeClock
	appointments *memoryAppointments
	slots        *memorySlots
	doctors      *memoryDoctors
	patients     *memoryPatients
	servicesRepo *memoryServices
	historyRepo  *memoryHistory

	availability *AvailabilityService
	conflicts    *ConflictService
	ranking      *RankingService
	assigner     *AssignmentService
	history      *HistoryService
	booking      *BookingService
	reconciler   *ReconciliationService
}

func newEnv() *env {
	e := &env{
		clock:        &fakeClock{now: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)},
		appointments: newMemoryAppointments(),
		slots:        newMemorySlots(),
		doctors:      &memoryDoctors{},
		patients:     &memoryPatients{items: map[string]*entities.Patient{}},
		servicesRepo: &memoryServices{items: map[string]*entities.Service{}},
		historyRepo:  &memoryHistory{},
	}

	e.availability = NewAvailabilityService(e.slots, e.clock)
	e.conflicts = NewConflictService(e.appointments)
	e.ranking = NewRankingService(e.doctors, e.servicesRepo)
	e.assigner = NewAssignmentService(e.ranking, e.availability, e.conflicts, e.clock, 14*24*time.Hour)
	e.history = NewHistoryService(e.historyRepo, nil, e.clock)
	e.booking = NewBookingService(
		e.appointments, e.patients, e.doctors, e.servicesRepo,
		e.conflicts, e.assigner, e.history,
		nopLocker{}, newMemoryStore(), e.clock,
		10*time.Second, 24*time.Hour,
	)
	e.reconciler = NewReconciliationService(e.appointments, e.doctors, e.assigner, e.history, e.clock)

	return e
}

func (e *env) addDoctor(id, departmentID string, seniority entities.Seniority) {
	e.doctors.add(&entities.Doctor{
		ID:           id,
		FullName:     "Dr. " + id,
		DepartmentID: departmentID,
		Preferences:  map[string]string{entities.PreferenceKeySeniority: string(seniority)},
		IsActive:     true,
	})
}

func (e *env) addPatient(id string) {
	e.patients.items[id] = &entities.Patient{ID: id, FullName: "Patient " + id}
}

func (e *env) addService(id, departmentID string) {
	e.servicesRepo.items[id] = &entities.Service{ID: id, Name: "Service " + id, DepartmentID: departmentID}
}

func (e *env) seedAppointment(id, patientID, doctorID string, start, end time.Time, status entities.AppointmentStatus) {
	var doc *string
	if doctorID != "" {
		doc = &doctorID
	}
	now := e.clock.Now()
	e.appointments.seed(&entities.Appointment{
		ID:        id,
		PatientID: patientID,
		DoctorID:  doc,
		ServiceID: "svc",
		StartTime: start,
		EndTime:   end,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (e *env) addSlot(id, doctorID string, day time.Weekday, start, end string) {
	s, _ := entities.ParseTimeOfDay(start)
	en, _ := entities.ParseTimeOfDay(end)
	e.slots.items[id] = &entities.AvailabilitySlot{
		ID:        id,
		DoctorID:  doctorID,
		DayOfWeek: day,
		StartTime: s,
		EndTime:   en,
		IsActive:  true,
	}
}
