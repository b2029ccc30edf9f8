package consultation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/skinclinic/skinclinic/internal/domain/catalog"
	"github.com/skinclinic/skinclinic/internal/domain/identity"
	"github.com/skinclinic/skinclinic/internal/domain/notification"
	"github.com/skinclinic/skinclinic/internal/domain/scheduling"
	"github.com/skinclinic/skinclinic/internal/platform/db"
	"github.com/skinclinic/skinclinic/internal/platform/events"
	"github.com/skinclinic/skinclinic/pkg/civil"
)

// -- Mock Repositories --

type mockConsultationRepo struct {
	items map[uuid.UUID]*Consultation
	// photos maps photo id to owning patient id.
	photos   map[uuid.UUID]uuid.UUID
	attached map[uuid.UUID][]uuid.UUID
	// skipSlotCheck makes SlotTaken always report free, simulating a
	// concurrent booking that lands between check and insert.
	skipSlotCheck bool
}

func newMockConsultationRepo() *mockConsultationRepo {
	return &mockConsultationRepo{
		items:    make(map[uuid.UUID]*Consultation),
		photos:   make(map[uuid.UUID]uuid.UUID),
		attached: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockConsultationRepo) active(specialistID uuid.UUID, date civil.Date, t civil.TimeOfDay) bool {
	for _, c := range m.items {
		if c.SpecialistID == specialistID && c.Date == date && c.Time == t && c.Status.Active() {
			return true
		}
	}
	return false
}

func (m *mockConsultationRepo) Insert(_ context.Context, c *Consultation) error {
	if m.active(c.SpecialistID, c.Date, c.Time) {
		return ErrSlotTaken
	}
	c.CreatedAt = time.Now()
	cp := *c
	m.items[c.ID] = &cp
	return nil
}

func (m *mockConsultationRepo) SlotTaken(_ context.Context, specialistID uuid.UUID, date civil.Date, t civil.TimeOfDay) (bool, error) {
	if m.skipSlotCheck {
		return false, nil
	}
	return m.active(specialistID, date, t), nil
}

func (m *mockConsultationRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockConsultationRepo) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*Consultation, error) {
	for _, c := range m.items {
		if c.BookingID == bookingID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockConsultationRepo) filter(keep func(*Consultation) bool) []*Consultation {
	var out []*Consultation
	for _, c := range m.items {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (m *mockConsultationRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	out := m.filter(func(c *Consultation) bool { return c.PatientID == patientID })
	return out, len(out), nil
}

func (m *mockConsultationRepo) ListBySpecialist(_ context.Context, specialistID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	out := m.filter(func(c *Consultation) bool { return c.SpecialistID == specialistID })
	return out, len(out), nil
}

func (m *mockConsultationRepo) ListBySpecialistBetween(_ context.Context, specialistID uuid.UUID, from, to civil.Date) ([]*Consultation, error) {
	return m.filter(func(c *Consultation) bool {
		return c.SpecialistID == specialistID && c.Date.Within(from, to)
	}), nil
}

func (m *mockConsultationRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) error {
	c, ok := m.items[id]
	if !ok || c.Status != from {
		return ErrInvalidTransition
	}
	c.Status = to
	return nil
}

func (m *mockConsultationRepo) AttachPhotos(_ context.Context, consultationID, patientID uuid.UUID, photoIDs []uuid.UUID) (int, error) {
	n := 0
	for _, id := range photoIDs {
		if m.isAttached(consultationID, id) {
			continue
		}
		if owner, ok := m.photos[id]; ok && owner == patientID {
			m.attached[consultationID] = append(m.attached[consultationID], id)
			n++
		}
	}
	return n, nil
}

func (m *mockConsultationRepo) isAttached(consultationID, photoID uuid.UUID) bool {
	for _, id := range m.attached[consultationID] {
		if id == photoID {
			return true
		}
	}
	return false
}

func (m *mockConsultationRepo) PhotoIDs(_ context.Context, consultationID uuid.UUID) ([]uuid.UUID, error) {
	return m.attached[consultationID], nil
}

type mockNoteRepo struct {
	notes map[uuid.UUID]*Note
}

func (m *mockNoteRepo) Get(_ context.Context, consultationID uuid.UUID) (*Note, error) {
	n, ok := m.notes[consultationID]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

func (m *mockNoteRepo) Upsert(_ context.Context, n *Note) error {
	if existing, ok := m.notes[n.ConsultationID]; ok {
		n.ID, n.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		n.ID, n.CreatedAt = uuid.New(), time.Now()
	}
	n.UpdatedAt = time.Now()
	m.notes[n.ConsultationID] = n
	return nil
}

type mockPrescriptionRepo struct {
	items []*Prescription
}

func (m *mockPrescriptionRepo) Create(_ context.Context, p *Prescription) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.items = append(m.items, p)
	return nil
}

func (m *mockPrescriptionRepo) ListByConsultation(_ context.Context, consultationID uuid.UUID) ([]*Prescription, error) {
	var out []*Prescription
	for _, p := range m.items {
		if p.ConsultationID == consultationID {
			out = append(out, p)
		}
	}
	return out, nil
}

// -- Mock scheduling readers --

type mockSchedules struct {
	windows map[uuid.UUID]map[int]*scheduling.AvailabilitySchedule
}

func (m *mockSchedules) set(specialistID uuid.UUID, day int, start, end civil.TimeOfDay) {
	if m.windows[specialistID] == nil {
		m.windows[specialistID] = make(map[int]*scheduling.AvailabilitySchedule)
	}
	m.windows[specialistID][day] = &scheduling.AvailabilitySchedule{
		ID: uuid.New(), SpecialistID: specialistID, DayOfWeek: day,
		StartTime: start, EndTime: end, IsAvailable: true,
	}
}

func (m *mockSchedules) GetForDay(_ context.Context, specialistID uuid.UUID, day int) (*scheduling.AvailabilitySchedule, error) {
	a, ok := m.windows[specialistID][day]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	return a, nil
}

type mockTimeOff struct {
	entries []*scheduling.TimeOff
}

func (m *mockTimeOff) Covering(_ context.Context, specialistID uuid.UUID, date civil.Date) (*scheduling.TimeOff, error) {
	for _, t := range m.entries {
		if t.SpecialistID == specialistID && t.Contains(date) {
			return t, nil
		}
	}
	return nil, scheduling.ErrNotFound
}

// -- Mock collaborators --

type mockProfiles struct {
	patients    map[uuid.UUID]*identity.Patient
	specialists map[uuid.UUID]*identity.Specialist
}

func (m *mockProfiles) PatientForUser(_ context.Context, userID uuid.UUID) (*identity.Patient, error) {
	for _, p := range m.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, identity.ErrNotPatient
}

func (m *mockProfiles) SpecialistForUser(_ context.Context, userID uuid.UUID) (*identity.Specialist, error) {
	for _, sp := range m.specialists {
		if sp.UserID == userID {
			return sp, nil
		}
	}
	return nil, identity.ErrNotSpecialist
}

func (m *mockProfiles) GetPatient(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	if p, ok := m.patients[id]; ok {
		return p, nil
	}
	return nil, identity.ErrNotFound
}

func (m *mockProfiles) GetSpecialist(_ context.Context, id uuid.UUID) (*identity.Specialist, error) {
	if sp, ok := m.specialists[id]; ok {
		return sp, nil
	}
	return nil, identity.ErrNotFound
}

type mockServices struct {
	items map[uuid.UUID]*catalog.Service
}

func (m *mockServices) Get(_ context.Context, id uuid.UUID) (*catalog.Service, error) {
	if s, ok := m.items[id]; ok {
		return s, nil
	}
	return nil, catalog.ErrNotFound
}

type notifyCall struct {
	userID     uuid.UUID
	templateID string
	data       map[string]string
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (m *mockNotifier) Notify(_ context.Context, userID uuid.UUID, templateID string, data map[string]string) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifyCall{userID, templateID, data})
	return &notification.Notification{ID: uuid.New(), UserID: userID}, nil
}

func (m *mockNotifier) last() notifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return notifyCall{}
	}
	return m.calls[len(m.calls)-1]
}

// -- Test environment --

// Fixed clock: Wednesday 2026-10-21 10:00 in the clinic zone.
var testNow = time.Date(2026, time.October, 21, 10, 0, 0, 0, time.UTC)

var (
	nextMonday  = civil.Date{Year: 2026, Month: time.October, Day: 26}
	nextTuesday = civil.Date{Year: 2026, Month: time.October, Day: 27}
	today       = civil.Date{Year: 2026, Month: time.October, Day: 21}
)

type testEnv struct {
	svc           *Service
	consultations *mockConsultationRepo
	notes         *mockNoteRepo
	schedules     *mockSchedules
	timeOff       *mockTimeOff
	profiles      *mockProfiles
	notifier      *mockNotifier
	events        *events.Recorder

	patient    *identity.Patient
	specialist *identity.Specialist
	service    *catalog.Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		consultations: newMockConsultationRepo(),
		notes:         &mockNoteRepo{notes: make(map[uuid.UUID]*Note)},
		schedules:     &mockSchedules{windows: make(map[uuid.UUID]map[int]*scheduling.AvailabilitySchedule)},
		timeOff:       &mockTimeOff{},
		profiles: &mockProfiles{
			patients:    make(map[uuid.UUID]*identity.Patient),
			specialists: make(map[uuid.UUID]*identity.Specialist),
		},
		notifier: &mockNotifier{},
		events:   &events.Recorder{},
	}
	env.patient = env.addPatient("Amina", "Otieno")
	env.specialist = &identity.Specialist{
		ID: uuid.New(), UserID: uuid.New(), FirstName: "Jane", LastName: "Mwangi",
		Specialization: "Dermatology", IsAvailable: true,
	}
	env.profiles.specialists[env.specialist.ID] = env.specialist
	env.service = &catalog.Service{
		ID: uuid.New(), Name: "Acne Treatment", Price: decimal.RequireFromString("2500.50"), DurationMinutes: 30,
	}
	services := &mockServices{items: map[uuid.UUID]*catalog.Service{env.service.ID: env.service}}

	validator := NewValidator(env.schedules, env.timeOff, env.consultations, time.UTC)
	validator.now = func() time.Time { return testNow }

	env.svc = NewService(env.consultations, env.notes, &mockPrescriptionRepo{}, validator,
		env.profiles, services, env.notifier, db.NopTxRunner{}, env.events, zerolog.Nop())
	return env
}

func (env *testEnv) addPatient(first, last string) *identity.Patient {
	p := &identity.Patient{ID: uuid.New(), UserID: uuid.New(), FirstName: first, LastName: last}
	env.profiles.patients[p.ID] = p
	return p
}

func (env *testEnv) request(date civil.Date, hour, minute int) *BookRequest {
	at := civil.MustTime(hour, minute)
	return &BookRequest{
		SpecialistID: env.specialist.ID.String(),
		ServiceID:    env.service.ID.String(),
		Date:         date,
		Time:         &at,
	}
}

// seed stores a consultation directly, bypassing validation.
func (env *testEnv) seed(date civil.Date, hour int, status Status, description string) *Consultation {
	c := &Consultation{
		ID: uuid.New(), BookingID: uuid.New(),
		PatientID: env.patient.ID, SpecialistID: env.specialist.ID, ServiceID: env.service.ID,
		PatientUserID: env.patient.UserID, SpecialistUserID: env.specialist.UserID,
		Date: date, Time: civil.MustTime(hour, 0), Status: status, Description: description,
	}
	env.consultations.items[c.ID] = c
	return c
}
