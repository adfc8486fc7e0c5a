package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careconnect/internal/clinic"
	"github.com/wolfman30/careconnect/internal/compliance"
	"github.com/wolfman30/careconnect/internal/conversation"
	"github.com/wolfman30/careconnect/internal/notify"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type memoryRepo struct {
	mu       sync.Mutex
	appts    map[string]*Appointment
	capacity map[string]int
	clinics  map[string]ClinicInfo
	err      error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		appts:    make(map[string]*Appointment),
		capacity: make(map[string]int),
		clinics: map[string]ClinicInfo{
			"clinic-1": {Name: "Smile Dental Care", Address: "Andheri East", Phone: "+91 22 4000 2201"},
		},
	}
}

func dayKey(clinicID string, day time.Time) string {
	return clinicID + ":" + day.Format(dateLayout)
}

func (m *memoryRepo) booked(clinicID string, day time.Time) int {
	n := 0
	for _, a := range m.appts {
		if a.ClinicID == clinicID && a.AppointmentDate.Equal(day) && a.Status == StatusConfirmed {
			n++
		}
	}
	return n
}

func (m *memoryRepo) capacityFor(clinicID string, day time.Time, def int) int {
	if c, ok := m.capacity[dayKey(clinicID, day)]; ok {
		return c
	}
	return def
}

func (m *memoryRepo) Create(_ context.Context, appt *Appointment, defaultCapacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.clinics[appt.ClinicID]; !ok {
		return ErrUnknownClinic
	}
	if m.booked(appt.ClinicID, appt.AppointmentDate) >= m.capacityFor(appt.ClinicID, appt.AppointmentDate, defaultCapacity) {
		return ErrFullyBooked
	}
	appt.CreatedAt = testNow
	copied := *appt
	m.appts[appt.ID] = &copied
	return nil
}

func (m *memoryRepo) ListByPatient(_ context.Context, patientID string) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Appointment{}
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memoryRepo) Cancel(_ context.Context, patientID, id string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.PatientID != patientID {
		return nil, ErrAppointmentNotFound
	}
	if a.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	a.Status = StatusCancelled
	now := testNow
	a.CancelledAt = &now
	copied := *a
	return &copied, nil
}

func (m *memoryRepo) Availability(_ context.Context, clinicID string, day time.Time, def int) (Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	capacity, booked := m.capacityFor(clinicID, day, def), m.booked(clinicID, day)
	return Availability{ClinicID: clinicID, Date: day.Format(dateLayout), Capacity: capacity, Booked: booked, Remaining: max(0, capacity-booked)}, nil
}

func (m *memoryRepo) SetCapacity(_ context.Context, clinicID string, day time.Time, capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacity[dayKey(clinicID, day)] = capacity
	return nil
}

func (m *memoryRepo) ClinicInfo(_ context.Context, clinicID string) (ClinicInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.clinics[clinicID]
	if !ok {
		return ClinicInfo{}, ErrUnknownClinic
	}
	return info, nil
}

type fakeSessions map[string]*conversation.State

func (f fakeSessions) Session(_ context.Context, id string) (*conversation.State, error) {
	if s, ok := f[id]; ok {
		return s, nil
	}
	return nil, conversation.ErrSessionNotFound
}

type fakeNotifier struct {
	notices []notify.BookingNotice
	err     error
}

func (f *fakeNotifier) NotifyBookingConfirmed(_ context.Context, n notify.BookingNotice) error {
	f.notices = append(f.notices, n)
	return f.err
}

type auditRecorder struct {
	events []compliance.AuditEvent
}

func (a *auditRecorder) LogEvent(_ context.Context, e compliance.AuditEvent) error {
	a.events = append(a.events, e)
	return nil
}

func strPtr(s string) *string { return &s }

func completedSession(id string) *conversation.State {
	state := conversation.NewState(id, testNow)
	dental := conversation.TreatmentDental
	state.Slots = conversation.Slots{
		MedicalIssue:    strPtr("persistent tooth pain"),
		TreatmentType:   &dental,
		Location:        strPtr("Mumbai"),
		AppointmentDate: strPtr("next Monday"),
	}
	state.Stage = conversation.StageComplete
	state.Recommendations = []clinic.Recommendation{
		{Clinic: clinic.Clinic{ID: "clinic-1", Name: "Smile Dental Care", Rating: 4.9, Services: []string{"dental"}}, Score: 24.8},
	}
	return state
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	notifier *fakeNotifier
	audit    *auditRecorder
}

func newFixture(sessions fakeSessions, capacity int) fixture {
	f := fixture{repo: newMemoryRepo(), notifier: &fakeNotifier{}, audit: &auditRecorder{}}
	f.svc = NewService(f.repo, sessions, f.notifier, f.audit, capacity, nil, WithClock(func() time.Time { return testNow }))
	return f
}

var patient = Patient{ID: "patient-1", Email: "asha@example.com", Name: "Asha"}

func TestServiceBookFromConversation(t *testing.T) {
	f := newFixture(fakeSessions{"conv-1": completedSession("conv-1")}, 8)

	appt, err := f.svc.Book(context.Background(), patient, CreateRequest{ConversationID: "conv-1"})
	require.NoError(t, err)
	assert.Equal(t, "clinic-1", appt.ClinicID)
	assert.Equal(t, "dental", appt.TreatmentType)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), appt.AppointmentDate)
	assert.Equal(t, StatusConfirmed, appt.Status)
	assert.Equal(t, "Smile Dental Care", appt.ClinicName)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, "asha@example.com", f.notifier.notices[0].PatientEmail)
	assert.Equal(t, "Andheri East", f.notifier.notices[0].ClinicAddress)

	require.Len(t, f.audit.events, 1)
	assert.Equal(t, compliance.EventBookingCreated, f.audit.events[0].EventType)
	assert.Equal(t, "conv-1", f.audit.events[0].ConversationID)
	assert.Equal(t, appt.ID, f.audit.events[0].SubjectID)
}

func TestServiceBookExplicitFields(t *testing.T) {
	f := newFixture(nil, 8)

	appt, err := f.svc.Book(context.Background(), patient, CreateRequest{
		ClinicID:        "clinic-1",
		TreatmentType:   "Dental",
		AppointmentDate: "2026-11-02",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC), appt.AppointmentDate)
	assert.Equal(t, "dental", appt.TreatmentType)
}

func TestServiceBookValidation(t *testing.T) {
	incomplete := completedSession("conv-2")
	incomplete.Stage = conversation.StageLocation
	f := newFixture(fakeSessions{"conv-2": incomplete}, 8)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"missing clinic", CreateRequest{TreatmentType: "dental", AppointmentDate: "tomorrow"}, ErrMissingClinic},
		{"unknown treatment", CreateRequest{ClinicID: "clinic-1", TreatmentType: "podiatry", AppointmentDate: "tomorrow"}, ErrInvalidTreatment},
		{"unreadable date", CreateRequest{ClinicID: "clinic-1", TreatmentType: "dental", AppointmentDate: "someday"}, ErrInvalidDate},
		{"past date", CreateRequest{ClinicID: "clinic-1", TreatmentType: "dental", AppointmentDate: "12/03/2026"}, ErrDateInPast},
		{"unknown clinic", CreateRequest{ClinicID: "nope", TreatmentType: "dental", AppointmentDate: "tomorrow"}, ErrUnknownClinic},
		{"unknown conversation", CreateRequest{ConversationID: "missing"}, ErrConversationNotFound},
		{"incomplete conversation", CreateRequest{ConversationID: "conv-2"}, ErrConversationIncomplete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Book(context.Background(), patient, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.notifier.notices)
	assert.Empty(t, f.audit.events)
}

func TestServiceBookEnforcesCapacity(t *testing.T) {
	f := newFixture(nil, 2)
	req := CreateRequest{ClinicID: "clinic-1", TreatmentType: "dental", AppointmentDate: "tomorrow"}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.Book(ctx, patient, req)
		require.NoError(t, err)
	}
	_, err := f.svc.Book(ctx, patient, req)
	assert.ErrorIs(t, err, ErrFullyBooked)

	avail, err := f.svc.Availability(ctx, "clinic-1", "tomorrow")
	require.NoError(t, err)
	assert.Equal(t, Availability{ClinicID: "clinic-1", Date: "2026-10-17", Capacity: 2, Booked: 2, Remaining: 0}, avail)

	require.NoError(t, f.svc.SetCapacity(ctx, "clinic-1", "tomorrow", 3))
	_, err = f.svc.Book(ctx, patient, req)
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.SetCapacity(ctx, "clinic-1", "tomorrow", -1), ErrInvalidCapacity)
}

func TestServiceNotificationFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(nil, 8)
	f.notifier.err = errors.New("sendgrid down")

	_, err := f.svc.Book(context.Background(), patient, CreateRequest{ClinicID: "clinic-1", TreatmentType: "dental", AppointmentDate: "today"})
	assert.NoError(t, err)
}

func TestServiceCancel(t *testing.T) {
	f := newFixture(nil, 1)
	ctx := context.Background()
	req := CreateRequest{ClinicID: "clinic-1", TreatmentType: "dental", AppointmentDate: "tomorrow"}

	appt, err := f.svc.Book(ctx, patient, req)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, "someone-else", appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	cancelled, err := f.svc.Cancel(ctx, patient.ID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(ctx, patient.ID, appt.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	// The freed slot can be booked again.
	_, err = f.svc.Book(ctx, patient, req)
	assert.NoError(t, err)

	list, err := f.svc.List(ctx, patient.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, compliance.EventBookingCancelled, f.audit.events[1].EventType)
}
