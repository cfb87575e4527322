package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

type bookingFixture struct {
	appointments  *MockAppointmentRepository
	practitioners *MockPractitionerRepository
	directory     *MockCalendarDirectory
	provider      *MockCalendarProvider
	cache         *MockBusyCache
	notifier      *MockNotificationSender
	service       *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		appointments:  new(MockAppointmentRepository),
		practitioners: new(MockPractitionerRepository),
		directory:     new(MockCalendarDirectory),
		provider:      new(MockCalendarProvider),
		cache:         new(MockBusyCache),
		notifier:      new(MockNotificationSender),
	}
	metrics := observability.NewEngineMetrics()
	availability := NewAvailabilityService(
		f.provider, f.cache, f.directory, metrics, nil,
		testCalendarConfig(), testRetryConfig(),
	)
	events := NewEventService(
		f.provider, f.cache, availability, nil, metrics, nil, testRetryConfig(),
	)
	f.service = NewBookingService(f.appointments, f.practitioners, f.directory, events, f.notifier)
	return f
}

func futureAppointment() *entities.Appointment {
	return &entities.Appointment{
		PractitionerID:  "prac-1",
		ClientName:      "Sam Porter",
		ClientEmail:     "sam@example.com",
		ScheduledAt:     time.Now().Add(48 * time.Hour).Truncate(time.Second),
		DurationMinutes: 50,
	}
}

// expectFreeRecheck makes the creation-time conflict recheck see an empty
// calendar for the appointment's window.
func (f *bookingFixture) expectFreeRecheck(calendarID string, appt *entities.Appointment) {
	key := providers.BusyKey(calendarID, appt.ScheduledAt, appt.EndsAt())
	f.cache.On("Invalidate", mock.Anything, calendarID).Return()
	f.cache.On("Get", mock.Anything, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", mock.Anything, calendarID, appt.ScheduledAt, appt.EndsAt()).
		Return([]entities.BusyInterval{}, nil)
	f.cache.On("Set", mock.Anything, key, []entities.BusyInterval{}, mock.Anything).Return()
}

func TestBookingService_BookAppointment_PlacesCalendarHold(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()
	appt := futureAppointment()
	prac := testPractitioner()

	f.practitioners.On("GetByID", ctx, "prac-1").Return(prac, nil)
	f.appointments.On("Create", ctx, appt).Return(nil)
	f.directory.On("GetActiveByPractitioner", ctx, "prac-1").
		Return(&entities.ManagedCalendar{CalendarID: "cal-1"}, nil)
	f.expectFreeRecheck("cal-1", appt)
	f.provider.On("InsertEvent", mock.Anything, "cal-1", mock.MatchedBy(func(spec entities.EventSpec) bool {
		return spec.Summary == "Therapy session" &&
			spec.Start.Equal(appt.ScheduledAt) &&
			spec.End.Equal(appt.EndsAt())
	})).Return("evt-1", nil)
	f.appointments.On("SetCalendarEvent", ctx, mock.Anything, "cal-1", "evt-1").Return(nil)
	f.appointments.On("Update", ctx, appt).Return(nil)
	f.notifier.On("SendBookingConfirmation", ctx, appt, prac).Return(nil)

	err := f.service.BookAppointment(ctx, appt)

	assert.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, entities.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, "cal-1", *appt.CalendarID)
	assert.Equal(t, "evt-1", *appt.CalendarEventID)
	f.notifier.AssertExpectations(t)
}

func TestBookingService_BookAppointment_ConflictCancelsPendingRow(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()
	appt := futureAppointment()
	prac := testPractitioner()

	busy := []entities.BusyInterval{{Start: appt.ScheduledAt, End: appt.EndsAt()}}
	key := providers.BusyKey("cal-1", appt.ScheduledAt, appt.EndsAt())

	f.practitioners.On("GetByID", ctx, "prac-1").Return(prac, nil)
	f.appointments.On("Create", ctx, appt).Return(nil)
	f.directory.On("GetActiveByPractitioner", ctx, "prac-1").
		Return(&entities.ManagedCalendar{CalendarID: "cal-1"}, nil)
	f.cache.On("Invalidate", mock.Anything, "cal-1").Return()
	f.cache.On("Get", mock.Anything, key).Return(nil, false)
	f.provider.On("QueryFreeBusy", mock.Anything, "cal-1", appt.ScheduledAt, appt.EndsAt()).
		Return(busy, nil)
	f.cache.On("Set", mock.Anything, key, busy, mock.Anything).Return()
	f.appointments.On("Cancel", ctx, mock.Anything).Return(nil)

	err := f.service.BookAppointment(ctx, appt)

	conflict, ok := AsConflict(err)
	assert.True(t, ok)
	assert.Equal(t, busy, conflict.Conflicts)
	f.appointments.AssertCalled(t, "Cancel", ctx, appt.ID)
	f.provider.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SendBookingConfirmation", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_BookAppointment_NoManagedCalendar(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()
	appt := futureAppointment()
	prac := testPractitioner()

	f.practitioners.On("GetByID", ctx, "prac-1").Return(prac, nil)
	f.appointments.On("Create", ctx, appt).Return(nil)
	f.directory.On("GetActiveByPractitioner", ctx, "prac-1").
		Return(nil, apperrors.NewNotFoundError("no active calendar"))
	f.appointments.On("Update", ctx, appt).Return(nil)
	f.notifier.On("SendBookingConfirmation", ctx, appt, prac).Return(nil)

	err := f.service.BookAppointment(ctx, appt)

	// Confirmed without a calendar hold.
	assert.NoError(t, err)
	assert.Equal(t, entities.AppointmentStatusConfirmed, appt.Status)
	f.provider.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_BookAppointment_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("past appointment", func(t *testing.T) {
		f := newBookingFixture()
		appt := futureAppointment()
		appt.ScheduledAt = time.Now().Add(-time.Hour)

		err := f.service.BookAppointment(ctx, appt)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("non-positive duration", func(t *testing.T) {
		f := newBookingFixture()
		appt := futureAppointment()
		appt.DurationMinutes = 0

		err := f.service.BookAppointment(ctx, appt)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("inactive practitioner", func(t *testing.T) {
		f := newBookingFixture()
		appt := futureAppointment()
		inactive := testPractitioner()
		inactive.Active = false
		f.practitioners.On("GetByID", ctx, "prac-1").Return(inactive, nil)

		err := f.service.BookAppointment(ctx, appt)

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		f.appointments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestBookingService_CancelAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("releases the calendar hold", func(t *testing.T) {
		f := newBookingFixture()
		calID, evtID := "cal-1", "evt-1"
		appt := futureAppointment()
		appt.ID = "appt-1"
		appt.Status = entities.AppointmentStatusConfirmed
		appt.CalendarID = &calID
		appt.CalendarEventID = &evtID

		f.appointments.On("GetByID", ctx, "appt-1").Return(appt, nil)
		f.provider.On("DeleteEvent", mock.Anything, "cal-1", "evt-1").Return(nil)
		f.cache.On("Invalidate", mock.Anything, "cal-1").Return()
		f.appointments.On("Cancel", ctx, "appt-1").Return(nil)
		f.practitioners.On("GetByID", ctx, "prac-1").Return(testPractitioner(), nil)
		f.notifier.On("SendCancellationNotice", ctx, appt, mock.Anything).Return(nil)

		err := f.service.CancelAppointment(ctx, "appt-1")

		assert.NoError(t, err)
		f.provider.AssertCalled(t, "DeleteEvent", mock.Anything, "cal-1", "evt-1")
	})

	t.Run("already cancelled is a no-op", func(t *testing.T) {
		f := newBookingFixture()
		appt := futureAppointment()
		appt.ID = "appt-1"
		appt.Status = entities.AppointmentStatusCancelled

		f.appointments.On("GetByID", ctx, "appt-1").Return(appt, nil)

		err := f.service.CancelAppointment(ctx, "appt-1")

		assert.NoError(t, err)
		f.appointments.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
	})
}
