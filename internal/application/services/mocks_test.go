package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
)

// MockCalendarProvider is a testify mock for the CalendarProvider interface
type MockCalendarProvider struct {
	mock.Mock
}

func (m *MockCalendarProvider) CreateCalendar(ctx context.Context, summary, timeZone string) (*providers.ProviderCalendar, error) {
	args := m.Called(ctx, summary, timeZone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ProviderCalendar), args.Error(1)
}

func (m *MockCalendarProvider) GetCalendar(ctx context.Context, calendarID string) (*providers.ProviderCalendar, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ProviderCalendar), args.Error(1)
}

func (m *MockCalendarProvider) DeleteCalendar(ctx context.Context, calendarID string) error {
	args := m.Called(ctx, calendarID)
	return args.Error(0)
}

func (m *MockCalendarProvider) ListAcl(ctx context.Context, calendarID string) ([]providers.AclEntry, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.AclEntry), args.Error(1)
}

func (m *MockCalendarProvider) InsertAcl(ctx context.Context, calendarID string, entry providers.AclEntry) error {
	args := m.Called(ctx, calendarID, entry)
	return args.Error(0)
}

func (m *MockCalendarProvider) QueryFreeBusy(ctx context.Context, calendarID string, start, end time.Time) ([]entities.BusyInterval, error) {
	args := m.Called(ctx, calendarID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.BusyInterval), args.Error(1)
}

func (m *MockCalendarProvider) GetEvent(ctx context.Context, calendarID, eventID string) (*entities.EventSpec, error) {
	args := m.Called(ctx, calendarID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.EventSpec), args.Error(1)
}

func (m *MockCalendarProvider) InsertEvent(ctx context.Context, calendarID string, spec entities.EventSpec) (string, error) {
	args := m.Called(ctx, calendarID, spec)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarProvider) UpdateEvent(ctx context.Context, calendarID, eventID string, spec entities.EventSpec) error {
	args := m.Called(ctx, calendarID, eventID, spec)
	return args.Error(0)
}

func (m *MockCalendarProvider) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	args := m.Called(ctx, calendarID, eventID)
	return args.Error(0)
}

func (m *MockCalendarProvider) WatchEvents(ctx context.Context, calendarID string, spec providers.ChannelSpec) (*providers.WatchResult, error) {
	args := m.Called(ctx, calendarID, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.WatchResult), args.Error(1)
}

func (m *MockCalendarProvider) StopChannel(ctx context.Context, channelID, resourceID string) error {
	args := m.Called(ctx, channelID, resourceID)
	return args.Error(0)
}

func (m *MockCalendarProvider) ListChanges(ctx context.Context, calendarID, syncToken string) (*providers.ChangeSet, error) {
	args := m.Called(ctx, calendarID, syncToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ChangeSet), args.Error(1)
}

// MockBusyCache is a testify mock for the BusyCache interface
type MockBusyCache struct {
	mock.Mock
}

func (m *MockBusyCache) Get(ctx context.Context, key string) ([]entities.BusyInterval, bool) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).([]entities.BusyInterval), args.Bool(1)
}

func (m *MockBusyCache) Set(ctx context.Context, key string, intervals []entities.BusyInterval, ttl time.Duration) {
	m.Called(ctx, key, intervals, ttl)
}

func (m *MockBusyCache) Invalidate(ctx context.Context, calendarID string) {
	m.Called(ctx, calendarID)
}

// MockEventBus is a testify mock for the EventBus interface
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.CalendarEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.CalendarEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.CalendarEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockCalendarDirectory is a testify mock for the CalendarDirectory interface
type MockCalendarDirectory struct {
	mock.Mock
}

func (m *MockCalendarDirectory) Create(ctx context.Context, cal *entities.ManagedCalendar) error {
	args := m.Called(ctx, cal)
	return args.Error(0)
}

func (m *MockCalendarDirectory) GetByCalendarID(ctx context.Context, calendarID string) (*entities.ManagedCalendar, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ManagedCalendar), args.Error(1)
}

func (m *MockCalendarDirectory) GetActiveByPractitioner(ctx context.Context, practitionerID string) (*entities.ManagedCalendar, error) {
	args := m.Called(ctx, practitionerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ManagedCalendar), args.Error(1)
}

func (m *MockCalendarDirectory) UpdateStatus(ctx context.Context, calendarID string, status entities.IntegrationStatus) error {
	args := m.Called(ctx, calendarID, status)
	return args.Error(0)
}

func (m *MockCalendarDirectory) UpdateSyncToken(ctx context.Context, calendarID, syncToken string) error {
	args := m.Called(ctx, calendarID, syncToken)
	return args.Error(0)
}

func (m *MockCalendarDirectory) CountByStatus(ctx context.Context, status entities.IntegrationStatus) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *MockCalendarDirectory) ReplaceChannel(ctx context.Context, calendarID string, channel *entities.WebhookChannel) error {
	args := m.Called(ctx, calendarID, channel)
	return args.Error(0)
}

func (m *MockCalendarDirectory) GetChannel(ctx context.Context, calendarID string) (*entities.WebhookChannel, error) {
	args := m.Called(ctx, calendarID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WebhookChannel), args.Error(1)
}

func (m *MockCalendarDirectory) GetChannelByID(ctx context.Context, channelID string) (*entities.WebhookChannel, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WebhookChannel), args.Error(1)
}

func (m *MockCalendarDirectory) DeleteChannel(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockCalendarDirectory) ListExpiringChannels(ctx context.Context, before time.Time) ([]*entities.WebhookChannel, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.WebhookChannel), args.Error(1)
}

func (m *MockCalendarDirectory) CountActiveChannels(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockCalendarDirectory) CountExpiredChannels(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// MockAppointmentRepository is a testify mock for the AppointmentRepository interface
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) Update(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAppointmentRepository) SetCalendarEvent(ctx context.Context, id, calendarID, eventID string) error {
	args := m.Called(ctx, id, calendarID, eventID)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ListByPractitioner(ctx context.Context, practitionerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, practitionerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

// MockPractitionerRepository is a testify mock for the PractitionerRepository interface
type MockPractitionerRepository struct {
	mock.Mock
}

func (m *MockPractitionerRepository) Create(ctx context.Context, practitioner *entities.Practitioner) error {
	args := m.Called(ctx, practitioner)
	return args.Error(0)
}

func (m *MockPractitionerRepository) GetByID(ctx context.Context, id string) (*entities.Practitioner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Practitioner), args.Error(1)
}

func (m *MockPractitionerRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entities.Practitioner, error) {
	args := m.Called(ctx, activeOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Practitioner), args.Error(1)
}

// MockNotificationSender is a testify mock for the NotificationSender interface
type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) SendBookingConfirmation(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error {
	args := m.Called(ctx, appointment, practitioner)
	return args.Error(0)
}

func (m *MockNotificationSender) SendCancellationNotice(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error {
	args := m.Called(ctx, appointment, practitioner)
	return args.Error(0)
}
