package repositories

import (
	"context"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// AppointmentFilter narrows appointment listings
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// AppointmentRepository persists appointments
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entities.Appointment) error
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)
	Update(ctx context.Context, appointment *entities.Appointment) error
	Cancel(ctx context.Context, id string) error

	// SetCalendarEvent records the provider event backing an appointment
	SetCalendarEvent(ctx context.Context, id, calendarID, eventID string) error

	ListByPractitioner(ctx context.Context, practitionerID string, filter AppointmentFilter) ([]*entities.Appointment, error)
}
