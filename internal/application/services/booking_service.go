package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

// BookingService books therapy sessions. A booking is held as pending while
// the calendar hold is placed; the conflict recheck inside event creation is
// what finally decides whether the slot is still free.
type BookingService struct {
	appointments  repositories.AppointmentRepository
	practitioners repositories.PractitionerRepository
	directory     repositories.CalendarDirectory
	events        *EventService
	notifier      providers.NotificationSender
}

// NewBookingService creates a new booking service
func NewBookingService(
	appointments repositories.AppointmentRepository,
	practitioners repositories.PractitionerRepository,
	directory repositories.CalendarDirectory,
	events *EventService,
	notifier providers.NotificationSender,
) *BookingService {
	return &BookingService{
		appointments:  appointments,
		practitioners: practitioners,
		directory:     directory,
		events:        events,
		notifier:      notifier,
	}
}

// BookAppointment books a session. The appointment is saved pending, the
// calendar hold placed, then the booking confirmed. A conflict at the hold
// cancels the pending row and surfaces the ConflictError to the caller.
func (s *BookingService) BookAppointment(ctx context.Context, appointment *entities.Appointment) error {
	if appointment.ScheduledAt.Before(time.Now()) {
		return apperrors.NewValidationError("cannot book an appointment in the past")
	}
	if appointment.DurationMinutes <= 0 {
		return apperrors.NewValidationError("appointment duration must be positive")
	}

	practitioner, err := s.practitioners.GetByID(ctx, appointment.PractitionerID)
	if err != nil {
		return err
	}
	if !practitioner.Active {
		return apperrors.NewValidationError("practitioner is not accepting bookings")
	}

	if appointment.ID == "" {
		appointment.ID = uuid.New().String()
	}
	appointment.Status = entities.AppointmentStatusPending
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return err
	}

	cal, err := s.directory.GetActiveByPractitioner(ctx, appointment.PractitionerID)
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}
		// No managed calendar yet: confirm without a calendar hold.
		return s.confirm(ctx, appointment, practitioner)
	}

	spec := entities.EventSpec{
		Summary:   "Therapy session",
		Start:     appointment.ScheduledAt,
		End:       appointment.EndsAt(),
		Attendees: []string{practitioner.Email},
	}

	eventID, err := s.events.CreateEvent(ctx, cal.CalendarID, spec)
	if err != nil {
		if _, isConflict := AsConflict(err); isConflict {
			if cancelErr := s.appointments.Cancel(ctx, appointment.ID); cancelErr != nil {
				observability.LoggerFromContext(ctx).Error().
					Err(cancelErr).
					Str("appointment_id", appointment.ID).
					Msg("failed to cancel conflicting pending appointment")
			}
		}
		return err
	}

	if err := s.appointments.SetCalendarEvent(ctx, appointment.ID, cal.CalendarID, eventID); err != nil {
		return err
	}
	appointment.CalendarID = &cal.CalendarID
	appointment.CalendarEventID = &eventID

	return s.confirm(ctx, appointment, practitioner)
}

func (s *BookingService) confirm(ctx context.Context, appointment *entities.Appointment, practitioner *entities.Practitioner) error {
	appointment.Status = entities.AppointmentStatusConfirmed
	if err := s.appointments.Update(ctx, appointment); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.SendBookingConfirmation(ctx, appointment, practitioner); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("appointment_id", appointment.ID).
				Msg("failed to send booking confirmation")
		}
	}
	return nil
}

// CancelAppointment cancels a booking and releases its calendar hold.
// Cancelling an already-cancelled appointment is a no-op.
func (s *BookingService) CancelAppointment(ctx context.Context, id string) error {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if appointment.Status == entities.AppointmentStatusCancelled {
		return nil
	}

	if appointment.CalendarID != nil && appointment.CalendarEventID != nil {
		if err := s.events.DeleteEvent(ctx, *appointment.CalendarID, *appointment.CalendarEventID); err != nil {
			return err
		}
	}

	if err := s.appointments.Cancel(ctx, id); err != nil {
		return err
	}

	if s.notifier != nil {
		practitioner, perr := s.practitioners.GetByID(ctx, appointment.PractitionerID)
		if perr == nil {
			if err := s.notifier.SendCancellationNotice(ctx, appointment, practitioner); err != nil {
				observability.LoggerFromContext(ctx).Warn().
					Err(err).
					Str("appointment_id", id).
					Msg("failed to send cancellation notice")
			}
		}
	}
	return nil
}

// GetAppointment retrieves a booking by id
func (s *BookingService) GetAppointment(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListAppointments lists a practitioner's bookings
func (s *BookingService) ListAppointments(ctx context.Context, practitionerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return s.appointments.ListByPractitioner(ctx, practitionerID, filter)
}
