package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/repositories"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/quietroom/therapy-booking/backend/pkg/errors"
)

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment repository adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var appointmentColumns = []interface{}{
	"id", "practitioner_id", "client_name", "client_email", "scheduled_at",
	"duration_minutes", "status", "notes", "calendar_id", "calendar_event_id",
	"created_at", "updated_at",
}

// Create persists a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":                appointment.ID,
		"practitioner_id":   appointment.PractitionerID,
		"client_name":       appointment.ClientName,
		"client_email":      appointment.ClientEmail,
		"scheduled_at":      appointment.ScheduledAt,
		"duration_minutes":  appointment.DurationMinutes,
		"status":            appointment.Status,
		"notes":             appointment.Notes,
		"calendar_id":       appointment.CalendarID,
		"calendar_event_id": appointment.CalendarEventID,
		"created_at":        appointment.CreatedAt,
		"updated_at":        appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by id
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := a.scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}

	return appointment, nil
}

// Update persists appointment changes
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"client_name":       appointment.ClientName,
			"client_email":      appointment.ClientEmail,
			"scheduled_at":      appointment.ScheduledAt,
			"duration_minutes":  appointment.DurationMinutes,
			"status":            appointment.Status,
			"notes":             appointment.Notes,
			"calendar_id":       appointment.CalendarID,
			"calendar_event_id": appointment.CalendarEventID,
			"updated_at":        time.Now(),
		}).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment %s not found", appointment.ID))
	}

	return nil
}

// Cancel marks an appointment cancelled without touching its other fields
func (a *AppointmentAdapter) Cancel(ctx context.Context, id string) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     entities.AppointmentStatusCancelled,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to cancel appointment", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment %s not found", id))
	}

	return nil
}

// SetCalendarEvent records the provider event backing an appointment
func (a *AppointmentAdapter) SetCalendarEvent(ctx context.Context, id, calendarID, eventID string) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"calendar_id":       calendarID,
			"calendar_event_id": eventID,
			"updated_at":        time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to set calendar event", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment %s not found", id))
	}

	return nil
}

// ListByPractitioner lists a practitioner's appointments, newest first
func (a *AppointmentAdapter) ListByPractitioner(ctx context.Context, practitionerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"practitioner_id": practitionerID})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("scheduled_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("scheduled_at").Lt(*filter.To))
	}

	ds = ds.Order(goqu.I("scheduled_at").Desc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := a.scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}

	return appointments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (a *AppointmentAdapter) scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	err := row.Scan(
		&appointment.ID,
		&appointment.PractitionerID,
		&appointment.ClientName,
		&appointment.ClientEmail,
		&appointment.ScheduledAt,
		&appointment.DurationMinutes,
		&appointment.Status,
		&appointment.Notes,
		&appointment.CalendarID,
		&appointment.CalendarEventID,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return appointment, nil
}
