package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment represents a booked therapy session
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	PractitionerID  string            `json:"practitioner_id" db:"practitioner_id"`
	ClientName      string            `json:"client_name" db:"client_name"`
	ClientEmail     string            `json:"client_email" db:"client_email"`
	ScheduledAt     time.Time         `json:"scheduled_at" db:"scheduled_at"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Notes           string            `json:"notes" db:"notes"`
	CalendarID      *string           `json:"calendar_id,omitempty" db:"calendar_id"`
	CalendarEventID *string           `json:"calendar_event_id,omitempty" db:"calendar_event_id"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// EndsAt returns the end of the booked window
func (a *Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
