package routes

import (
	"net/http"

	"github.com/quietroom/therapy-booking/backend/internal/api/handlers"
	"github.com/quietroom/therapy-booking/backend/internal/api/middleware"
	"github.com/quietroom/therapy-booking/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	calendarHandler     *handlers.CalendarHandler
	availabilityHandler *handlers.AvailabilityHandler
	eventHandler        *handlers.EventHandler
	appointmentHandler  *handlers.AppointmentHandler
	practitionerHandler *handlers.PractitionerHandler
	notificationHandler *handlers.NotificationHandler
	healthHandler       *handlers.HealthHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	calendarHandler *handlers.CalendarHandler,
	availabilityHandler *handlers.AvailabilityHandler,
	eventHandler *handlers.EventHandler,
	appointmentHandler *handlers.AppointmentHandler,
	practitionerHandler *handlers.PractitionerHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		calendarHandler:     calendarHandler,
		availabilityHandler: availabilityHandler,
		eventHandler:        eventHandler,
		appointmentHandler:  appointmentHandler,
		practitionerHandler: practitionerHandler,
		notificationHandler: notificationHandler,
		healthHandler:       healthHandler,

		metrics: metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health and metrics endpoints
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /api/metrics", r.healthHandler.Metrics)

	// Managed calendar endpoints
	r.mux.HandleFunc("POST /api/calendars", r.calendarHandler.ProvisionCalendar)
	r.mux.HandleFunc("GET /api/calendars/{id}", r.calendarHandler.GetCalendar)
	r.mux.HandleFunc("GET /api/calendars/{id}/verify", r.calendarHandler.VerifyCalendar)
	r.mux.HandleFunc("DELETE /api/calendars/{id}", r.calendarHandler.DeleteCalendar)

	// Watch channel endpoints
	r.mux.HandleFunc("POST /api/calendars/{id}/watch", r.calendarHandler.WatchCalendar)
	r.mux.HandleFunc("POST /api/calendars/{id}/watch/renew", r.calendarHandler.RenewChannel)
	r.mux.HandleFunc("DELETE /api/calendars/{id}/watch", r.calendarHandler.StopWatch)

	// Availability endpoints
	r.mux.HandleFunc("GET /api/calendars/{id}/availability", r.availabilityHandler.GetBusy)
	r.mux.HandleFunc("GET /api/practitioners/{id}/availability", r.availabilityHandler.CheckPractitioner)
	r.mux.HandleFunc("POST /api/availability/batch", r.availabilityHandler.CheckBatch)

	// Calendar event endpoints
	r.mux.HandleFunc("POST /api/calendars/{id}/events", r.eventHandler.CreateEvent)
	r.mux.HandleFunc("PATCH /api/calendars/{id}/events/{eventId}", r.eventHandler.UpdateEvent)
	r.mux.HandleFunc("DELETE /api/calendars/{id}/events/{eventId}", r.eventHandler.DeleteEvent)

	// Appointment endpoints
	r.mux.HandleFunc("POST /api/appointments", r.appointmentHandler.BookAppointment)
	r.mux.HandleFunc("GET /api/appointments/{id}", r.appointmentHandler.GetAppointment)
	r.mux.HandleFunc("DELETE /api/appointments/{id}", r.appointmentHandler.CancelAppointment)

	// Practitioner endpoints
	r.mux.HandleFunc("POST /api/practitioners", r.practitionerHandler.CreatePractitioner)
	r.mux.HandleFunc("GET /api/practitioners", r.practitionerHandler.ListPractitioners)
	r.mux.HandleFunc("GET /api/practitioners/{id}", r.practitionerHandler.GetPractitioner)
	r.mux.HandleFunc("GET /api/practitioners/{id}/appointments", r.appointmentHandler.ListAppointments)

	// Provider push notification endpoint
	if r.notificationHandler != nil {
		r.mux.HandleFunc("POST /webhooks/calendar", r.notificationHandler.HandleNotification)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)

	return handler
}
