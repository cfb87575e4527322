package entities

import (
	"time"
)

// IntegrationStatus represents the lifecycle state of a managed calendar
type IntegrationStatus string

const (
	IntegrationStatusPending IntegrationStatus = "pending"
	IntegrationStatusActive  IntegrationStatus = "active"
	IntegrationStatusError   IntegrationStatus = "error"
	IntegrationStatusRemoved IntegrationStatus = "removed"
)

// AclRole represents the permission level granted on a calendar
type AclRole string

const (
	AclRoleWriter AclRole = "writer"
	AclRoleReader AclRole = "reader"
)

// ManagedCalendar is the dedicated provider-side calendar owned by the
// platform for a single practitioner. At most one active calendar exists
// per practitioner.
type ManagedCalendar struct {
	ID             string            `json:"id" db:"id"`
	PractitionerID string            `json:"practitioner_id" db:"practitioner_id"`
	CalendarID     string            `json:"calendar_id" db:"calendar_id"`
	OwnerEmail     string            `json:"owner_email" db:"owner_email"`
	SharedEmail    string            `json:"shared_email" db:"shared_email"`
	AclRole        AclRole           `json:"acl_role" db:"acl_role"`
	Status         IntegrationStatus `json:"status" db:"status"`
	SyncToken      string            `json:"-" db:"sync_token"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// WebhookChannel is a provider push-notification subscription tied to a
// managed calendar. A calendar references at most one channel at a time;
// renewal replaces the row rather than mutating it.
type WebhookChannel struct {
	ID         string    `json:"id" db:"id"`
	CalendarID string    `json:"calendar_id" db:"calendar_id"`
	ResourceID string    `json:"resource_id" db:"resource_id"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the channel has lapsed. An expired channel no
// longer delivers push notifications and the calendar degrades to polling.
func (c *WebhookChannel) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
