package model

import (
	"net/url"
	"time"
)

// NotificationType classifies the urgency of a maintenance notification.
type NotificationType string

const (
	NotificationWarning NotificationType = "warning"
	NotificationOverdue NotificationType = "overdue"
	NotificationInfo    NotificationType = "info"
)

// Notification represents a server-derived maintenance reminder for a
// vehicle. The server owns these records; the client caches them for the
// lifetime of a session.
type Notification struct {
	// ID is the unique identifier for this notification. Stable across
	// refreshes; appears at most once in the local cache.
	ID string `json:"id"`

	// Type is the severity class: warning, overdue, or info.
	Type NotificationType `json:"type"`

	// CarDetails is the display label of the associated vehicle.
	// Opaque to the client; never parsed.
	CarDetails string `json:"carDetails"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// KmToNextService is the distance remaining until the next service.
	// Negative means overdue by that magnitude; nil when not applicable
	// (e.g. time-based reminders).
	KmToNextService *int `json:"kmToNextService,omitempty"`

	// ServiceCount is the number of services recorded for the vehicle,
	// when the server includes it.
	ServiceCount *int `json:"serviceCount,omitempty"`

	// CreatedAt is when the server generated this notification.
	CreatedAt time.Time `json:"createdAt"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`
}

// NotificationStats holds aggregate counters reported by the server.
// It is a derived summary fetched independently of the list, so it may be
// briefly inconsistent with it. The zero value means "unknown".
type NotificationStats struct {
	Total   int `json:"total"`
	Unread  int `json:"unread"`
	Warning int `json:"warning"`
	Overdue int `json:"overdue"`
}

// Sort keys understood by both the server and the client-side sort.
const (
	SortByPriority = "priority"
	SortByDate     = "date"
	SortByKm       = "km"
	SortByCar      = "car"
)

// NotificationFilter controls filtering and ordering of notification
// queries. Empty or "all" fields are omitted from the encoded query.
type NotificationFilter struct {
	// Search matches against message and vehicle label text.
	Search string

	// Type restricts to one severity: "warning", "overdue", "info",
	// or "all"/empty for no restriction.
	Type string

	// Status restricts by read state: "unread", "read", or "all"/empty.
	Status string

	// SortBy is one of the SortBy* constants.
	SortBy string
}

// Query encodes the filter as URL query parameters for the list endpoint.
func (f NotificationFilter) Query() url.Values {
	values := url.Values{}
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	if f.Type != "" && f.Type != "all" {
		values.Set("type", f.Type)
	}
	if f.Status != "" && f.Status != "all" {
		values.Set("status", f.Status)
	}
	if f.SortBy != "" {
		values.Set("sortBy", f.SortBy)
	}
	return values
}
