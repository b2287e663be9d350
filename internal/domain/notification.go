package domain

import "time"

// NotificationType is the severity of a client-side notification.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyError   NotificationType = "error"
)

// Notification is an ephemeral, client-local alert derived from a feed event or a
// connection-state change.
type Notification struct {
	ID                 string           `json:"id"`
	Type               NotificationType `json:"type"`
	Title              string           `json:"title"`
	Message            string           `json:"message"`
	Timestamp          time.Time        `json:"timestamp"`
	Read               bool             `json:"read"`
	AutoClose          bool             `json:"auto_close"`
	Duration           time.Duration    `json:"duration"`
	RequireInteraction bool             `json:"require_interaction"`
}

// Signature identifies notifications that are duplicates of each other.
func (n Notification) Signature() string {
	return string(n.Type) + "|" + n.Title + "|" + n.Message
}
