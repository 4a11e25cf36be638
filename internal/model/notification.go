package model

import "time"

// NotificationLevel distinguishes success notices from failures.
type NotificationLevel int

const (
	NotifySuccess NotificationLevel = iota
	NotifyInfo
	NotifyError
)

// Notification is a transient message surfaced to the user after an
// operation completes or fails. It never blocks interaction.
type Notification struct {
	// ID is unique per notification so a stale expiry timer can tell it
	// has been superseded.
	ID int

	// Level selects the styling.
	Level NotificationLevel

	// Message is the human-readable notification text.
	Message string

	// CreatedAt is when this notification was raised.
	CreatedAt time.Time
}
