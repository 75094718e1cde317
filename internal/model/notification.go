package model

// UserNotification is a per-user reminder override. Absence of an entry
// means the user is opted in.
type UserNotification struct {
	Enabled bool `json:"enabled"`
}

// NotificationSettings holds the global reminder configuration: whether
// reminders fire at all, the daily time of day ("HH:MM", 24h) and the
// per-user overrides.
type NotificationSettings struct {
	Enabled      bool                       `json:"enabled"`
	ReminderTime string                     `json:"reminder_time"`
	PerUser      map[int64]UserNotification `json:"per_user,omitempty"`
}

// DefaultNotificationSettings is the state of a fresh install: reminders
// off until an admin enables them, with a placeholder morning time.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:      false,
		ReminderTime: "09:00",
		PerUser:      map[int64]UserNotification{},
	}
}

// EnabledFor reports whether reminders should reach the given user,
// combining the global switch with the per-user override.
func (n NotificationSettings) EnabledFor(userID int64) bool {
	if !n.Enabled {
		return false
	}
	if o, ok := n.PerUser[userID]; ok {
		return o.Enabled
	}
	return true
}
