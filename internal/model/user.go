package model

import "time"

// UserRecord is one row of the user registry, keyed by the sender ID the
// transport reports for a chat. A record is created on first successful
// authentication and its DisplayName is refreshed on every name entry.
//
// IsAdmin is the dynamic flag toggled by other admins. Identities on the
// static allowlist are admins regardless of this flag; that override is
// applied by the user repository, never by callers inspecting the record
// directly.
type UserRecord struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// Assignment designates which checklist a user must complete on their next
// authentication. One assignment per user, last write wins. The referenced
// role/checklist may dangle if the catalog was edited afterwards; readers
// must treat that as "no usable assignment", not as corruption.
type Assignment struct {
	Role      string `json:"role"`
	Checklist string `json:"checklist"`
}
