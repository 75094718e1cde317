// Package repository holds the mutable stores the two conversation
// machines operate on. Every store guards its state with a mutex, loads
// its document at construction time (missing document means empty store)
// and saves the whole document after every mutation, so concurrent writes
// never interleave partially on disk.
//
// The sentinel errors below let the conversation layer distinguish the
// expected failure shapes. "Not found" and "index out of range" are
// ordinary branches there, not faults.
package repository

import "errors"

// ErrNotFound is returned when a referenced role, checklist or user does
// not exist (any more). Callers report it and fall back to the nearest
// safe state.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when creating something whose name is already
// taken at the same level.
var ErrExists = errors.New("already exists")

// ErrIndexOutOfRange is returned when a task index captured at menu
// render time no longer fits the current task list at commit time.
var ErrIndexOutOfRange = errors.New("task index out of range")

// ErrBadTime is returned for reminder times that are not "HH:MM".
var ErrBadTime = errors.New("time must be HH:MM")

// Document names in the storage backend. One store, one document.
const (
	docChecklists    = "checklists"
	docAssignments   = "assignments"
	docUsers         = "users"
	docNotifications = "notifications"
	docReports       = "reports"
	docSecret        = "secret"
)
