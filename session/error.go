package session

import "fmt"

// ConflictError reports an attempt to re-assign a session property to a
// different value. Re-assigning the current value is a no-op, never an
// error.
type ConflictError struct {
	Session  string
	Property string
	Current  interface{}
	Proposed interface{}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("session %v: property %v is already set to %v and cannot change to %v; use a new session for a different %v",
		e.Session, e.Property, e.Current, e.Proposed, e.Property)
}

// NewConflict creates a property-conflict error.
func NewConflict(session, property string, current, proposed interface{}) *ConflictError {
	return &ConflictError{Session: session, Property: property, Current: current, Proposed: proposed}
}

// IdentityConflictError reports two distinct session names colliding on the
// same backup location.
type IdentityConflictError struct {
	Location string
	Stored   string
	Proposed string
}

func (e *IdentityConflictError) Error() string {
	return fmt.Sprintf("backup at %v belongs to session %v, not %v; point the session at its own output location",
		e.Location, e.Stored, e.Proposed)
}

// InvalidNameError reports a session name outside the safe character set.
type InvalidNameError struct {
	Name string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid session name %q: only letters, digits, hyphen, underscore and space are allowed", e.Name)
}

// LaunchError reports a submission loop stopped by a failure after part of
// the requested executions started. The started executions are already
// persisted when this error surfaces.
type LaunchError struct {
	Session   string
	Submitted int
	Requested int
	Err       error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("session %v: submission %v of %v failed: %v; the %v execution(s) already started are saved",
		e.Session, e.Submitted+1, e.Requested, e.Err, e.Submitted)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
