package services

import (
	"fmt"

	"parktime/models"
)

// Service methods return exactly one of these error kinds. Handlers
// branch on them with errors.As; none of them is fatal to the process.

// ValidationError reports a payload that fails a business rule
// (bad hours, inactive work code, duplicate username, ...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AuthorizationError reports that the actor's role or ownership does
// not permit the attempted action. Denies are always surfaced, never
// silently ignored.
type AuthorizationError struct {
	Action models.Action
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("not allowed to %s: %s", e.Action, e.Reason)
	}
	return fmt.Sprintf("not allowed to %s", e.Action)
}

// ConflictError reports a status transition the entry state machine
// does not allow from its current status.
type ConflictError struct {
	From models.EntryStatus
	To   models.EntryStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("cannot move entry from %s to %s", e.From, e.To)
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// PersistenceError wraps a database failure, including a failed audit
// write. The surrounding transaction has already been rolled back when
// the caller sees this.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
