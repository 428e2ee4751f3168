package entities

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrAdminNotFound  = errors.New("admin not found")
)

// ValidationError is raised before any store interaction when input is rejected
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// AuthenticationError reports a credential mismatch
type AuthenticationError struct {
	Email string
}

func (e *AuthenticationError) Error() string {
	return "invalid email or password"
}

// CreationError wraps a store failure while adding a device
type CreationError struct {
	Err error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("device could not be created: %v", e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// UpdateError wraps a store failure while writing to an existing device
type UpdateError struct {
	ID  string
	Err error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("device %s could not be updated: %v", e.ID, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// DeletionError wraps a store failure while removing a device
type DeletionError struct {
	ID  string
	Err error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("device %s could not be deleted: %v", e.ID, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// SubscriptionError wraps a failure of the live device query
type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("device subscription failed: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
