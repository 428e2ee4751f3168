package repositories

import (
	"context"

	"github.com/housei/dashboard/domain/entities"
)

// SnapshotHandler receives a complete device list, newest first
type SnapshotHandler func(devices []entities.Device)

// ErrorHandler receives failures of a live query
type ErrorHandler func(err error)

// Subscription is a standing live query.
// Cancel must be called exactly once; it does not return until no handler
// can run anymore, so it must not be called from inside a handler.
type Subscription interface {
	Cancel()
}

// DeviceStore defines data access methods for devices
type DeviceStore interface {
	// Create stores the device, assigning its ID and CreatedAt
	Create(ctx context.Context, device *entities.Device) (string, error)
	GetByID(ctx context.Context, id string) (*entities.Device, error)
	// List returns the whole collection ordered by created_at descending
	List(ctx context.Context) ([]entities.Device, error)
	// Update writes the non-nil fields of update. Returns
	// entities.ErrDeviceNotFound when id does not exist.
	Update(ctx context.Context, id string, update entities.DeviceUpdate) error
	Delete(ctx context.Context, id string) error
	// Subscribe delivers the full collection ordered by created_at
	// descending, once immediately and again after every change.
	Subscribe(ctx context.Context, onSnapshot SnapshotHandler, onError ErrorHandler) (Subscription, error)
}

// AdminRepository defines data access methods for admin credentials
type AdminRepository interface {
	// FindByCredentials returns entities.ErrAdminNotFound when no record
	// matches both email and password
	FindByCredentials(ctx context.Context, email, password string) (*entities.AdminRecord, error)
	Create(ctx context.Context, admin *entities.AdminRecord) error
}

// KeyValueStorage is durable client-local storage for small string values
type KeyValueStorage interface {
	// Get returns ok=false when key is absent
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
