package api

import (
	"time"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/viewmodel"
)

// LoginRequest represents the request payload for admin login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response payload for admin login
type LoginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      *entities.AdminUser `json:"user"`
}

// SetupAdminRequest creates an admin record
type SetupAdminRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToggleRequest carries the status the admin last saw
type ToggleRequest struct {
	CurrentStatus entities.DeviceStatus `json:"current_status"`
}

// ToggleResponse reports the status that was written
type ToggleResponse struct {
	ID     string                `json:"id"`
	Status entities.DeviceStatus `json:"status"`
}

// CreateDeviceResponse reports the ID assigned to a new device
type CreateDeviceResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// DeleteDeviceResponse confirms a deletion
type DeleteDeviceResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// DeviceListResponse is the current registry list
type DeviceListResponse struct {
	Devices []entities.Device `json:"devices"`
	Loaded  bool              `json:"loaded"`
}

// DashboardResponse is everything the overview page renders
type DashboardResponse struct {
	Stats   viewmodel.Stats   `json:"stats"`
	Trend   viewmodel.Trend   `json:"trend"`
	Recent  []entities.Device `json:"recent_devices"`
	Loaded  bool              `json:"loaded"`
	Warning string            `json:"warning,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
