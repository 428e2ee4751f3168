package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/internal/viewmodel"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeDashboardSnapshot MessageType = "dashboard_snapshot"
	MessageTypePing              MessageType = "ping"
	MessageTypePong              MessageType = "pong"
	MessageTypeError             MessageType = "error"
)

// Error codes sent to dashboards
const (
	ErrorCodeInvalidMessage     = "invalid_message"
	ErrorCodeUnsupportedMessage = "unsupported_message"
	ErrorCodeSubscription       = "subscription_failed"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// DashboardSnapshotMessage carries the full dashboard state after every
// change of the device collection
type DashboardSnapshotMessage struct {
	BaseMessage
	Devices []entities.Device `json:"devices"`
	Recent  []entities.Device `json:"recent_devices"`
	Stats   viewmodel.Stats   `json:"stats"`
	Trend   viewmodel.Trend   `json:"trend"`
	Loaded  bool              `json:"loaded"`
	Error   string            `json:"error,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage validates an incoming message. Dashboards only send pings;
// everything else is rejected.
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		if msg.Timestamp == "" {
			msg.Timestamp = time.Now().Format(time.RFC3339)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePong,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Data: data,
	}
}

// CreateSnapshotMessage wraps a registry state for the wire
func CreateSnapshotMessage(state viewmodel.State) *DashboardSnapshotMessage {
	recent := state.Devices
	if len(recent) > viewmodel.RecentLimit {
		recent = recent[:viewmodel.RecentLimit]
	}
	return &DashboardSnapshotMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeDashboardSnapshot,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Devices: state.Devices,
		Recent:  recent,
		Stats:   state.Stats,
		Trend:   state.Trend,
		Loaded:  state.Loaded,
		Error:   state.Error,
	}
}
