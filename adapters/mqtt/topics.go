package mqtt

import (
	"fmt"
	"strings"
)

const topicPrefix = "housei/devices/"

// Topic kinds under housei/devices/{id}/
const (
	KindTelemetry = "telemetry"
	KindStatus    = "status"
)

// Payloads of the status topic
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Wildcard subscriptions covering every device
var (
	TelemetryFilter = topicPrefix + "+/" + KindTelemetry
	StatusFilter    = topicPrefix + "+/" + KindStatus
)

// TelemetryTopic is where a device agent publishes sensor readings
func TelemetryTopic(deviceID string) string {
	return topicPrefix + deviceID + "/" + KindTelemetry
}

// StatusTopic is where a device agent publishes online/offline
func StatusTopic(deviceID string) string {
	return topicPrefix + deviceID + "/" + KindStatus
}

// ParseTopic splits a device topic into its device ID and kind
func ParseTopic(topic string) (deviceID, kind string, err error) {
	rest, ok := strings.CutPrefix(topic, topicPrefix)
	if !ok {
		return "", "", fmt.Errorf("unexpected topic %q", topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("unexpected topic %q", topic)
	}
	switch parts[1] {
	case KindTelemetry, KindStatus:
		return parts[0], parts[1], nil
	default:
		return "", "", fmt.Errorf("unknown topic kind %q", parts[1])
	}
}
