package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/housei/dashboard/domain/entities"
)

const writeTimeout = 5 * time.Second

// TelemetryRecorder is what the ingestor writes incoming messages to
type TelemetryRecorder interface {
	Report(ctx context.Context, id string, reading entities.SensorReading) error
	SetOnline(ctx context.Context, id string, online bool) error
}

// Ingestor subscribes to device telemetry and status topics and records
// every message
type Ingestor struct {
	client   paho.Client
	recorder TelemetryRecorder
	logger   *zap.Logger
}

// NewIngestor creates an ingestor over a connected client
func NewIngestor(client paho.Client, recorder TelemetryRecorder, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		client:   client,
		recorder: recorder,
		logger:   logger,
	}
}

// Start subscribes to all device topics
func (i *Ingestor) Start() error {
	filters := map[string]byte{
		TelemetryFilter: 1,
		StatusFilter:    1,
	}
	token := i.client.SubscribeMultiple(filters, i.onMessage)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("subscribing to device topics: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to device topics: %w", err)
	}
	i.logger.Info("Listening for device telemetry",
		zap.String("telemetry", TelemetryFilter),
		zap.String("status", StatusFilter))
	return nil
}

// Stop unsubscribes and disconnects
func (i *Ingestor) Stop() {
	i.client.Unsubscribe(TelemetryFilter, StatusFilter).WaitTimeout(writeTimeout)
	i.client.Disconnect(250)
}

func (i *Ingestor) onMessage(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := i.handle(ctx, msg.Topic(), msg.Payload()); err != nil {
		i.logger.Warn("Dropped device message",
			zap.String("topic", msg.Topic()),
			zap.Error(err))
	}
}

func (i *Ingestor) handle(ctx context.Context, topic string, payload []byte) error {
	deviceID, kind, err := ParseTopic(topic)
	if err != nil {
		return err
	}

	switch kind {
	case KindTelemetry:
		var reading entities.SensorReading
		if err := json.Unmarshal(payload, &reading); err != nil {
			return fmt.Errorf("decoding reading: %w", err)
		}
		return i.recorder.Report(ctx, deviceID, reading)

	case KindStatus:
		switch strings.TrimSpace(string(payload)) {
		case StatusOnline:
			return i.recorder.SetOnline(ctx, deviceID, true)
		case StatusOffline:
			return i.recorder.SetOnline(ctx, deviceID, false)
		default:
			return fmt.Errorf("unknown status %q", payload)
		}
	}
	return nil
}
