package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/housei/dashboard/adapters"
	"github.com/housei/dashboard/domain/entities"
	"github.com/housei/dashboard/usecase"
)

// fakeMessage implements paho's Message for handler tests
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

func TestParseTopic(t *testing.T) {
	tests := []struct {
		topic    string
		wantID   string
		wantKind string
		wantErr  bool
	}{
		{"housei/devices/abc/telemetry", "abc", KindTelemetry, false},
		{"housei/devices/abc/status", "abc", KindStatus, false},
		{TelemetryTopic("65f0c1"), "65f0c1", KindTelemetry, false},
		{"housei/devices//telemetry", "", "", true},
		{"housei/devices/abc/firmware", "", "", true},
		{"housei/devices/abc/telemetry/extra", "", "", true},
		{"other/devices/abc/telemetry", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, kind, err := ParseTopic(tt.topic)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestIngestor_RecordsMessages(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryDeviceStore()
	id, err := store.Create(ctx, &entities.Device{
		Name:    "Kitchen Hub",
		Sensors: []entities.SensorKind{entities.SensorGas, entities.SensorFlame},
	})
	require.NoError(t, err)

	ingestor := NewIngestor(nil, usecase.NewTelemetryService(store, zap.NewNop()), zap.NewNop())

	ingestor.onMessage(nil, fakeMessage{
		topic:   TelemetryTopic(id),
		payload: []byte(`{"gas": 412.5, "flame": false, "temperature": 30}`),
	})

	device, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, device.IsOnline)
	require.NotNil(t, device.SensorData)
	assert.Equal(t, 412.5, *device.SensorData.Gas)
	assert.False(t, *device.SensorData.Flame)
	assert.Nil(t, device.SensorData.Temperature, "reading for a sensor the device lacks is dropped")

	ingestor.onMessage(nil, fakeMessage{topic: StatusTopic(id), payload: []byte("offline")})
	device, err = store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, device.IsOnline)
}

func TestIngestor_RejectsBadMessages(t *testing.T) {
	ctx := context.Background()
	store := adapters.NewMemoryDeviceStore()
	id, err := store.Create(ctx, &entities.Device{Name: "Lamp"})
	require.NoError(t, err)

	ingestor := NewIngestor(nil, usecase.NewTelemetryService(store, zap.NewNop()), zap.NewNop())

	assert.Error(t, ingestor.handle(ctx, TelemetryTopic(id), []byte("{")))
	assert.Error(t, ingestor.handle(ctx, StatusTopic(id), []byte("sleeping")))
	assert.ErrorIs(t, ingestor.handle(ctx, StatusTopic("ghost"), []byte("online")), entities.ErrDeviceNotFound)
	assert.Error(t, ingestor.handle(ctx, "housei/devices/x/unknown", nil))
}
